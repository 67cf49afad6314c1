package pipeline

import "errors"

var (
	// ErrRendererRequired is returned when a page renderer is not provided.
	ErrRendererRequired = errors.New("page renderer required")

	// ErrRecognizerRequired is returned when a recognizer is not provided.
	ErrRecognizerRequired = errors.New("recognizer required")

	// ErrRepositoryRequired is returned when an association repository is not provided.
	ErrRepositoryRequired = errors.New("association repository required")

	// ErrNoPages is returned when a run is requested for a document without pages.
	ErrNoPages = errors.New("document has no pages")
)
