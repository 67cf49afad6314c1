package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// InvalidInput builds an INVALID_INPUT AppError; errors.Is(err, ErrInvalidInput) holds.
func InvalidInput(message string) *AppError {
	return NewAppError("INVALID_INPUT", message, ErrInvalidInput)
}

// FailureKind tags where in a lookup or ingestion run a failure happened.
type FailureKind string

const (
	RenderFailure      FailureKind = "RENDER_FAILURE"
	RecognitionFailure FailureKind = "RECOGNITION_FAILURE"
	StoreQueryFailure  FailureKind = "STORE_QUERY_FAILURE"
	StoreInsertFailure FailureKind = "STORE_INSERT_FAILURE"
)

// StageError is a failure isolated to one page or one identifier.
// Page is 0 and Identifier empty when not applicable.
type StageError struct {
	Kind       FailureKind
	Page       int
	Identifier string
	Cause      error
}

func (e *StageError) Error() string {
	msg := string(e.Kind)
	if e.Page > 0 {
		msg += fmt.Sprintf(" page=%d", e.Page)
	}
	if e.Identifier != "" {
		msg += " pallet_id=" + e.Identifier
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// NewStageError is a small constructor to keep call sites on one line.
func NewStageError(kind FailureKind, page int, identifier string, cause error) *StageError {
	return &StageError{Kind: kind, Page: page, Identifier: identifier, Cause: cause}
}

// FailureKindOf returns the kind of the first StageError in err's chain.
func FailureKindOf(err error) (FailureKind, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return "", false
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...interface{}) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// ToStatus maps application errors to gRPC status errors.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrInvalidInput):
		return InvalidArgumentError(err.Error())
	case errors.Is(err, ErrNotFound):
		return NotFoundError(err.Error())
	default:
		return InternalError(err.Error())
	}
}
