package async

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pallet-tracker/internal/pipeline"
)

// ErrQueueClosed is returned by Enqueue after Shutdown has started.
var ErrQueueClosed = errors.New("ingestion queue is shutting down")

// Job asks for one document to be ingested.
type Job struct {
	ID           uuid.UUID
	Path         string
	DocumentName string // empty means the file's base name
	SubmittedAt  time.Time
	RequestID    string
}

// NewJob builds a job for path with a fresh ID.
func NewJob(path, documentName string) Job {
	return Job{ID: uuid.New(), Path: path, DocumentName: documentName, SubmittedAt: time.Now().UTC()}
}

// Processor runs one ingestion.
type Processor interface {
	IngestPath(ctx context.Context, path, name string) (*pipeline.Run, error)
}

// Result is handed to the completion callback after each job.
type Result struct {
	Job      Job
	Run      *pipeline.Run
	Err      error
	Duration time.Duration
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
