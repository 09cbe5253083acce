package pipeline

import (
	"context"

	"github.com/joseph-ayodele/text-extractor/internal/entity"
)

// Reader loads document bytes.
type Reader interface {
	ReadBytes(ctx context.Context, path string) ([]byte, error)
}

// JobRecorder persists job transitions; repository.ExtractJobRepository
// implements it.
type JobRecorder interface {
	Record(ctx context.Context, job entity.ExtractJob) error
}
