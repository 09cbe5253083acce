package ingest

import (
	"context"

	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
)

// Per-file statuses reported by the warmer.
const (
	StatusOK          = "ok"
	StatusCached      = "cached"
	StatusFailed      = "failed"
	StatusUnavailable = "unavailable"
	StatusUnsupported = "unsupported"
)

// FileResult is the per-file outcome of a batch or watch run.
type FileResult struct {
	Path   string `json:"path"`
	Status string `json:"status"`
	Chars  int    `json:"chars"`
	Err    string `json:"error,omitempty"`
}

// DirStats summarizes a directory run.
type DirStats struct {
	Scanned     uint32
	Matched     uint32
	Succeeded   uint32
	Cached      uint32
	Failed      uint32
	Unavailable uint32
}

// Extractor is what the warmer drives; pipeline.Service implements it.
type Extractor interface {
	Extract(ctx context.Context, path string, opts pipeline.Options) (pipeline.Outcome, error)
}
