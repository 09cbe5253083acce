package server

import (
	"context"

	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
)

// Extractor is the surface both transports expose; pipeline.Service
// implements it.
type Extractor interface {
	Extract(ctx context.Context, path string, opts pipeline.Options) (pipeline.Outcome, error)
	CanExtract(path string) bool
	SupportedLanguages() []string
	DefaultLanguages() []string
}

// ExtractResult is the transport-neutral view of an Outcome.
type ExtractResult struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Cached bool   `json:"cached"`
	Error  string `json:"error,omitempty"`
}

func resultOf(path string, out pipeline.Outcome) ExtractResult {
	return ExtractResult{
		Path:   path,
		Kind:   out.Kind.String(),
		Text:   out.Text,
		Cached: out.Cached,
		Error:  out.Reason(),
	}
}
