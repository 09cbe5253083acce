package server

import (
	"context"
	"io"
	"log/slog"

	"github.com/joseph-ayodele/text-extractor/constants"
	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubExtractor struct {
	outcomes map[string]pipeline.Outcome
	lastOpts pipeline.Options
	lastCtx  context.Context
}

func (s *stubExtractor) Extract(ctx context.Context, path string, opts pipeline.Options) (pipeline.Outcome, error) {
	s.lastOpts = opts
	s.lastCtx = ctx
	if !pipeline.CanExtract(path) {
		return pipeline.Outcome{}, common.NewAppError(common.CodeUnsupportedType, "cannot extract "+path, common.ErrUnsupportedFileType)
	}
	if out, ok := s.outcomes[path]; ok {
		return out, nil
	}
	return pipeline.Outcome{Kind: pipeline.KindOK, Text: "hello world"}, nil
}

func (s *stubExtractor) CanExtract(path string) bool { return pipeline.CanExtract(path) }

func (s *stubExtractor) SupportedLanguages() []string { return constants.SupportedLanguages }

func (s *stubExtractor) DefaultLanguages() []string { return []string{"eng"} }
