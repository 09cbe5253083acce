package ocr

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// PdftotextEngine shells out to poppler's pdftotext.
type PdftotextEngine struct {
	Bin      string
	MaxPages int
	Runner   Runner
}

func (p *PdftotextEngine) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	path, cleanup, err := writeTemp("te-pdf-*.pdf", data)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	// pdftotext -enc UTF-8 -eol unix [-l N] <path> -
	args := []string{"-enc", "UTF-8", "-eol", "unix"}
	if p.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(p.MaxPages))
	}
	args = append(args, path, "-")
	out, errb, err := p.Runner.Run(ctx, p.Bin, args...)
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return splitPages(string(out)), nil
}

// splitPages splits on the form feed pdftotext emits after every page.
func splitPages(out string) []string {
	pages := strings.Split(out, "\f")
	if n := len(pages); n > 0 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages
}

func writeTemp(pattern string, data []byte) (string, func(), error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(f.Name()) }
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		cleanup()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return f.Name(), cleanup, nil
}
