package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/text-extractor/constants"
	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/workerpool"
)

type Config struct {
	PDFEngine string // "fitz" (default) | "pdftotext"
	OCREngine string // "gosseract" (default) | "tesseract"

	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TessdataDir string
	PSM         int // e.g., 6 is good for uniform block of text
	OEM         int // 1 = LSTM; leave 0 to use default; CLI engine only
	MaxPages    int // 0 = no limit
}

// ConfigFrom maps the application's OCR section onto Config.
func ConfigFrom(c common.OCRConfig) Config {
	return Config{
		PDFEngine:   c.PDFEngine,
		OCREngine:   c.OCREngine,
		Pdftotext:   c.Pdftotext,
		Tesseract:   c.Tesseract,
		TessdataDir: c.TessdataDir,
		PSM:         c.PSM,
		OEM:         c.OEM,
		MaxPages:    c.MaxPages,
	}
}

// PageExtractor returns the text of each PDF page, in order.
type PageExtractor interface {
	ExtractPages(ctx context.Context, data []byte) ([]string, error)
}

// Recognizer returns the text recognized in a raster image.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, languages []string) (string, error)
}

// Extractor runs inside a worker and serves extraction requests.
type Extractor struct {
	pdf    PageExtractor
	ocr    Recognizer
	logger *slog.Logger
}

// NewExtractor wires a PDF engine and an OCR engine.
func NewExtractor(pdf PageExtractor, rec Recognizer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{pdf: pdf, ocr: rec, logger: logger}
}

// Handle serves one worker request. Failures come back in Response.Error so
// the worker stays usable.
func (e *Extractor) Handle(ctx context.Context, req workerpool.Request) workerpool.Response {
	start := time.Now()
	e.logger.Debug("starting extraction", "name", req.Name, "kind", req.Kind, "bytes", len(req.Data))

	var resp workerpool.Response
	switch req.Kind {
	case constants.PDF:
		pages, err := e.pdf.ExtractPages(ctx, req.Data)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Pages = pages
	case constants.IMAGE:
		text, err := e.ocr.Recognize(ctx, req.Data, req.Languages)
		if err != nil {
			resp.Error = err.Error()
			break
		}
		resp.Text = text
	default:
		resp.Error = fmt.Sprintf("unsupported request kind %q", req.Kind)
	}

	if resp.Error != "" {
		e.logger.Warn("extraction failed", "name", req.Name, "kind", req.Kind, "error", resp.Error)
	} else {
		e.logger.Info("extraction done", "name", req.Name, "kind", req.Kind,
			"pages", len(resp.Pages), "duration_ms", time.Since(start).Milliseconds())
	}
	return resp
}
