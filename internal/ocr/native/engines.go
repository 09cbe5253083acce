package native

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/ocr"
)

// NewExtractor builds the engines named in cfg and wraps them in an
// ocr.Extractor.
func NewExtractor(cfg ocr.Config, logger *slog.Logger) (*ocr.Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	runner := ocr.ExecRunner{Logger: logger}

	var pdf ocr.PageExtractor
	switch cfg.PDFEngine {
	case "fitz", "":
		pdf = &FitzEngine{MaxPages: cfg.MaxPages}
	case "pdftotext":
		pdf = &ocr.PdftotextEngine{Bin: cfg.Pdftotext, MaxPages: cfg.MaxPages, Runner: runner}
	default:
		return nil, fmt.Errorf("unknown pdf engine %q: %w", cfg.PDFEngine, common.ErrInvalidInput)
	}

	var rec ocr.Recognizer
	switch cfg.OCREngine {
	case "gosseract", "":
		rec = &GosseractEngine{TessdataDir: cfg.TessdataDir, PSM: cfg.PSM}
	case "tesseract":
		rec = &ocr.TesseractEngine{Bin: cfg.Tesseract, TessdataDir: cfg.TessdataDir, PSM: cfg.PSM, OEM: cfg.OEM, Runner: runner}
	default:
		return nil, fmt.Errorf("unknown ocr engine %q: %w", cfg.OCREngine, common.ErrInvalidInput)
	}

	logger.Debug("extraction engines ready", "pdf_engine", cfg.PDFEngine, "ocr_engine", cfg.OCREngine)
	return ocr.NewExtractor(pdf, rec, logger), nil
}
