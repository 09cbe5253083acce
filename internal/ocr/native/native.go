// Package native holds the in-process engines. Both need cgo: go-fitz links
// MuPDF and gosseract links libtesseract.
package native

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/text-extractor/internal/ocr"
)

var (
	_ ocr.PageExtractor = (*FitzEngine)(nil)
	_ ocr.Recognizer    = (*GosseractEngine)(nil)
)

// FitzEngine reads PDF text in-process with MuPDF.
type FitzEngine struct {
	MaxPages int
}

func (f *FitzEngine) ExtractPages(ctx context.Context, data []byte) ([]string, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if f.MaxPages > 0 && n > f.MaxPages {
		n = f.MaxPages
	}
	pages := make([]string, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// GosseractEngine recognizes text through libtesseract.
type GosseractEngine struct {
	TessdataDir string
	PSM         int
}

func (g *GosseractEngine) Recognize(ctx context.Context, data []byte, languages []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := gosseract.NewClient()
	defer c.Close()

	if g.TessdataDir != "" {
		if err := c.SetTessdataPrefix(g.TessdataDir); err != nil {
			return "", fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := c.SetLanguage(ocr.LanguagesOrDefault(languages)...); err != nil {
		return "", fmt.Errorf("set languages: %w", err)
	}
	if g.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(g.PSM)); err != nil {
			return "", fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := c.Text()
	if err != nil {
		return "", fmt.Errorf("recognize text: %w", err)
	}
	return text, nil
}
