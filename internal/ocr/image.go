package ocr

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/text-extractor/constants"
)

// TesseractEngine shells out to the tesseract CLI.
type TesseractEngine struct {
	Bin         string
	TessdataDir string
	PSM         int
	OEM         int
	Runner      Runner
}

func (t *TesseractEngine) Recognize(ctx context.Context, data []byte, languages []string) (string, error) {
	path, cleanup, err := writeTemp("te-img-*", data)
	if err != nil {
		return "", err
	}
	defer cleanup()

	// tesseract <file> stdout -l <lang+lang>
	args := []string{path, "stdout", "-l", strings.Join(LanguagesOrDefault(languages), "+")}
	if t.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(t.PSM))
	}
	if t.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(t.OEM))
	}
	if t.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.TessdataDir)
	}
	out, errb, err := t.Runner.Run(ctx, t.Bin, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return string(out), nil
}

// LanguagesOrDefault falls back to the primary language for an empty list.
func LanguagesOrDefault(languages []string) []string {
	if len(languages) == 0 {
		return []string{constants.DefaultLanguage}
	}
	return languages
}
