package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/text-extractor/constants"
	"github.com/joseph-ayodele/text-extractor/internal/ocr"
	"github.com/joseph-ayodele/text-extractor/internal/ocr/native"
	"github.com/joseph-ayodele/text-extractor/internal/workerpool"
)

var ocrLanguages []string

// ocrCmd runs the engines in-process on a local file. No cache, no worker,
// no timeout; meant for checking an engine setup.
var ocrCmd = &cobra.Command{
	Use:   "ocr <file>",
	Short: "Run the extraction engines directly on a file, bypassing cache and workers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		kind := constants.FormatOf(path)
		if kind == "" {
			return fmt.Errorf("cannot extract text from %q", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		ext, err := native.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger)
		if err != nil {
			return err
		}
		langs := ocrLanguages
		if len(langs) == 0 {
			langs = cfg.OCR.Languages
		}

		start := time.Now()
		resp := ext.Handle(cmd.Context(), workerpool.Request{ID: "local", Kind: kind, Name: path, Data: data, Languages: langs})
		if resp.Error != "" {
			logger.Error("text extraction failed", "path", path, "error", resp.Error, "duration_ms", time.Since(start).Milliseconds())
			return fmt.Errorf("extract %s: %s", path, resp.Error)
		}
		text := ocr.NormalizeText(resp.Text)
		if kind == constants.PDF {
			text = ocr.JoinPages(resp.Pages)
		}
		logger.Info("text extraction OK", "path", path, "pages", len(resp.Pages), "chars", len(text), "duration_ms", time.Since(start).Milliseconds())
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

func init() {
	ocrCmd.Flags().StringSliceVarP(&ocrLanguages, "lang", "l", nil, "OCR language codes for images")
	rootCmd.AddCommand(ocrCmd)
}
