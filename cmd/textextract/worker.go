package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/text-extractor/internal/ocr"
	"github.com/joseph-ayodele/text-extractor/internal/ocr/native"
	"github.com/joseph-ayodele/text-extractor/internal/workerpool"
)

var workerCmd = &cobra.Command{
	Use:    "worker",
	Short:  "Run as an extraction worker on stdin/stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM)
		defer stop()

		ext, err := native.NewExtractor(ocr.ConfigFrom(cfg.OCR), logger)
		if err != nil {
			return err
		}
		logger.Debug("worker ready", "pid", os.Getpid())
		return workerpool.Serve(ctx, os.Stdin, os.Stdout, ext.Handle)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
