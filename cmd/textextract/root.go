package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/text-extractor/internal/common"
)

var (
	cfgFile  string
	logLevel string
	cfg      *common.Config
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "textextract",
	Short: "Cache-first text extraction for PDFs and scanned images",
	Long: `textextract pulls plain text out of PDF documents and raster images
(PNG, JPEG) kept in a vault directory. Extraction runs in isolated worker
processes with a per-document timeout, and every result, including failures,
is cached so a document is processed at most once.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := common.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if logLevel != "" {
			c.Log.Level = logLevel
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c
		// stdout carries extracted text, and the worker protocol in workers
		logger = common.NewLogger(c.Log, os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}
