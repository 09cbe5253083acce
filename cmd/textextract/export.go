package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/text-extractor/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write an XLSX inventory of the text cache",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := openStore(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.close(ctx)

		data, err := export.NewService(a.store, logger).ExportCacheXLSX(ctx)
		if err != nil {
			return err
		}
		if err := os.WriteFile(exportOut, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", exportOut, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", exportOut, len(data))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "text-cache.xlsx", "output XLSX path")
	rootCmd.AddCommand(exportCmd)
}
