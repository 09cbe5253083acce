package main

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/text-extractor/constants"
)

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List OCR language codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for _, l := range constants.SupportedLanguages {
			mark := " "
			if slices.Contains(cfg.OCR.Languages, l) {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %s\n", mark, l)
		}
		fmt.Fprintf(out, "\n* default: %s\n", strings.Join(cfg.OCR.Languages, "+"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
}
