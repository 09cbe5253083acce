package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/text-extractor/internal/ingest"
	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
)

var (
	extractDir       string
	extractLanguages []string
	extractJSON      bool
	extractParallel  int
)

var extractCmd = &cobra.Command{
	Use:   "extract [paths...]",
	Short: "Extract text from documents in the vault",
	Long: `Extract prints the text of each vault-relative path to stdout, extracting
it on a cache miss. With --dir, every PDF and image under the directory is
extracted into the cache and a summary is printed instead.`,
	Example: `  textextract extract scans/2024/march.pdf
  textextract extract --lang eng --lang deu scans/invoice.png
  textextract extract --dir scans/2024`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractDir, "dir", "", "extract every supported file under this vault directory")
	extractCmd.Flags().StringSliceVarP(&extractLanguages, "lang", "l", nil, "OCR language codes for images (default from ocr.languages)")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print one JSON object per document")
	extractCmd.Flags().IntVar(&extractParallel, "parallel", 0, "documents in flight with --dir (default queue.concurrency)")
	rootCmd.AddCommand(extractCmd)
}

type extractLine struct {
	Path   string `json:"path"`
	Kind   string `json:"kind"`
	Text   string `json:"text"`
	Cached bool   `json:"cached"`
	Error  string `json:"error,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	if extractDir == "" && len(args) == 0 {
		return fmt.Errorf("give at least one path, or --dir")
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	opts := pipeline.Options{Languages: extractLanguages}
	if extractDir != "" {
		return extractDirectory(ctx, cmd, a, opts)
	}

	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	failed := 0
	for _, p := range args {
		o, err := a.svc.Extract(ctx, p, opts)
		if err != nil {
			logger.Error("cannot extract", "path", p, "error", err)
			failed++
			continue
		}
		if !o.OK() {
			failed++
		}
		if extractJSON {
			if err := enc.Encode(extractLine{Path: p, Kind: o.Kind.String(), Text: o.Text, Cached: o.Cached, Error: o.Reason()}); err != nil {
				return err
			}
			continue
		}
		if len(args) > 1 {
			fmt.Fprintf(out, "==> %s <==\n", p)
		}
		if o.OK() {
			fmt.Fprintln(out, o.Text)
		} else {
			logger.Warn("no text", "path", p, "kind", o.Kind.String(), "error", o.Reason())
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents produced no text", failed, len(args))
	}
	return nil
}

func extractDirectory(ctx context.Context, cmd *cobra.Command, a *app, opts pipeline.Options) error {
	root := underVault(a.cfg.VaultRoot, extractDir)

	paths, scan, err := ingest.Scan(ctx, root, a.cfg.Server.SkipHidden)
	if err != nil {
		return err
	}
	// Scan is relative to root; the service reads relative to the vault
	for i, p := range paths {
		paths[i] = joinSlash(extractDir, p)
	}
	logger.Info("starting directory extraction", "dir", extractDir, "scanned", scan.Scanned, "matched", scan.Matched)

	bar := progressbar.NewOptions(len(paths),
		progressbar.OptionSetDescription("extracting"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionClearOnFinish(),
	)
	parallel := extractParallel
	if parallel <= 0 {
		parallel = a.cfg.Queue.Concurrency
	}
	w := ingest.NewWarmer(a.svc, parallel, opts, logger)
	w.OnResult = func(ingest.FileResult) { _ = bar.Add(1) }

	results, stats, err := w.Run(ctx, paths)
	_ = bar.Finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if extractJSON {
		enc := json.NewEncoder(out)
		for _, r := range results {
			if r.Path == "" {
				continue
			}
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
	} else {
		for _, r := range results {
			if r.Status == ingest.StatusFailed || r.Status == ingest.StatusUnavailable {
				fmt.Fprintf(out, "%-12s %s  %s\n", r.Status, r.Path, r.Err)
			}
		}
		fmt.Fprintf(out, "scanned %d, matched %d: %d extracted, %d cached, %d failed, %d unavailable\n",
			scan.Scanned, stats.Matched, stats.Succeeded, stats.Cached, stats.Failed, stats.Unavailable)
	}
	logger.Info("directory extraction completed", "dir", extractDir,
		"succeeded", stats.Succeeded, "cached", stats.Cached, "failed", stats.Failed, "unavailable", stats.Unavailable)
	return nil
}

func joinSlash(dir, p string) string {
	dir = strings.TrimSuffix(filepath.ToSlash(dir), "/")
	if dir == "" || dir == "." {
		return p
	}
	return dir + "/" + p
}
