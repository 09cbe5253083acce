package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

type WatchConfig struct {
	Root        string        // vault directory, watched recursively
	InitialScan bool          // if true, emit existing files first
	SkipHidden  bool          // ignore dot files and dot directories
	Debounce    time.Duration // coalesce rapid create/write bursts
}

// StartWatcher emits the root-relative path of every extractable file that
// appears (created, or renamed into place) or is rewritten under cfg.Root.
// Both channels close when ctx ends.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		logger.Error("watcher start failed: no root provided")
		return nil, nil, errors.New("no root provided")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	var initial []string
	collect := func(path string) {
		if cfg.InitialScan {
			initial = append(initial, path)
		}
	}
	if err := addTree(w, cfg.Root, cfg.SkipHidden, collect); err != nil {
		logger.Error("failed to add root directory", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		send := func(path string) bool {
			select {
			case evCh <- relSlash(cfg.Root, path):
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !send(p) {
				return
			}
		}

		pending := map[string]struct{}{}
		var (
			timer  *time.Timer
			timerC <-chan time.Time
		)
		flush := func() bool {
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			for _, p := range paths {
				if !send(p) {
					return false
				}
			}
			return true
		}
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				if cfg.SkipHidden && IsHidden(e.Name) {
					continue
				}
				if e.Has(fsnotify.Create) {
					if fi, err := os.Stat(e.Name); err == nil && fi.IsDir() {
						// a directory moved in may already hold files
						if err := addTree(w, e.Name, cfg.SkipHidden, func(p string) { pending[p] = struct{}{} }); err != nil {
							logger.Warn("failed to add new directory to watcher", "path", e.Name, "error", err)
						}
					}
				}
				if AllowedExt(filepath.Ext(e.Name)) && (e.Has(fsnotify.Create) || e.Has(fsnotify.Write)) {
					pending[e.Name] = struct{}{}
				}
				if len(pending) == 0 {
					continue
				}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				timerC = timer.C
			case <-timerC:
				timerC = nil
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// addTree watches root and every directory below it, and reports each
// extractable file found on the way.
func addTree(w *fsnotify.Watcher, root string, skipHidden bool, onFile func(path string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path != root && skipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return w.Add(path)
		}
		if AllowedExt(filepath.Ext(path)) {
			onFile(path)
		}
		return nil
	})
}
