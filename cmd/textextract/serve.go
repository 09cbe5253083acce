package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/text-extractor/internal/export"
	"github.com/joseph-ayodele/text-extractor/internal/ingest"
	"github.com/joseph-ayodele/text-extractor/internal/pipeline"
	"github.com/joseph-ayodele/text-extractor/internal/server"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve extraction over gRPC and HTTP",
	Long: `serve exposes the extractor over gRPC (server.grpc_addr) and a JSON HTTP
API (server.http_addr). With --watch, supported files that appear in the vault
are extracted in the background so later requests hit the cache.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "pre-warm the cache from vault file events (server.watch)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	// gRPC
	grpcServer, hs := server.NewGRPCServer(server.NewExtractionService(a.svc, logger), logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen", "addr", cfg.Server.GRPCAddr, "error", err)
		return err
	}
	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- err
		}
	}()

	// HTTP
	opts := []server.HTTPOption{server.WithExporter(export.NewService(a.store, logger))}
	if a.db != nil {
		opts = append(opts, server.WithReadiness(func(ctx context.Context) error {
			return a.db.HealthCheck(ctx, 2*time.Second, logger)
		}))
	}
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewHTTPHandler(a.svc, logger, opts...).Router(cfg.Pool.Timeout + 30*time.Second),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("HTTP serving", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if serveWatch || cfg.Server.Watch {
		if err := startWarmer(ctx, a.svc); err != nil {
			return err
		}
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logger.Error("server failed", "error", err)
		stop()
	}

	logger.Info("shutting down...")
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(sctx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("stopped")
	return nil
}

func startWarmer(ctx context.Context, svc *pipeline.Service) error {
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Root:        cfg.VaultRoot,
		InitialScan: cfg.Server.InitialScan,
		SkipHidden:  cfg.Server.SkipHidden,
		Debounce:    cfg.Server.Debounce,
	}, logger)
	if err != nil {
		return err
	}
	w := ingest.NewWarmer(svc, cfg.Queue.Concurrency, pipeline.Options{}, logger)
	w.OnResult = func(r ingest.FileResult) {
		logger.Info("vault file warmed", "path", r.Path, "status", r.Status, "chars", r.Chars)
	}
	go func() {
		if err := w.Watch(ctx, events); err != nil {
			logger.Warn("warmer stopped", "error", err)
		}
	}()
	go func() {
		for err := range errs {
			logger.Warn("vault watcher error", "error", err)
		}
	}()
	logger.Info("watching vault", "root", cfg.VaultRoot, "initial_scan", cfg.Server.InitialScan)
	return nil
}
