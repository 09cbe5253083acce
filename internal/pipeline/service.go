package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/joseph-ayodele/text-extractor/constants"
	"github.com/joseph-ayodele/text-extractor/internal/async"
	"github.com/joseph-ayodele/text-extractor/internal/cache"
	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/workerpool"
)

// Options tune one extraction call.
type Options struct {
	// Languages are Tesseract codes for images; ignored for PDFs. Empty means
	// the service default.
	Languages []string
}

// DefaultTimeout applies when Config.Timeout is not positive. Every
// extraction runs under a deadline.
const DefaultTimeout = 2 * time.Minute

type Config struct {
	Concurrency      int
	SharedQueue      bool
	Timeout          time.Duration // <= 0 means DefaultTimeout
	PacingDelay      time.Duration
	DefaultLanguages []string
}

// ConfigFrom maps the application config onto the service.
func ConfigFrom(cfg *common.Config) Config {
	return Config{
		Concurrency:      cfg.Queue.Concurrency,
		SharedQueue:      cfg.Queue.Shared,
		Timeout:          cfg.Pool.Timeout,
		PacingDelay:      cfg.Pool.PacingDelay,
		DefaultLanguages: cfg.OCR.Languages,
	}
}

type Deps struct {
	Store   *cache.Store
	Reader  Reader
	Spawner workerpool.Spawner
	Jobs    JobRecorder // nil disables the job ledger
	Logger  *slog.Logger
}

// Service is the public extraction surface. It routes each path to the
// orchestrator for its document class.
type Service struct {
	orchestrators map[string]*Orchestrator
	queues        []*async.ProcessQueue
	pools         []*workerpool.Pool
	defaultLangs  []string
	logger        *slog.Logger
}

func NewService(cfg Config, deps Deps) (*Service, error) {
	if deps.Store == nil || deps.Reader == nil || deps.Spawner == nil {
		return nil, errors.New("pipeline: store, reader and spawner are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Service{
		orchestrators: make(map[string]*Orchestrator, len(constants.FileTypes)),
		defaultLangs:  filterLanguages(cfg.DefaultLanguages, logger),
		logger:        logger,
	}
	if len(s.defaultLangs) == 0 {
		s.defaultLangs = []string{constants.DefaultLanguage}
	}

	var shared *async.ProcessQueue
	if cfg.SharedQueue {
		shared = async.NewProcessQueue(cfg.Concurrency, logger, async.WithName("shared"))
		s.queues = append(s.queues, shared)
	}
	for _, class := range constants.FileTypes {
		q := shared
		if q == nil {
			q = async.NewProcessQueue(cfg.Concurrency, logger, async.WithName(class))
			s.queues = append(s.queues, q)
		}
		pool := workerpool.NewPool(class, deps.Spawner, logger)
		s.pools = append(s.pools, pool)
		s.orchestrators[class] = NewOrchestrator(class, OrchestratorDeps{
			Store:       deps.Store,
			Queue:       q,
			Pool:        pool,
			Reader:      deps.Reader,
			Jobs:        deps.Jobs,
			Timeout:     cfg.Timeout,
			PacingDelay: cfg.PacingDelay,
			Logger:      logger,
		})
	}

	logger.Info("extraction service ready",
		"concurrency", cfg.Concurrency, "shared_queue", cfg.SharedQueue,
		"timeout", cfg.Timeout, "languages", s.defaultLangs)
	return s, nil
}

// Extract returns the outcome for path. The only error is for a path whose
// extension is not supported; it is raised before the cache is touched.
func (s *Service) Extract(ctx context.Context, path string, opts Options) (Outcome, error) {
	class := constants.FormatOf(path)
	o, ok := s.orchestrators[class]
	if !ok {
		return Outcome{}, common.NewAppError(common.CodeUnsupportedType,
			fmt.Sprintf("cannot extract text from %q", path), common.ErrUnsupportedFileType)
	}
	langs := s.defaultLangs
	if len(opts.Languages) > 0 {
		if l := filterLanguages(opts.Languages, s.logger); len(l) > 0 {
			langs = l
		}
	}
	return o.Extract(ctx, path, langs), nil
}

// ExtractText is Extract reduced to its text: "" unless the outcome is OK.
func (s *Service) ExtractText(ctx context.Context, path string, opts Options) (string, error) {
	out, err := s.Extract(ctx, path, opts)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// CanExtract reports whether path has a supported extension.
func (s *Service) CanExtract(path string) bool {
	return CanExtract(path)
}

func CanExtract(path string) bool {
	return constants.FormatOf(path) != ""
}

// SupportedLanguages is the static list of OCR language codes.
func (s *Service) SupportedLanguages() []string {
	return slices.Clone(constants.SupportedLanguages)
}

// DefaultLanguages is what an image is recognized with when the caller
// passes none.
func (s *Service) DefaultLanguages() []string {
	return slices.Clone(s.defaultLangs)
}

// Stats is a point-in-time view of the queues and pools.
type Stats struct {
	Queue   string
	Limit   int
	Running int
	Waiting int
	Workers int
	Idle    int
}

func (s *Service) Stats() []Stats {
	out := make([]Stats, 0, len(constants.FileTypes))
	for _, class := range constants.FileTypes {
		o := s.orchestrators[class]
		out = append(out, Stats{
			Queue:   o.queue.Name(),
			Limit:   o.queue.Limit(),
			Running: o.queue.Running(),
			Waiting: o.queue.Waiting(),
			Workers: o.pool.Size(),
			Idle:    o.pool.Idle(),
		})
	}
	return out
}

// Close drains the queues, then terminates every worker.
func (s *Service) Close(ctx context.Context) error {
	for _, q := range s.queues {
		q.Shutdown(ctx)
	}
	var errs []error
	for _, p := range s.pools {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// filterLanguages drops codes Tesseract does not know about.
func filterLanguages(langs []string, logger *slog.Logger) []string {
	out := make([]string, 0, len(langs))
	for _, l := range langs {
		if !constants.IsSupportedLanguage(l) {
			logger.Warn("ignoring unsupported OCR language", "language", l)
			continue
		}
		if !slices.Contains(out, l) {
			out = append(out, l)
		}
	}
	return out
}
