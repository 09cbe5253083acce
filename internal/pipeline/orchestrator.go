package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/text-extractor/constants"
	"github.com/joseph-ayodele/text-extractor/internal/async"
	"github.com/joseph-ayodele/text-extractor/internal/cache"
	"github.com/joseph-ayodele/text-extractor/internal/common"
	"github.com/joseph-ayodele/text-extractor/internal/entity"
	"github.com/joseph-ayodele/text-extractor/internal/ocr"
	"github.com/joseph-ayodele/text-extractor/internal/workerpool"
)

type OrchestratorDeps struct {
	Store  *cache.Store
	Queue  *async.ProcessQueue
	Pool   *workerpool.Pool
	Reader Reader
	Jobs   JobRecorder // optional

	Timeout     time.Duration
	PacingDelay time.Duration
	Logger      *slog.Logger
}

// Orchestrator runs the cache-first pipeline for one document class:
// cache read, queue admission, worker dispatch under a deadline,
// normalization, write-through.
type Orchestrator struct {
	class  string
	store  *cache.Store
	queue  *async.ProcessQueue
	pool   *workerpool.Pool
	reader Reader
	jobs   JobRecorder

	timeout time.Duration
	pacing  time.Duration
	logger  *slog.Logger
}

func NewOrchestrator(class string, d OrchestratorDeps) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		class:   class,
		store:   d.Store,
		queue:   d.Queue,
		pool:    d.Pool,
		reader:  d.Reader,
		jobs:    d.Jobs,
		timeout: d.Timeout,
		pacing:  d.PacingDelay,
		logger:  logger.With("class", class),
	}
}

// Extract never returns an error: every failure becomes part of the Outcome.
// languages is ignored for PDFs.
func (o *Orchestrator) Extract(ctx context.Context, path string, languages []string) Outcome {
	if e, ok := o.store.Read(ctx, path); ok {
		if e.Poisoned() {
			o.logger.Debug("poisoned cache hit", "path", path, "failure", e.Failure)
			return Outcome{Kind: KindFailed, Cached: true, Err: fmt.Errorf("%w: %s", common.ErrExtractionFailure, e.Failure)}
		}
		o.logger.Debug("cache hit", "path", path)
		return Outcome{Kind: KindOK, Text: e.Text, Cached: true}
	}

	if !o.pool.Available() {
		o.logger.Warn("isolated extraction unavailable, skipping", "path", path)
		return Outcome{Kind: KindUnavailable, Err: common.ErrPlatformUnsupported}
	}

	if o.class == constants.PDF {
		languages = []string{}
	}
	job := entity.NewExtractJob(o.class, path, languages)
	o.record(ctx, job)
	o.logger.Info("extraction queued", "path", path, "job_id", job.ID,
		"queue_running", o.queue.Running(), "queue_waiting", o.queue.Waiting())

	var text string
	err := o.queue.Add(ctx, func(ctx context.Context) error {
		job.Start()
		o.record(ctx, job)
		t, workerID, err := o.dispatch(ctx, job)
		job.WorkerID = workerID
		text = t
		return err
	})

	// persist results even if the caller stops waiting right now
	wctx := context.WithoutCancel(ctx)
	if err != nil {
		status := constants.JobStatusFailed
		if errors.Is(err, common.ErrExtractionTimeout) {
			status = constants.JobStatusTimedOut
		}
		job.Finish(status, 0, err.Error())
		o.record(wctx, job)

		if ctx.Err() != nil || errors.Is(err, async.ErrQueueClosed) {
			// the document itself did not fail
			o.logger.Info("extraction abandoned", "path", path, "job_id", job.ID, "error", err)
			return Outcome{Kind: KindFailed, Err: err}
		}
		o.logger.Warn("extraction failed, writing poison entry", "path", path, "job_id", job.ID, "status", status, "error", err)
		_ = o.store.Write(wctx, cache.ComputeKey(path), cache.Entry{
			SourcePath: path,
			Languages:  languages,
			Failure:    err.Error(),
		})
		o.pace(ctx)
		return Outcome{Kind: KindFailed, Err: err}
	}

	job.Finish(constants.JobStatusSucceeded, len(text), "")
	o.record(wctx, job)
	o.logger.Info("extraction succeeded", "path", path, "job_id", job.ID, "worker_id", job.WorkerID,
		"chars", len(text), "duration_ms", job.Duration().Milliseconds())

	// a failed write only costs a re-extraction next time
	_ = o.store.Write(wctx, cache.ComputeKey(path), cache.Entry{
		SourcePath: path,
		Text:       text,
		Languages:  languages,
	})
	o.pace(ctx)
	return Outcome{Kind: KindOK, Text: text}
}

// dispatch reads the document, runs it on a worker and normalizes the output.
func (o *Orchestrator) dispatch(ctx context.Context, job *entity.ExtractJob) (string, string, error) {
	data, err := o.reader.ReadBytes(ctx, job.SourcePath)
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", job.SourcePath, err)
	}

	w, err := o.pool.Acquire(ctx)
	if err != nil {
		return "", "", err
	}
	resp, err := o.pool.Run(ctx, w, workerpool.Request{
		ID:        job.ID.String(),
		Kind:      o.class,
		Name:      job.SourcePath,
		Data:      data,
		Languages: job.Languages,
	}, o.timeout)
	if err != nil {
		return "", w.ID, err
	}

	if o.class == constants.PDF {
		return ocr.JoinPages(resp.Pages), w.ID, nil
	}
	return ocr.NormalizeText(resp.Text), w.ID, nil
}

func (o *Orchestrator) record(ctx context.Context, job *entity.ExtractJob) {
	if o.jobs == nil {
		return
	}
	if err := o.jobs.Record(ctx, *job); err != nil {
		o.logger.Warn("failed to record job", "job_id", job.ID, "status", job.Status, "error", err)
	}
}

// pace holds the result back for the configured delay.
func (o *Orchestrator) pace(ctx context.Context) {
	if o.pacing <= 0 {
		return
	}
	t := time.NewTimer(o.pacing)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
