// Package batch implements the sequential runner and the concurrency-limited
// worker pool that drive per-URL recordings.
package batch

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/progress"
	"github.com/webreel/webreel/internal/recorder"
)

// Hook runs after each job completes. Hooks observe results; they cannot
// alter them or abort the batch.
type Hook interface {
	AfterJob(ctx context.Context, result recorder.JobResult)
}

// Config carries the per-batch settings shared by every job.
type Config struct {
	// BatchID tags progress events; a zero value is replaced at
	// construction time.
	BatchID uuid.UUID
	// OutputDir receives the recordings. Created before the first job.
	OutputDir string
	// Options is the capture configuration forwarded to the recorder.
	Options recorder.CaptureOptions
}

// Runner executes a batch of recording jobs against an injected Recorder.
// A single Runner drives one batch; construct a fresh one per run.
type Runner struct {
	rec     recorder.Recorder
	prober  recorder.Prober
	emitter progress.Emitter
	hooks   []Hook
	cfg     Config
	logger  *zap.Logger
}

// NewRunner constructs a Runner. prober, emitter, and hooks may be nil.
func NewRunner(
	rec recorder.Recorder,
	prober recorder.Prober,
	emitter progress.Emitter,
	hooks []Hook,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchID == uuid.Nil {
		cfg.BatchID = uuid.New()
	}
	return &Runner{
		rec:     rec,
		prober:  prober,
		emitter: emitter,
		hooks:   hooks,
		cfg:     cfg,
		logger:  logger,
	}
}

// BatchID returns the identifier tagging this run's progress events.
func (r *Runner) BatchID() uuid.UUID {
	return r.cfg.BatchID
}

// RunSequential records every URL one at a time, strictly in input order.
// A failed job never aborts the batch; only output-directory creation can.
func (r *Runner) RunSequential(ctx context.Context, urls []string) (recorder.BatchResult, error) {
	if err := r.ensureOutputDir(); err != nil {
		return nil, err
	}
	started := time.Now()
	r.emitBatch(progress.StageBatchStart, 0)

	total := len(urls)
	results := make(recorder.BatchResult, 0, total)
	for i, url := range urls {
		job := r.buildContext(url, i, total, nil)
		results = append(results, r.processJob(ctx, job))
	}

	r.emitBatch(progress.StageBatchDone, time.Since(started))
	return results, nil
}

func (r *Runner) ensureOutputDir() error {
	if err := os.MkdirAll(r.cfg.OutputDir, 0o750); err != nil {
		return fmt.Errorf("create output dir %s: %w", r.cfg.OutputDir, err)
	}
	return nil
}

// buildContext assembles the JobContext for one URL. res is nil in
// sequential mode; the pool passes each worker's exclusive resources.
func (r *Runner) buildContext(url string, index, total int, res *recorder.WorkerResources) recorder.JobContext {
	label := fmt.Sprintf("[%d/%d]", index+1, total)
	if res != nil {
		label = fmt.Sprintf("[W%d|%d/%d]", res.ID, index+1, total)
	}
	return recorder.JobContext{
		URL:        url,
		OutputPath: recorder.DeriveOutputPath(url, index, r.cfg.OutputDir),
		Label:      label,
		Index:      index,
		Total:      total,
		Options:    r.cfg.Options,
		Worker:     res,
	}
}

// processJob records one URL and reports the outcome. It never returns an
// error and never panics: recorder failures of every kind end up in the
// JobResult so sibling jobs are unaffected.
func (r *Runner) processJob(ctx context.Context, job recorder.JobContext) recorder.JobResult {
	r.logger.Info("starting recording",
		zap.String("label", job.Label),
		zap.String("url", job.URL),
		zap.String("output", job.OutputPath),
	)
	r.emitJob(progress.StageJobStart, job, 0, "")

	result := r.invoke(ctx, job)

	if result.Success {
		r.logger.Info("recording complete",
			zap.String("label", job.Label),
			zap.String("url", job.URL),
			zap.Duration("dur", result.Duration),
		)
		r.emitJob(progress.StageJobDone, job, result.Duration, "")
	} else {
		r.logger.Warn("recording failed",
			zap.String("label", job.Label),
			zap.String("url", job.URL),
			zap.String("error", result.ErrorText),
		)
		r.emitJob(progress.StageJobError, job, result.Duration, result.ErrorText)
	}

	for _, hook := range r.hooks {
		if hook != nil {
			hook.AfterJob(ctx, result)
		}
	}
	return result
}

// invoke calls the recorder with panic normalization: a panicking recorder
// becomes a failed JobResult instead of tearing down the worker.
func (r *Runner) invoke(ctx context.Context, job recorder.JobContext) (result recorder.JobResult) {
	result = recorder.JobResult{
		URL:        job.URL,
		OutputPath: job.OutputPath,
		Index:      job.Index,
	}
	started := time.Now()
	defer func() {
		result.Duration = time.Since(started)
		if p := recover(); p != nil {
			result.Success = false
			result.ErrorText = fmt.Sprintf("recorder panic: %v", p)
		}
	}()

	if r.prober != nil {
		if err := r.prober.Probe(ctx, job.URL); err != nil {
			result.ErrorText = fmt.Sprintf("preflight: %v", err)
			return result
		}
	}
	if err := r.rec.Record(ctx, job); err != nil {
		result.ErrorText = err.Error()
		return result
	}
	result.Success = true
	return result
}

func (r *Runner) emitBatch(stage progress.Stage, dur time.Duration) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(progress.Event{
		BatchID:  r.cfg.BatchID,
		TS:       time.Now().UTC(),
		Stage:    stage,
		JobIndex: -1,
		WorkerID: progress.SequentialWorker,
		Dur:      dur,
	})
}

func (r *Runner) emitJob(stage progress.Stage, job recorder.JobContext, dur time.Duration, note string) {
	if r.emitter == nil {
		return
	}
	workerID := progress.SequentialWorker
	if job.Worker != nil {
		workerID = job.Worker.ID
	}
	r.emitter.Emit(progress.Event{
		BatchID:  r.cfg.BatchID,
		TS:       time.Now().UTC(),
		Stage:    stage,
		URL:      job.URL,
		JobIndex: job.Index,
		WorkerID: workerID,
		Dur:      dur,
		Note:     note,
	})
}
