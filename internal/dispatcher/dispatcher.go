// Package dispatcher drains the batch queue and runs each batch through a
// fresh runner.
package dispatcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/batch"
	"github.com/webreel/webreel/internal/progress"
	queuememory "github.com/webreel/webreel/internal/queue/memory"
	"github.com/webreel/webreel/internal/recorder"
	storememory "github.com/webreel/webreel/internal/store/memory"
)

// Config carries the settings applied to every dispatched batch.
type Config struct {
	OutputDir string
	Options   recorder.CaptureOptions
}

// Dispatcher consumes queued batches one at a time. The per-batch worker
// pool provides all intra-batch concurrency; batches themselves run
// serially so worker display/sink allocations never span two batches.
type Dispatcher struct {
	queue   *queuememory.Queue
	batches *storememory.BatchStore
	rec     recorder.Recorder
	prober  recorder.Prober
	emitter progress.Emitter
	hooks   []batch.Hook
	clock   recorder.Clock
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Dispatcher. prober, emitter, and hooks may be nil.
func New(
	queue *queuememory.Queue,
	batches *storememory.BatchStore,
	rec recorder.Recorder,
	prober recorder.Prober,
	emitter progress.Emitter,
	hooks []batch.Hook,
	clock recorder.Clock,
	cfg Config,
	logger *zap.Logger,
) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		queue:   queue,
		batches: batches,
		rec:     rec,
		prober:  prober,
		emitter: emitter,
		hooks:   hooks,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run blocks, consuming queued batches until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		item, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		d.processBatch(ctx, item)
	}
}

func (d *Dispatcher) processBatch(ctx context.Context, item queuememory.BatchItem) {
	if err := d.batches.MarkRunning(item.BatchID, d.clock.Now()); err != nil {
		d.logger.Error("mark batch running failed",
			zap.String("batch_id", item.BatchID.String()),
			zap.Error(err),
		)
		return
	}
	d.logger.Info("batch started",
		zap.String("batch_id", item.BatchID.String()),
		zap.Int("urls", len(item.URLs)),
		zap.Int("concurrency", item.Concurrency),
	)

	runner := batch.NewRunner(d.rec, d.prober, d.emitter, d.hooks, batch.Config{
		BatchID:   item.BatchID,
		OutputDir: d.outputDirFor(item),
		Options:   d.cfg.Options,
	}, d.logger)

	var results recorder.BatchResult
	var err error
	if item.Concurrency > 1 {
		results, err = runner.RunParallel(ctx, item.URLs, item.Concurrency)
	} else {
		results, err = runner.RunSequential(ctx, item.URLs)
	}

	errText := ""
	if err != nil {
		errText = err.Error()
		d.logger.Error("batch aborted", zap.String("batch_id", item.BatchID.String()), zap.Error(err))
	}
	if err := d.batches.Complete(item.BatchID, results, errText, d.clock.Now()); err != nil {
		d.logger.Error("complete batch failed",
			zap.String("batch_id", item.BatchID.String()),
			zap.Error(err),
		)
	}
}

// outputDirFor gives each submitted batch its own directory so two batches
// with overlapping URL lists never clobber each other's files.
func (d *Dispatcher) outputDirFor(item queuememory.BatchItem) string {
	return fmt.Sprintf("%s/%s", d.cfg.OutputDir, item.BatchID.String())
}

// Enqueue proxies to the underlying queue with a short admission timeout so
// HTTP handlers fail fast when the queue is saturated.
func (d *Dispatcher) Enqueue(ctx context.Context, item queuememory.BatchItem) error {
	admitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := d.queue.Enqueue(admitCtx, item); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
