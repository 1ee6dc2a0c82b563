package batch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/progress"
	"github.com/webreel/webreel/internal/recorder"
)

// RunParallel records the URLs with a bounded pool of workers. Workers claim
// jobs from a shared cursor in strictly increasing input order and write
// each outcome into the result slot for the job's original index, so the
// returned BatchResult lines up with the input regardless of completion
// interleaving. Failure semantics match RunSequential: a failed job never
// stops its worker, and no failure cancels sibling workers.
func (r *Runner) RunParallel(ctx context.Context, urls []string, concurrency int) (recorder.BatchResult, error) {
	if concurrency < 1 {
		concurrency = 1
	}
	if err := r.ensureOutputDir(); err != nil {
		return nil, err
	}
	started := time.Now()
	r.emitBatch(progress.StageBatchStart, 0)

	total := len(urls)
	jobs := make([]recorder.Job, total)
	for i, url := range urls {
		jobs[i] = recorder.Job{URL: url, Index: i}
	}
	results := make(recorder.BatchResult, total)

	workers := concurrency
	if total < workers {
		workers = total
	}

	// cursor hands out each index exactly once; workers park on nothing
	// but this counter and their own in-flight recording.
	var cursor atomic.Int64
	var wg sync.WaitGroup
	for id := 0; id < workers; id++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			r.workerLoop(ctx, workerID, jobs, results, &cursor)
		}(id)
	}
	wg.Wait()

	r.emitBatch(progress.StageBatchDone, time.Since(started))
	return results, nil
}

func (r *Runner) workerLoop(
	ctx context.Context,
	workerID int,
	jobs []recorder.Job,
	results recorder.BatchResult,
	cursor *atomic.Int64,
) {
	res := recorder.ResourcesForWorker(workerID)
	r.logger.Debug("worker online",
		zap.Int("worker_id", workerID),
		zap.Int("display_start", res.DisplayStart),
		zap.String("sink", res.SinkName),
	)
	for {
		next := int(cursor.Add(1)) - 1
		if next >= len(jobs) {
			return
		}
		job := jobs[next]
		jobCtx := r.buildContext(job.URL, job.Index, len(jobs), &res)
		results[job.Index] = r.processJob(ctx, jobCtx)
	}
}
