// Package recorder defines core types shared across the recording pipeline.
package recorder

import (
	"fmt"
	"time"
)

// Worker-exclusive X displays start at :99 and are spaced ten apart so a
// worker's Xvfb server never collides with a neighbor's.
const (
	displayBase   = 99
	displayStride = 10
)

// CaptureOptions carries the per-batch settings handed to every recording.
type CaptureOptions struct {
	Duration  time.Duration `json:"duration"`
	Width     int           `json:"width"`
	Height    int           `json:"height"`
	Framerate int           `json:"framerate"`
	UserAgent string        `json:"user_agent"`
}

// Job is one URL's unit of work, tagged with its position in the input list.
type Job struct {
	URL   string
	Index int
}

// WorkerResources names the display and audio sink a pool worker owns for
// its whole lifetime. Allocation is a pure function of the worker id, so no
// two live workers ever share a display or a sink.
type WorkerResources struct {
	ID           int
	DisplayStart int
	SinkName     string
}

// ResourcesForWorker derives the resource slots for a 0-based worker id.
func ResourcesForWorker(id int) WorkerResources {
	return WorkerResources{
		ID:           id,
		DisplayStart: displayBase + id*displayStride,
		SinkName:     fmt.Sprintf("recording_sink_%d", id),
	}
}

// JobContext is everything a Recorder needs for one job. Worker is nil when
// the job runs in sequential mode; a non-nil Worker carries the pool
// worker's exclusive capture resources.
type JobContext struct {
	URL        string
	OutputPath string
	Label      string
	Index      int
	Total      int
	Options    CaptureOptions
	Worker     *WorkerResources
}

// Parallel reports whether the job is executing under the worker pool.
func (c JobContext) Parallel() bool {
	return c.Worker != nil
}

// JobResult is the outcome of one recording attempt. On success the
// recording has been written to OutputPath.
type JobResult struct {
	URL        string        `json:"url"`
	OutputPath string        `json:"output_path"`
	Index      int           `json:"index"`
	Success    bool          `json:"success"`
	ErrorText  string        `json:"error_text,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// BatchResult is the ordered collection of per-job outcomes. Position i
// always corresponds to input URL i, regardless of execution mode or
// completion order.
type BatchResult []JobResult

// Counts tallies successes and failures across the batch.
func (b BatchResult) Counts() (succeeded, failed int) {
	for _, res := range b {
		if res.Success {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
