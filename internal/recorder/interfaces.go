package recorder

import (
	"context"
	"time"
)

// Recorder performs the actual capture for one job. A nil error means the
// recording was written to job.OutputPath; any error is recorded as that
// job's failure and never aborts the surrounding batch.
type Recorder interface {
	Record(ctx context.Context, job JobContext) error
}

// RecorderFunc adapts a plain function to the Recorder interface.
type RecorderFunc func(ctx context.Context, job JobContext) error

// Record invokes the wrapped function.
func (f RecorderFunc) Record(ctx context.Context, job JobContext) error {
	return f(ctx, job)
}

// Prober checks a URL is worth recording before the capture starts.
type Prober interface {
	Probe(ctx context.Context, rawURL string) error
}

// Clock returns the current time (swappable in tests).
type Clock interface {
	Now() time.Time
}
