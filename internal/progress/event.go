// Package progress defines the event stream emitted while a batch runs and
// the hub that fans events out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone an Event represents.
type Stage string

// Supported progress stages.
const (
	StageBatchStart Stage = "BATCH_START"
	StageBatchDone  Stage = "BATCH_DONE"
	StageJobStart   Stage = "JOB_START"
	StageJobDone    Stage = "JOB_DONE"
	StageJobError   Stage = "JOB_ERROR"
)

// SequentialWorker marks events from the sequential runner, which has no
// pool worker identity.
const SequentialWorker = -1

// Event captures a single batch or job milestone.
type Event struct {
	// BatchID identifies the batch run the event belongs to.
	BatchID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage is the milestone being reported.
	Stage Stage
	// URL is the job's target; empty for batch-level stages.
	URL string
	// JobIndex is the job's original input position; -1 for batch stages.
	JobIndex int
	// WorkerID is the pool worker handling the job, or SequentialWorker.
	WorkerID int
	// Dur carries recording latency for job completions and total wall
	// time for batch completion.
	Dur time.Duration
	// Note holds low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.BatchID == uuid.Nil {
		return errors.New("batch id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageBatchStart, StageBatchDone:
	case StageJobStart, StageJobDone, StageJobError:
		if e.URL == "" {
			return fmt.Errorf("%s requires a url", e.Stage)
		}
		if e.JobIndex < 0 {
			return fmt.Errorf("%s requires a job index", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
