// Package store defines the batch persistence model shared by the memory
// and Postgres implementations.
package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/webreel/webreel/internal/recorder"
)

// BatchStatus represents the lifecycle state of a submitted batch.
type BatchStatus string

// Batch status values.
const (
	BatchStatusQueued    BatchStatus = "queued"
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
	BatchStatusFailed    BatchStatus = "failed"
)

// Batch is the metadata kept for each batch run.
type Batch struct {
	ID          uuid.UUID            `json:"id"`
	Status      BatchStatus          `json:"status"`
	Submitted   time.Time            `json:"submitted_at"`
	Started     *time.Time           `json:"started_at,omitempty"`
	Finished    *time.Time           `json:"finished_at,omitempty"`
	URLs        []string             `json:"urls"`
	Concurrency int                  `json:"concurrency"`
	OutputDir   string               `json:"output_dir"`
	ErrorText   string               `json:"error_text,omitempty"`
	Results     recorder.BatchResult `json:"results,omitempty"`
}
