// Package memory provides an in-memory batch store for the API server.
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/webreel/webreel/internal/recorder"
	"github.com/webreel/webreel/internal/store"
)

// ErrNotFound indicates the batch id is unknown.
var ErrNotFound = errors.New("batch not found")

// BatchStore keeps batches in memory, keyed by id.
type BatchStore struct {
	mu      sync.RWMutex
	batches map[uuid.UUID]store.Batch
}

// New returns an empty BatchStore.
func New() *BatchStore {
	return &BatchStore{batches: make(map[uuid.UUID]store.Batch)}
}

// Create registers a queued batch.
func (s *BatchStore) Create(batch store.Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[batch.ID] = batch
}

// MarkRunning flips the batch to running and stamps its start time.
func (s *BatchStore) MarkRunning(id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok {
		return ErrNotFound
	}
	batch.Status = store.BatchStatusRunning
	batch.Started = &at
	s.batches[id] = batch
	return nil
}

// Complete stores the results and final status.
func (s *BatchStore) Complete(id uuid.UUID, results recorder.BatchResult, errText string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok {
		return ErrNotFound
	}
	if errText != "" {
		batch.Status = store.BatchStatusFailed
		batch.ErrorText = errText
	} else {
		batch.Status = store.BatchStatusCompleted
	}
	batch.Results = results
	batch.Finished = &at
	s.batches[id] = batch
	return nil
}

// Get returns a copy of the batch.
func (s *BatchStore) Get(id uuid.UUID) (store.Batch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	batch, ok := s.batches[id]
	if !ok {
		return store.Batch{}, ErrNotFound
	}
	results := make(recorder.BatchResult, len(batch.Results))
	copy(results, batch.Results)
	batch.Results = results
	return batch, nil
}
