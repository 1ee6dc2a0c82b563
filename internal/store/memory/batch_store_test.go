package memory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/webreel/webreel/internal/recorder"
	"github.com/webreel/webreel/internal/store"
)

func TestBatchStore_Lifecycle(t *testing.T) {
	t.Parallel()

	s := New()
	id := uuid.New()
	now := time.Unix(100, 0).UTC()

	s.Create(store.Batch{ID: id, Status: store.BatchStatusQueued, Submitted: now, URLs: []string{"https://a.example"}})

	started := now.Add(time.Second)
	require.NoError(t, s.MarkRunning(id, started))

	got, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, store.BatchStatusRunning, got.Status)
	require.Equal(t, &started, got.Started)

	finished := now.Add(time.Minute)
	results := recorder.BatchResult{{URL: "https://a.example", Index: 0, Success: true}}
	require.NoError(t, s.Complete(id, results, "", finished))

	got, err = s.Get(id)
	require.NoError(t, err)
	require.Equal(t, store.BatchStatusCompleted, got.Status)
	require.Equal(t, &finished, got.Finished)
	require.Len(t, got.Results, 1)
}

func TestBatchStore_CompleteWithErrorMarksFailed(t *testing.T) {
	t.Parallel()

	s := New()
	id := uuid.New()
	s.Create(store.Batch{ID: id, Status: store.BatchStatusQueued})

	require.NoError(t, s.Complete(id, nil, "output dir unwritable", time.Now()))

	got, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, store.BatchStatusFailed, got.Status)
	require.Equal(t, "output dir unwritable", got.ErrorText)
}

func TestBatchStore_UnknownID(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.Get(uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, s.MarkRunning(uuid.New(), time.Now()), ErrNotFound)
	require.ErrorIs(t, s.Complete(uuid.New(), nil, "", time.Now()), ErrNotFound)
}

func TestBatchStore_GetReturnsResultCopy(t *testing.T) {
	t.Parallel()

	s := New()
	id := uuid.New()
	s.Create(store.Batch{ID: id})
	require.NoError(t, s.Complete(id, recorder.BatchResult{{URL: "https://a.example"}}, "", time.Now()))

	got, err := s.Get(id)
	require.NoError(t, err)
	got.Results[0].URL = "mutated"

	again, err := s.Get(id)
	require.NoError(t, err)
	require.Equal(t, "https://a.example", again.Results[0].URL)
}
