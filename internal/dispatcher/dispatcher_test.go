package dispatcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	queuememory "github.com/webreel/webreel/internal/queue/memory"
	"github.com/webreel/webreel/internal/recorder"
	"github.com/webreel/webreel/internal/store"
	storememory "github.com/webreel/webreel/internal/store/memory"
)

type fakeRecorder struct {
	mu     sync.Mutex
	urls   []string
	failOn map[string]error
}

func (f *fakeRecorder) Record(_ context.Context, job recorder.JobContext) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, job.URL)
	return f.failOn[job.URL]
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func TestDispatcher_RunsQueuedBatchToCompletion(t *testing.T) {
	t.Parallel()

	q := queuememory.NewQueue(4)
	batches := storememory.New()
	rec := &fakeRecorder{failOn: map[string]error{"https://b.example": errors.New("boom")}}
	clock := fixedClock{now: time.Unix(100, 0).UTC()}

	d := New(q, batches, rec, nil, nil, nil, clock, Config{OutputDir: t.TempDir()}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	id := uuid.New()
	batches.Create(store.Batch{ID: id, Status: store.BatchStatusQueued, Submitted: clock.Now(),
		URLs: []string{"https://a.example", "https://b.example"}, Concurrency: 2})
	require.NoError(t, d.Enqueue(ctx, queuememory.BatchItem{
		BatchID:     id,
		URLs:        []string{"https://a.example", "https://b.example"},
		Concurrency: 2,
	}))

	require.Eventually(t, func() bool {
		got, err := batches.Get(id)
		return err == nil && got.Status == store.BatchStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	got, err := batches.Get(id)
	require.NoError(t, err)
	require.Len(t, got.Results, 2)
	require.Equal(t, "https://a.example", got.Results[0].URL)
	require.True(t, got.Results[0].Success)
	require.False(t, got.Results[1].Success)
	cancel()
}

func TestDispatcher_SequentialWhenConcurrencyOne(t *testing.T) {
	t.Parallel()

	q := queuememory.NewQueue(4)
	batches := storememory.New()
	rec := &fakeRecorder{}
	d := New(q, batches, rec, nil, nil, nil, fixedClock{now: time.Now()}, Config{OutputDir: t.TempDir()}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	id := uuid.New()
	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	batches.Create(store.Batch{ID: id, Status: store.BatchStatusQueued, URLs: urls, Concurrency: 1})
	require.NoError(t, d.Enqueue(ctx, queuememory.BatchItem{BatchID: id, URLs: urls, Concurrency: 1}))

	require.Eventually(t, func() bool {
		got, err := batches.Get(id)
		return err == nil && got.Status == store.BatchStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	// sequential mode invokes the recorder in strict input order
	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Equal(t, urls, rec.urls)
}
