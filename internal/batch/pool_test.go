package batch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/webreel/webreel/internal/recorder"
)

// trackingRecorder observes worker interleaving: peak concurrency, claimed
// indexes, and which worker resources were live at the same time.
type trackingRecorder struct {
	mu        sync.Mutex
	active    int
	maxActive int
	activeRes map[string]struct{}
	claims    []int
	overlap   bool // two live workers shared a sink name
	failOn    map[int]error
	delay     time.Duration
}

func newTrackingRecorder(delay time.Duration, failOn map[int]error) *trackingRecorder {
	return &trackingRecorder{
		activeRes: make(map[string]struct{}),
		failOn:    failOn,
		delay:     delay,
	}
}

func (f *trackingRecorder) Record(_ context.Context, job recorder.JobContext) error {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.claims = append(f.claims, job.Index)
	sink := ""
	if job.Worker != nil {
		sink = job.Worker.SinkName
		if _, exists := f.activeRes[sink]; exists {
			f.overlap = true
		}
		f.activeRes[sink] = struct{}{}
	}
	err := f.failOn[job.Index]
	f.mu.Unlock()

	time.Sleep(f.delay)

	f.mu.Lock()
	f.active--
	if sink != "" {
		delete(f.activeRes, sink)
	}
	f.mu.Unlock()
	return err
}

func TestRunParallel_OrderMatchesInputForAnyConcurrency(t *testing.T) {
	t.Parallel()

	urls := make([]string, 9)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%d.example/page", i)
	}

	for concurrency := 1; concurrency <= len(urls); concurrency++ {
		t.Run(fmt.Sprintf("concurrency_%d", concurrency), func(t *testing.T) {
			t.Parallel()

			rec := &fakeRecorder{delay: 5 * time.Millisecond, jitter: true}
			outDir := filepath.Join(t.TempDir(), "recordings")
			r := NewRunner(rec, nil, nil, nil, Config{OutputDir: outDir}, zap.NewNop())

			results, err := r.RunParallel(context.Background(), urls, concurrency)
			require.NoError(t, err)
			require.Len(t, results, len(urls))
			for i, res := range results {
				require.Equal(t, urls[i], res.URL, "slot %d holds the wrong url", i)
				require.Equal(t, i, res.Index)
				require.Equal(t, recorder.DeriveOutputPath(urls[i], i, outDir), res.OutputPath)
			}
		})
	}
}

func TestRunParallel_EveryIndexClaimedExactlyOnce(t *testing.T) {
	t.Parallel()

	urls := make([]string, 20)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%d.example", i)
	}
	rec := newTrackingRecorder(2*time.Millisecond, nil)
	r := NewRunner(rec, nil, nil, nil, Config{OutputDir: t.TempDir()}, zap.NewNop())

	_, err := r.RunParallel(context.Background(), urls, 4)
	require.NoError(t, err)

	seen := make(map[int]int)
	for _, idx := range rec.claims {
		seen[idx]++
	}
	require.Len(t, seen, len(urls))
	for idx, count := range seen {
		require.Equal(t, 1, count, "index %d claimed %d times", idx, count)
	}
}

func TestRunParallel_ConcurrencyCapHonored(t *testing.T) {
	t.Parallel()

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%d.example", i)
	}
	rec := newTrackingRecorder(10*time.Millisecond, nil)
	r := NewRunner(rec, nil, nil, nil, Config{OutputDir: t.TempDir()}, zap.NewNop())

	_, err := r.RunParallel(context.Background(), urls, 3)
	require.NoError(t, err)
	require.LessOrEqual(t, rec.maxActive, 3)
}

func TestRunParallel_WorkerResourcesNeverCollide(t *testing.T) {
	t.Parallel()

	urls := make([]string, 16)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%d.example", i)
	}
	rec := newTrackingRecorder(5*time.Millisecond, nil)
	r := NewRunner(rec, nil, nil, nil, Config{OutputDir: t.TempDir()}, zap.NewNop())

	_, err := r.RunParallel(context.Background(), urls, 4)
	require.NoError(t, err)
	require.False(t, rec.overlap, "two concurrently live workers shared a sink")
}

func TestRunParallel_WorkerCountCappedByBatchSize(t *testing.T) {
	t.Parallel()

	urls := []string{"https://a.example", "https://b.example"}
	rec := &fakeRecorder{delay: 5 * time.Millisecond}
	r := NewRunner(rec, nil, nil, nil, Config{OutputDir: t.TempDir()}, zap.NewNop())

	results, err := r.RunParallel(context.Background(), urls, 8)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, call := range rec.recorded() {
		require.NotNil(t, call.Worker)
		require.Less(t, call.Worker.ID, len(urls))
	}
}

func TestRunParallel_LabelsAndResources(t *testing.T) {
	t.Parallel()

	urls := []string{"https://a.example", "https://b.example", "https://c.example"}
	rec := &fakeRecorder{}
	r := NewRunner(rec, nil, nil, nil, Config{OutputDir: t.TempDir()}, zap.NewNop())

	_, err := r.RunParallel(context.Background(), urls, 2)
	require.NoError(t, err)

	for _, call := range rec.recorded() {
		require.NotNil(t, call.Worker)
		require.True(t, call.Parallel())
		require.Equal(t, fmt.Sprintf("[W%d|%d/%d]", call.Worker.ID, call.Index+1, len(urls)), call.Label)
		require.Equal(t, 99+call.Worker.ID*10, call.Worker.DisplayStart)
		require.Equal(t, fmt.Sprintf("recording_sink_%d", call.Worker.ID), call.Worker.SinkName)
	}
}

func TestRunParallel_OneFailureAmongFive(t *testing.T) {
	t.Parallel()

	urls := make([]string, 5)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%d.example", i)
	}
	rec := newTrackingRecorder(2*time.Millisecond, map[int]error{2: errors.New("display went away")})
	r := NewRunner(rec, nil, nil, nil, Config{OutputDir: t.TempDir()}, zap.NewNop())

	results, err := r.RunParallel(context.Background(), urls, 2)
	require.NoError(t, err)
	require.Len(t, results, 5)

	succeeded, failed := results.Counts()
	require.Equal(t, 4, succeeded)
	require.Equal(t, 1, failed)
	for i, res := range results {
		require.Equal(t, urls[i], res.URL)
		require.Equal(t, i == 2, !res.Success)
	}
}

func TestRunParallel_PanicInOneWorkerLeavesOthersRunning(t *testing.T) {
	t.Parallel()

	urls := make([]string, 6)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site-%d.example", i)
	}
	rec := &fakeRecorder{panicOn: map[int]bool{3: true}}
	r := NewRunner(rec, nil, nil, nil, Config{OutputDir: t.TempDir()}, zap.NewNop())

	results, err := r.RunParallel(context.Background(), urls, 3)
	require.NoError(t, err)
	require.Len(t, results, 6)
	succeeded, failed := results.Counts()
	require.Equal(t, 5, succeeded)
	require.Equal(t, 1, failed)
	require.Contains(t, results[3].ErrorText, "recorder panic")
}
