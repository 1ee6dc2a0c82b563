package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/webreel/webreel/internal/recorder"
	"github.com/webreel/webreel/internal/store"
)

func testBatch(t *testing.T) store.Batch {
	t.Helper()
	id, err := uuid.Parse("0191d4e0-0000-7000-8000-000000000001")
	require.NoError(t, err)
	submitted := time.Unix(1700000000, 0).UTC()
	finished := submitted.Add(90 * time.Second)
	return store.Batch{
		ID:          id,
		Status:      store.BatchStatusCompleted,
		Submitted:   submitted,
		Finished:    &finished,
		URLs:        []string{"https://a.example", "https://b.example"},
		Concurrency: 2,
		OutputDir:   "/out",
		Results: recorder.BatchResult{
			{URL: "https://a.example", OutputPath: "/out/001-a-example.mp4", Index: 0, Success: true, Duration: 30 * time.Second},
			{URL: "https://b.example", OutputPath: "/out/002-b-example.mp4", Index: 1, Success: false, ErrorText: "ffmpeg exited 1", Duration: 2 * time.Second},
		},
	}
}

func TestSaveBatch_InsertsBatchAndRecordings(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	batch := testBatch(t)
	errText := "ffmpeg exited 1"

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO batches").
		WithArgs(
			batch.ID,
			batch.Submitted,
			batch.Finished,
			"completed",
			"/out",
			2,
			2,
			1,
			1,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO recordings").
		WithArgs(batch.ID, 0, "https://a.example", "/out/001-a-example.mp4", true, (*string)(nil), int64(30000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO recordings").
		WithArgs(batch.ID, 1, "https://b.example", "/out/002-b-example.mp4", false, &errText, int64(2000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	s := NewBatchStoreWithPool(mock)
	require.NoError(t, s.SaveBatch(context.Background(), batch))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveBatch_RollsBackOnInsertFailure(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	batch := testBatch(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO batches").
		WithArgs(
			batch.ID,
			batch.Submitted,
			batch.Finished,
			"completed",
			"/out",
			2,
			2,
			1,
			1,
		).
		WillReturnError(errors.New("relation does not exist"))
	mock.ExpectRollback()

	s := NewBatchStoreWithPool(mock)
	err = s.SaveBatch(context.Background(), batch)
	require.Error(t, err)
	require.Contains(t, err.Error(), "insert batch row")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewBatchStore_RequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewBatchStore(context.Background(), "")
	require.Error(t, err)
}
