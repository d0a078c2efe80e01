package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 10, 19, 9, 0, 0, 123, time.UTC)

func TestBeginFinishRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id, err := s.BeginRun(ctx, KindExport, t0)
	require.NoError(t, err)
	assert.Equal(t, "run-a", id)

	runs, err := s.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, StatusRunning, runs[0].Status)
	assert.True(t, runs[0].FinishedAt.IsZero())

	err = s.FinishRun(ctx, id, Outcome{
		Status:        StatusSucceeded,
		FinishedAt:    t0.Add(time.Second),
		Slots:         3,
		Files:         2,
		ArchiveDigest: "abc",
	})
	require.NoError(t, err)

	run, ok, err := s.LastSuccess(ctx, KindExport)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, id, run.ID)
	assert.True(t, run.StartedAt.Equal(t0), "nanosecond precision survives storage")
	assert.True(t, run.FinishedAt.Equal(t0.Add(time.Second)))
	assert.Equal(t, 3, run.Slots)
	assert.Equal(t, 2, run.Files)
	assert.Equal(t, "abc", run.ArchiveDigest)
}

func TestFinishRun_Twice(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id, err := s.BeginRun(ctx, KindImport, t0)
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, id, Outcome{Status: StatusFailed, FinishedAt: t0}))

	err = s.FinishRun(ctx, id, Outcome{Status: StatusSucceeded, FinishedAt: t0})
	assert.ErrorIs(t, err, ErrRunNotFound)

	err = s.FinishRun(ctx, "missing", Outcome{Status: StatusSucceeded, FinishedAt: t0})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestFinishRun_RejectsRunningStatus(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id, err := s.BeginRun(ctx, KindExport, t0)
	require.NoError(t, err)
	assert.Error(t, s.FinishRun(ctx, id, Outcome{Status: StatusRunning}))
}

func TestFinishRun_RejectsUnknownStatus(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	id, err := s.BeginRun(ctx, KindExport, t0)
	require.NoError(t, err)
	assert.Error(t, s.FinishRun(ctx, id, Outcome{Status: RunStatus("skipped"), FinishedAt: t0}))
}

func TestLastSuccess_IgnoresFailuresAndOtherKinds(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, ok, err := s.LastSuccess(ctx, KindExport)
	require.NoError(t, err)
	assert.False(t, ok)

	finish := func(kind RunKind, at time.Time, status RunStatus) string {
		id, err := s.BeginRun(ctx, kind, at)
		require.NoError(t, err)
		require.NoError(t, s.FinishRun(ctx, id, Outcome{Status: status, FinishedAt: at}))
		return id
	}

	good := finish(KindExport, t0, StatusSucceeded)
	finish(KindExport, t0.Add(time.Hour), StatusFailed)
	finish(KindImport, t0.Add(2*time.Hour), StatusSucceeded)
	_, err = s.BeginRun(ctx, KindExport, t0.Add(3*time.Hour)) // still running
	require.NoError(t, err)

	run, ok, err := s.LastSuccess(ctx, KindExport)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, good, run.ID)
}

func TestLastSuccess_OrdersBySeqNotTime(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first, err := s.BeginRun(ctx, KindExport, t0)
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, first, Outcome{Status: StatusSucceeded, FinishedAt: t0}))

	// Clock went backwards between runs.
	second, err := s.BeginRun(ctx, KindExport, t0.Add(-time.Hour))
	require.NoError(t, err)
	require.NoError(t, s.FinishRun(ctx, second, Outcome{Status: StatusSucceeded, FinishedAt: t0}))

	run, _, err := s.LastSuccess(ctx, KindExport)
	require.NoError(t, err)
	assert.Equal(t, second, run.ID)
}

func TestRecentRuns_Limit(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	for i := 0; i < 5; i++ {
		_, err := s.BeginRun(ctx, KindImport, t0.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
	}

	runs, err := s.RecentRuns(ctx, 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"run-e", "run-d", "run-c"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
}

func TestUUIDv7Generator(t *testing.T) {
	id := UUIDv7Generator{}.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestBeginRun_RejectsUnknownKind(t *testing.T) {
	s := createTestStore(t)
	_, err := s.BeginRun(context.Background(), RunKind("sync"), t0)
	assert.Error(t, err)
}
