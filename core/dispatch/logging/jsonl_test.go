package logging

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJSONLStore_AppendQuery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dispatch.jsonl")
	store, err := NewJSONLStore(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Append(ctx, LogRecord{Timestamp: base, RunID: "r1", JobID: "job_1", RobotID: 1, Reason: "baseline_edf_nearest", SimTimeS: 0}))
	require.NoError(t, store.Append(ctx, LogRecord{Timestamp: base.Add(time.Minute), RunID: "r1", JobID: "job_2", RobotID: 2, Reason: "ga_planned", SimTimeS: 60}))
	require.NoError(t, store.Append(ctx, LogRecord{Timestamp: base.Add(2 * time.Minute), RunID: "r2", JobID: "job_3", RobotID: 1, Reason: "baseline_edf_nearest", SimTimeS: 0}))

	byRun, err := store.Query(ctx, LogQuery{RunID: "r1"})
	require.NoError(t, err)
	require.Len(t, byRun, 2)

	byRobot, err := store.Query(ctx, LogQuery{RobotID: 1})
	require.NoError(t, err)
	require.Len(t, byRobot, 2)

	byReason, err := store.Query(ctx, LogQuery{Reason: "ga_planned"})
	require.NoError(t, err)
	require.Len(t, byReason, 1)
	require.Equal(t, "job_2", byReason[0].JobID)

	byWindow, err := store.Query(ctx, LogQuery{Start: base.Add(90 * time.Second)})
	require.NoError(t, err)
	require.Len(t, byWindow, 1)
	require.Equal(t, "job_3", byWindow[0].JobID)
}
