package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_PersistQuery(t *testing.T) {
	store, err := NewSQLiteStore("file:dispatch_logging_test?mode=memory&cache=shared")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	rec := LogRecord{
		Timestamp: time.Now(),
		RunID:     "r1",
		JobID:     "job_1",
		RobotID:   1,
		Reason:    "baseline_edf_nearest",
		SimTimeS:  12,
	}
	require.NoError(t, store.Append(ctx, rec))

	out, err := store.Query(ctx, LogQuery{RunID: "r1"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "job_1", out[0].JobID)
	require.Equal(t, 1, out[0].RobotID)

	none, err := store.Query(ctx, LogQuery{RunID: "does-not-exist"})
	require.NoError(t, err)
	require.Empty(t, none)
}
