package db

import (
	"context"
	"database/sql"
)

// RunSummary is the row shape returned for a single run lookup.
type RunSummary struct {
	RunID       string
	Mode        string
	Seed        int64
	Scale       string
	StartedAt   int64
	CompletedAt sql.NullInt64
	Failed      bool
	FailReason  string
	Metrics     *RunMetrics
}

func (s *Store) GetRun(ctx context.Context, runID string) (*RunSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, mode, seed, scale, started_at, completed_at, failed, fail_reason FROM runs WHERE run_id = ?`,
		runID)
	var out RunSummary
	if err := row.Scan(&out.RunID, &out.Mode, &out.Seed, &out.Scale, &out.StartedAt, &out.CompletedAt, &out.Failed, &out.FailReason); err != nil {
		return nil, err
	}

	mrow := s.db.QueryRowContext(ctx,
		`SELECT on_time_rate, total_distance, avg_completion_time, max_lateness, jobs_completed, jobs_failed
		 FROM run_metrics WHERE run_id = ?`, runID)
	var mx RunMetrics
	if err := mrow.Scan(&mx.OnTimeRate, &mx.TotalDistance, &mx.AvgCompletionTime, &mx.MaxLateness, &mx.JobsCompleted, &mx.JobsFailed); err == nil {
		out.Metrics = &mx
	}
	return &out, nil
}

// JobRow is one row of the jobs table, exported for CSV/JSON dumps.
type JobRow struct {
	JobID            string
	Priority         int
	DeadlineTS       float64
	AssignedRobotID  int
	AssignReason     string
	State            string
	TerminalSimTimeS float64
	LatenessS        float64
}

// ListJobs returns every job row recorded for runID, ordered by job_id.
func (s *Store) ListJobs(ctx context.Context, runID string) ([]JobRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id, priority, deadline_ts,
		        COALESCE(assigned_robot_id, 0), COALESCE(assign_reason, ''),
		        state, COALESCE(terminal_sim_time_s, 0), COALESCE(lateness_s, 0)
		 FROM jobs WHERE run_id = ? ORDER BY job_id`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []JobRow
	for rows.Next() {
		var r JobRow
		if err := rows.Scan(&r.JobID, &r.Priority, &r.DeadlineTS, &r.AssignedRobotID, &r.AssignReason, &r.State, &r.TerminalSimTimeS, &r.LatenessS); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetLatestRunMetricsByMode finds the most recently completed run's metrics
// for a given seed/scale/mode, used by the baseline-vs-GA comparison
// endpoint. Returns nil, nil if no matching run has completed.
func (s *Store) GetLatestRunMetricsByMode(ctx context.Context, seed int64, scale, mode string) (*RunSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT r.run_id, r.mode, r.seed, r.scale, r.started_at, r.completed_at, r.failed, r.fail_reason
		 FROM runs r WHERE r.seed = ? AND r.scale = ? AND r.mode = ? AND r.completed_at IS NOT NULL
		 ORDER BY r.completed_at DESC LIMIT 1`, seed, scale, mode)
	var out RunSummary
	if err := row.Scan(&out.RunID, &out.Mode, &out.Seed, &out.Scale, &out.StartedAt, &out.CompletedAt, &out.Failed, &out.FailReason); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	mrow := s.db.QueryRowContext(ctx,
		`SELECT on_time_rate, total_distance, avg_completion_time, max_lateness, jobs_completed, jobs_failed
		 FROM run_metrics WHERE run_id = ?`, out.RunID)
	var mx RunMetrics
	if err := mrow.Scan(&mx.OnTimeRate, &mx.TotalDistance, &mx.AvgCompletionTime, &mx.MaxLateness, &mx.JobsCompleted, &mx.JobsFailed); err == nil {
		out.Metrics = &mx
	}
	return &out, nil
}
