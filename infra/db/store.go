package db

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"
)

// Store owns the SQLite connection materializing runs/run_metrics/jobs/telemetry.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) insertRun(ctx context.Context, runID, mode string, seed int64, scale string, startedAt int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, mode, seed, scale, started_at, failed, fail_reason) VALUES (?, ?, ?, ?, ?, 0, '')
		 ON CONFLICT(run_id) DO NOTHING`,
		runID, mode, seed, scale, startedAt)
	return err
}

func (s *Store) completeRun(ctx context.Context, runID string, completedAt int64, failed bool, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET completed_at = ?, failed = ?, fail_reason = ? WHERE run_id = ?`,
		completedAt, failed, reason, runID)
	return err
}

func (s *Store) upsertRunMetrics(ctx context.Context, runID string, m RunMetrics) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_metrics (run_id, on_time_rate, total_distance, avg_completion_time, max_lateness, jobs_completed, jobs_failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id) DO UPDATE SET
			on_time_rate = excluded.on_time_rate,
			total_distance = excluded.total_distance,
			avg_completion_time = excluded.avg_completion_time,
			max_lateness = excluded.max_lateness,
			jobs_completed = excluded.jobs_completed,
			jobs_failed = excluded.jobs_failed`,
		runID, m.OnTimeRate, m.TotalDistance, m.AvgCompletionTime, m.MaxLateness, m.JobsCompleted, m.JobsFailed)
	return err
}

func (s *Store) insertJobCreated(ctx context.Context, runID, jobID string, pickupX, pickupY, dropoffX, dropoffY float64, priority int, deadlineTS, simTimeS float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO jobs (run_id, job_id, pickup_x, pickup_y, dropoff_x, dropoff_y, priority, deadline_ts, created_sim_time_s, state)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')
		 ON CONFLICT(run_id, job_id) DO NOTHING`,
		runID, jobID, pickupX, pickupY, dropoffX, dropoffY, priority, deadlineTS, simTimeS)
	return err
}

func (s *Store) markJobAssigned(ctx context.Context, runID, jobID string, robotID int, simTimeS float64, reason string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET assigned_robot_id = ?, assigned_sim_time_s = ?, assign_reason = ?, state = 'assigned'
		 WHERE run_id = ? AND job_id = ?`,
		robotID, simTimeS, reason, runID, jobID)
	return err
}

func (s *Store) markJobTerminal(ctx context.Context, runID, jobID, state string, simTimeS, latenessS float64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET state = ?, terminal_sim_time_s = ?, lateness_s = ? WHERE run_id = ? AND job_id = ?`,
		state, simTimeS, latenessS, runID, jobID)
	return err
}

func (s *Store) insertTelemetry(ctx context.Context, runID string, robotID int, simTimeS float64, state string, x, y, battery float64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO telemetry (run_id, robot_id, sim_time_s, state, x, y, battery) VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(run_id, robot_id, sim_time_s) DO NOTHING`,
		runID, robotID, simTimeS, state, x, y, battery)
	return err
}

// RunMetrics mirrors events.RunCompletedMetrics for storage purposes.
type RunMetrics struct {
	OnTimeRate        float64
	TotalDistance     float64
	AvgCompletionTime float64
	MaxLateness       float64
	JobsCompleted     int
	JobsFailed        int
}
