// Package db materializes the run/job/telemetry event stream into SQLite
// tables an external consumer can query, mirroring spec.md's persistence
// contract without the core packages depending on any storage engine.
package db

import "database/sql"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	mode TEXT,
	seed INTEGER,
	scale TEXT,
	started_at INTEGER,
	completed_at INTEGER,
	failed INTEGER,
	fail_reason TEXT
);

CREATE TABLE IF NOT EXISTS run_metrics (
	run_id TEXT PRIMARY KEY REFERENCES runs(run_id),
	on_time_rate REAL,
	total_distance REAL,
	avg_completion_time REAL,
	max_lateness REAL,
	jobs_completed INTEGER,
	jobs_failed INTEGER
);

CREATE TABLE IF NOT EXISTS jobs (
	run_id TEXT,
	job_id TEXT,
	pickup_x REAL,
	pickup_y REAL,
	dropoff_x REAL,
	dropoff_y REAL,
	priority INTEGER,
	deadline_ts REAL,
	created_sim_time_s REAL,
	assigned_robot_id INTEGER,
	assigned_sim_time_s REAL,
	assign_reason TEXT,
	state TEXT,
	terminal_sim_time_s REAL,
	lateness_s REAL,
	PRIMARY KEY (run_id, job_id)
);

CREATE TABLE IF NOT EXISTS telemetry (
	run_id TEXT,
	robot_id INTEGER,
	sim_time_s REAL,
	state TEXT,
	x REAL,
	y REAL,
	battery REAL,
	PRIMARY KEY (run_id, robot_id, sim_time_s)
);
`

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
