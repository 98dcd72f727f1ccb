package logging

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists logs to a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS dispatch_logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        ts INTEGER,
        run_id TEXT,
        job_id TEXT,
        robot_id INTEGER,
        reason TEXT,
        sim_time_s REAL
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Append writes the record to the database.
func (s *SQLiteStore) Append(ctx context.Context, rec LogRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO dispatch_logs (ts, run_id, job_id, robot_id, reason, sim_time_s) VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Timestamp.Unix(), rec.RunID, rec.JobID, rec.RobotID, rec.Reason, rec.SimTimeS)
	return err
}

// Query returns records matching q, ordered by insertion time.
func (s *SQLiteStore) Query(ctx context.Context, q LogQuery) ([]LogRecord, error) {
	var args []any
	query := `SELECT ts, run_id, job_id, robot_id, reason, sim_time_s FROM dispatch_logs WHERE 1=1`
	if !q.Start.IsZero() {
		query += ` AND ts >= ?`
		args = append(args, q.Start.Unix())
	}
	if !q.End.IsZero() {
		query += ` AND ts <= ?`
		args = append(args, q.End.Unix())
	}
	if q.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, q.RunID)
	}
	if q.RobotID != 0 {
		query += ` AND robot_id = ?`
		args = append(args, q.RobotID)
	}
	if q.Reason != "" {
		query += ` AND reason = ?`
		args = append(args, q.Reason)
	}
	query += ` ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var res []LogRecord
	for rows.Next() {
		var ts int64
		var r LogRecord
		if err := rows.Scan(&ts, &r.RunID, &r.JobID, &r.RobotID, &r.Reason, &r.SimTimeS); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(ts, 0).UTC()
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
