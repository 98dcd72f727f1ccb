// Package export writes a run's job completion records for external
// consumption.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/kilianp07/amrfleet/infra/db"
)

// WriteJSON writes rows to w in JSON format.
func WriteJSON(w io.Writer, rows []db.JobRow) error {
	enc := json.NewEncoder(w)
	return enc.Encode(rows)
}

// WriteCSV writes rows to w in CSV format.
func WriteCSV(w io.Writer, rows []db.JobRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"job_id", "priority", "deadline_ts", "assigned_robot_id", "assign_reason", "state", "terminal_sim_time_s", "lateness_s"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			r.JobID,
			strconv.Itoa(r.Priority),
			strconv.FormatFloat(r.DeadlineTS, 'f', -1, 64),
			strconv.Itoa(r.AssignedRobotID),
			r.AssignReason,
			r.State,
			strconv.FormatFloat(r.TerminalSimTimeS, 'f', -1, 64),
			strconv.FormatFloat(r.LatenessS, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
