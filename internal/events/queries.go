package events

import (
	"context"
	"fmt"
	"io"
)

// maxDetail keeps event payloads to a sane size in the database.
const maxDetail = 4000

// RunRecorder records telemetry for one run. It satisfies the repair
// loop's Recorder; its methods never return errors, they warn instead.
type RunRecorder struct {
	store *Store
	runID int64
	warn  io.Writer
}

// StartRun inserts a run row and returns a recorder bound to it.
func (s *Store) StartRun(ctx context.Context, workdir, command string, warn io.Writer) (*RunRecorder, error) {
	var id int64
	err := s.conn.QueryRowContext(ctx,
		`INSERT INTO runs (workdir, command) VALUES ($1, $2) RETURNING id`,
		workdir, command).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &RunRecorder{store: s, runID: id, warn: warn}, nil
}

// RunID returns the database id of the recorded run.
func (r *RunRecorder) RunID() int64 { return r.runID }

// RecordEvent stores one run event.
func (r *RunRecorder) RecordEvent(ctx context.Context, kind, detail string) {
	_, err := r.store.conn.ExecContext(ctx,
		`INSERT INTO run_events (run_id, kind, detail) VALUES ($1, $2, $3)`,
		r.runID, kind, Clip(detail, maxDetail))
	r.warned(err)
}

// RecordAttempt stores one attempt record.
func (r *RunRecorder) RecordAttempt(ctx context.Context, phase string, attempt, exitCode int, classification, applyStatus string) {
	_, err := r.store.conn.ExecContext(ctx,
		`INSERT INTO attempt_records (run_id, phase, attempt, exit_code, classification, apply_status)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.runID, phase, attempt, exitCode, classification, applyStatus)
	r.warned(err)
}

// Finish stamps the run row with its outcome.
func (r *RunRecorder) Finish(ctx context.Context, outcome string) {
	_, err := r.store.conn.ExecContext(ctx,
		`UPDATE runs SET outcome = $1, finished_at = now() WHERE id = $2`,
		outcome, r.runID)
	r.warned(err)
}

func (r *RunRecorder) warned(err error) {
	if err != nil && r.warn != nil {
		fmt.Fprintf(r.warn, "warning: event store write failed: %v\n", err)
	}
}

// Clip truncates s to at most n bytes, marking the cut.
func Clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
