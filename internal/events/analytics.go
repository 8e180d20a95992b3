package events

import (
	"context"
	"fmt"
)

// OutcomeCount is one row of the run-outcome summary.
type OutcomeCount struct {
	Outcome string `json:"outcome"`
	Count   int    `json:"count"`
}

// OutcomeCounts returns how many runs ended in each outcome.
func (s *Store) OutcomeCounts(ctx context.Context) ([]OutcomeCount, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT outcome, COUNT(*) FROM runs WHERE outcome <> '' GROUP BY outcome ORDER BY COUNT(*) DESC, outcome`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeCount
	for rows.Next() {
		var oc OutcomeCount
		if err := rows.Scan(&oc.Outcome, &oc.Count); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}

// AverageAttempts returns the mean number of repair attempts per finished run.
func (s *Store) AverageAttempts(ctx context.Context) (float64, error) {
	var avg float64
	err := s.conn.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(n), 0) FROM (
			SELECT COUNT(*) AS n FROM attempt_records
			WHERE phase = 'repair' GROUP BY run_id
		) per_run`).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("query average attempts: %w", err)
	}
	return avg, nil
}

// ClassificationCount is one row of the response-classification summary.
type ClassificationCount struct {
	Classification string `json:"classification"`
	Count          int    `json:"count"`
}

// ClassificationCounts returns how patch-service responses classified
// across all recorded attempts.
func (s *Store) ClassificationCounts(ctx context.Context) ([]ClassificationCount, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT classification, COUNT(*) FROM attempt_records
		 WHERE classification <> '' GROUP BY classification ORDER BY COUNT(*) DESC, classification`)
	if err != nil {
		return nil, fmt.Errorf("query classifications: %w", err)
	}
	defer rows.Close()

	var out []ClassificationCount
	for rows.Next() {
		var cc ClassificationCount
		if err := rows.Scan(&cc.Classification, &cc.Count); err != nil {
			return nil, fmt.Errorf("scan classification row: %w", err)
		}
		out = append(out, cc)
	}
	return out, rows.Err()
}
