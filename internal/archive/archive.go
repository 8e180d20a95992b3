// Package archive persists the audit trail of a repair run: one directory
// per run, one record per attempt, written before the loop moves on.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AttemptRecord is the durable summary of one loop attempt.
type AttemptRecord struct {
	Phase          string    `json:"phase"` // "repair" or "coverage"
	Attempt        int       `json:"attempt"`
	Command        string    `json:"command"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
	ExitCode       int       `json:"exit_code"`
	Classification string    `json:"classification,omitempty"`
	ApplyStatus    string    `json:"apply_status,omitempty"`
	ApplyStrategy  string    `json:"apply_strategy,omitempty"`
	Note           string    `json:"note,omitempty"`
}

// Archive owns one run's directory. Files are created with O_EXCL; a name
// collision means a bookkeeping bug and surfaces as an error rather than a
// silent overwrite.
type Archive struct {
	dir string
}

// Open creates the run directory under root, named by the start timestamp.
func Open(root string, startedAt time.Time) (*Archive, error) {
	dir := filepath.Join(root, startedAt.UTC().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive dir: %w", err)
	}
	return &Archive{dir: dir}, nil
}

// Dir returns the run directory path.
func (a *Archive) Dir() string { return a.dir }

// WriteRecord persists an attempt record as JSON.
func (a *Archive) WriteRecord(rec *AttemptRecord) error {
	name := fmt.Sprintf("%s-%02d-record.json", rec.Phase, rec.Attempt)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding attempt record: %w", err)
	}
	return a.writeNew(name, append(data, '\n'))
}

// WriteText persists a named text artifact for an attempt, such as the CI
// log tail, the prompt, the raw response, or the extracted diff.
func (a *Archive) WriteText(phase string, attempt int, kind, content string) error {
	name := fmt.Sprintf("%s-%02d-%s.txt", phase, attempt, kind)
	return a.writeNew(name, []byte(content))
}

// WriteOutcome records the run's final outcome at the top of the directory.
func (a *Archive) WriteOutcome(outcome string, endedAt time.Time) error {
	body := fmt.Sprintf("outcome: %s\nended_at: %s\n", outcome, endedAt.UTC().Format(time.RFC3339))
	return a.writeNew("outcome.txt", []byte(body))
}

func (a *Archive) writeNew(name string, data []byte) error {
	path := filepath.Join(a.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("creating archive file %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("writing archive file %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing archive file %s: %w", name, err)
	}
	return nil
}
