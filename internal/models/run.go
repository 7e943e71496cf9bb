// Package models defines the domain types for kenaz-export.
package models

import "time"

// Run is one recorded export.
type Run struct {
	ID          string     `json:"id"`
	Source      string     `json:"source"`
	Destination string     `json:"destination"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Exported    int        `json:"exported"`
	Skipped     int        `json:"skipped"`
	Failed      int        `json:"failed"`
	Assets      int        `json:"assets"`
	Error       string     `json:"error,omitempty"`
}

// Finished reports whether the run has completed.
func (r *Run) Finished() bool {
	return r.FinishedAt != nil
}

// FileRecord is the outcome of one root note within a run.
type FileRecord struct {
	RunID       string `json:"run_id"`
	Path        string `json:"path"`
	Destination string `json:"destination,omitempty"`
	Status      string `json:"status"`
	Error       string `json:"error,omitempty"`
	Checksum    string `json:"checksum,omitempty"`
}

// UnresolvedLink is a wikilink target that matched no vault file.
type UnresolvedLink struct {
	RunID  string `json:"run_id"`
	Source string `json:"source"`
	Target string `json:"target"`
}
