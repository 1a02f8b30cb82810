package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// JobStatus is the lifecycle state of a remote batch job. The vocabulary is
// a closed 1:1 mapping of the remote service's status strings; nothing local
// ever invents a transition.
type JobStatus string

const (
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusValidating JobStatus = "validating"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusFinalizing JobStatus = "finalizing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusExpired    JobStatus = "expired"
	JobStatusCancelling JobStatus = "cancelling"
	JobStatusCancelled  JobStatus = "cancelled"
)

// ParseJobStatus maps a remote status string onto the closed status set.
// An unrecognized status is a hard error so the ledger never stores an
// undefined state.
func ParseJobStatus(s string) (JobStatus, error) {
	switch st := JobStatus(s); st {
	case JobStatusSubmitted, JobStatusValidating, JobStatusInProgress,
		JobStatusFinalizing, JobStatusCompleted, JobStatusFailed,
		JobStatusExpired, JobStatusCancelling, JobStatusCancelled:
		return st, nil
	}
	return "", eris.Errorf("model: unknown job status %q", s)
}

// IsTerminal reports whether the status is permanently resolved.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusExpired, JobStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether the job still needs polling.
func (s JobStatus) IsActive() bool {
	return !s.IsTerminal()
}

// RequestCounts tallies the per-request progress reported by the remote.
type RequestCounts struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
}

// Job is the durable record of one remote batch submission. Created once on
// submit, thereafter mutated in place by status transitions taken verbatim
// from the remote service's report. Jobs are only ever deleted by explicit
// user action.
type Job struct {
	ID           string         `json:"id"`
	Status       JobStatus      `json:"status"`
	InputFileID  string         `json:"input_file_id"`
	OutputFileID string         `json:"output_file_id,omitempty"`
	ErrorFileID  string         `json:"error_file_id,omitempty"`
	Counts       *RequestCounts `json:"counts,omitempty"`
	RowCount     int            `json:"row_count"`
	Description  string         `json:"description,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	LastPolledAt *time.Time     `json:"last_polled_at,omitempty"`
}
