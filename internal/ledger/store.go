// Package ledger is the durable record of every batch job ever submitted,
// keyed by the remote-assigned job id, plus the contact snapshot each job
// was compiled from.
package ledger

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/connections-cli/internal/model"
	"github.com/sells-group/connections-cli/pkg/openai"
)

// ErrJobNotFound is returned by GetJob and GetContacts for unknown job ids.
var ErrJobNotFound = eris.New("ledger: job not found")

// Store is the persistence interface for the job ledger. UpsertJob is a
// whole-record replace by id, not a field-level patch: callers doing a
// status-only update must get, mutate in memory, then upsert, or they will
// clobber fields. Concurrent upserts to the same id are last-write-wins;
// the only concurrent writers (user refresh and scheduled poll) are both
// idempotent against the remote as source of truth.
type Store interface {
	UpsertJob(ctx context.Context, job model.Job) error
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	// ListJobs returns every job, newest-first by creation time.
	ListJobs(ctx context.Context) ([]model.Job, error)
	// ListActiveJobs returns jobs whose status is not terminal.
	ListActiveJobs(ctx context.Context) ([]model.Job, error)
	// ListCompletedJobs returns jobs that terminated successfully.
	ListCompletedJobs(ctx context.Context) ([]model.Job, error)
	DeleteJob(ctx context.Context, jobID string) error

	// Contact snapshots: the rows a job was compiled from, captured at
	// submit time so results can be reconciled after a reconnect without
	// re-supplying the source file.
	PutContacts(ctx context.Context, jobID string, list []model.Contact) error
	GetContacts(ctx context.Context, jobID string) ([]model.Contact, error)

	Migrate(ctx context.Context) error
	Close() error
}

// JobFromBatch maps a remote batch resource onto a fresh ledger record.
// The remote status vocabulary is closed; an unknown status is an error.
func JobFromBatch(b *openai.Batch) (model.Job, error) {
	status, err := model.ParseJobStatus(b.Status)
	if err != nil {
		return model.Job{}, err
	}
	job := model.Job{
		ID:           b.ID,
		Status:       status,
		InputFileID:  b.InputFileID,
		OutputFileID: b.OutputFileID,
		ErrorFileID:  b.ErrorFileID,
		CreatedAt:    time.Unix(b.CreatedAt, 0).UTC(),
	}
	if b.RequestCounts != (openai.RequestCounts{}) {
		job.Counts = &model.RequestCounts{
			Total:     b.RequestCounts.Total,
			Completed: b.RequestCounts.Completed,
			Failed:    b.RequestCounts.Failed,
		}
	}
	return job, nil
}

// ApplyBatch merges a freshly polled batch onto an existing ledger record:
// status, counts and artifact ids come from the remote report; locally
// captured fields (row count, description, created-at) are preserved.
func ApplyBatch(job *model.Job, b *openai.Batch, polledAt time.Time) error {
	status, err := model.ParseJobStatus(b.Status)
	if err != nil {
		return err
	}
	job.Status = status
	if b.OutputFileID != "" {
		job.OutputFileID = b.OutputFileID
	}
	if b.ErrorFileID != "" {
		job.ErrorFileID = b.ErrorFileID
	}
	if b.RequestCounts != (openai.RequestCounts{}) {
		job.Counts = &model.RequestCounts{
			Total:     b.RequestCounts.Total,
			Completed: b.RequestCounts.Completed,
			Failed:    b.RequestCounts.Failed,
		}
	}
	polledAt = polledAt.UTC()
	job.LastPolledAt = &polledAt
	return nil
}
