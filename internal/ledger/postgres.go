package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/connections-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the ledger uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 5
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	input_file_id  TEXT NOT NULL DEFAULT '',
	output_file_id TEXT NOT NULL DEFAULT '',
	error_file_id  TEXT NOT NULL DEFAULT '',
	counts         JSONB,
	row_count      INTEGER NOT NULL DEFAULT 0,
	description    TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL,
	last_polled_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS job_contacts (
	job_id   TEXT PRIMARY KEY REFERENCES jobs(id),
	contacts JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const pgJobColumns = `id, status, input_file_id, output_file_id, error_file_id, counts, row_count, description, created_at, last_polled_at`

func (s *PostgresStore) UpsertJob(ctx context.Context, job model.Job) error {
	var countsJSON any
	if job.Counts != nil {
		raw, err := json.Marshal(job.Counts)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal counts")
		}
		countsJSON = string(raw)
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (`+pgJobColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			status = excluded.status,
			input_file_id = excluded.input_file_id,
			output_file_id = excluded.output_file_id,
			error_file_id = excluded.error_file_id,
			counts = excluded.counts,
			row_count = excluded.row_count,
			description = excluded.description,
			created_at = excluded.created_at,
			last_polled_at = excluded.last_polled_at`,
		job.ID, string(job.Status), job.InputFileID, job.OutputFileID, job.ErrorFileID,
		countsJSON, job.RowCount, job.Description, job.CreatedAt.UTC(), job.LastPolledAt,
	)
	return eris.Wrapf(err, "postgres: upsert job %s", job.ID)
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgJobColumns+` FROM jobs WHERE id = $1`, jobID,
	)
	job, err := scanPgJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", jobID)
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context) ([]model.Job, error) {
	return s.listJobs(ctx, `SELECT `+pgJobColumns+` FROM jobs ORDER BY created_at DESC, id`)
}

func (s *PostgresStore) ListActiveJobs(ctx context.Context) ([]model.Job, error) {
	return s.listJobs(ctx,
		`SELECT `+pgJobColumns+` FROM jobs WHERE status NOT IN ($1, $2, $3, $4) ORDER BY created_at DESC, id`,
		string(model.JobStatusCompleted), string(model.JobStatusFailed),
		string(model.JobStatusExpired), string(model.JobStatusCancelled),
	)
}

func (s *PostgresStore) ListCompletedJobs(ctx context.Context) ([]model.Job, error) {
	return s.listJobs(ctx,
		`SELECT `+pgJobColumns+` FROM jobs WHERE status = $1 ORDER BY created_at DESC, id`,
		string(model.JobStatusCompleted),
	)
}

func (s *PostgresStore) listJobs(ctx context.Context, query string, args ...any) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanPgJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM job_contacts WHERE job_id = $1`, jobID); err != nil {
		return eris.Wrapf(err, "postgres: delete contacts for job %s", jobID)
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete job %s", jobID)
	}
	if tag.RowsAffected() == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *PostgresStore) PutContacts(ctx context.Context, jobID string, list []model.Contact) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal contacts")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO job_contacts (job_id, contacts) VALUES ($1, $2)
		 ON CONFLICT (job_id) DO UPDATE SET contacts = excluded.contacts`,
		jobID, string(raw),
	)
	return eris.Wrapf(err, "postgres: put contacts for job %s", jobID)
}

func (s *PostgresStore) GetContacts(ctx context.Context, jobID string) ([]model.Contact, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT contacts FROM job_contacts WHERE job_id = $1`, jobID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get contacts for job %s", jobID)
	}

	var list []model.Contact
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal contacts")
	}
	return list, nil
}

func scanPgJob(row pgx.Row) (*model.Job, error) {
	var j model.Job
	var status string
	var countsJSON []byte
	var lastPolled *time.Time

	err := row.Scan(&j.ID, &status, &j.InputFileID, &j.OutputFileID, &j.ErrorFileID,
		&countsJSON, &j.RowCount, &j.Description, &j.CreatedAt, &lastPolled)
	if err != nil {
		return nil, err
	}

	st, err := model.ParseJobStatus(status)
	if err != nil {
		return nil, err
	}
	j.Status = st

	if len(countsJSON) > 0 {
		j.Counts = &model.RequestCounts{}
		if err := json.Unmarshal(countsJSON, j.Counts); err != nil {
			return nil, eris.Wrap(err, "unmarshal counts")
		}
	}
	if lastPolled != nil {
		t := lastPolled.UTC()
		j.LastPolledAt = &t
	}
	j.CreatedAt = j.CreatedAt.UTC()
	return &j, nil
}
