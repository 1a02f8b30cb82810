package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/connections-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS jobs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	input_file_id  TEXT NOT NULL DEFAULT '',
	output_file_id TEXT NOT NULL DEFAULT '',
	error_file_id  TEXT NOT NULL DEFAULT '',
	counts         TEXT,
	row_count      INTEGER NOT NULL DEFAULT 0,
	description    TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL,
	last_polled_at DATETIME
);

CREATE TABLE IF NOT EXISTS job_contacts (
	job_id   TEXT PRIMARY KEY REFERENCES jobs(id),
	contacts TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteJobColumns = `id, status, input_file_id, output_file_id, error_file_id, counts, row_count, description, created_at, last_polled_at`

func (s *SQLiteStore) UpsertJob(ctx context.Context, job model.Job) error {
	countsJSON, err := marshalCounts(job.Counts)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (`+sqliteJobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
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
		countsJSON, job.RowCount, job.Description, job.CreatedAt.UTC(), nullTime(job.LastPolledAt),
	)
	return eris.Wrapf(err, "sqlite: upsert job %s", job.ID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, jobID string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteJobColumns+` FROM jobs WHERE id = ?`, jobID,
	)
	job, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", jobID)
	}
	return job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context) ([]model.Job, error) {
	return s.listJobs(ctx, `SELECT `+sqliteJobColumns+` FROM jobs ORDER BY created_at DESC, id`)
}

func (s *SQLiteStore) ListActiveJobs(ctx context.Context) ([]model.Job, error) {
	return s.listJobs(ctx,
		`SELECT `+sqliteJobColumns+` FROM jobs WHERE status NOT IN (?, ?, ?, ?) ORDER BY created_at DESC, id`,
		string(model.JobStatusCompleted), string(model.JobStatusFailed),
		string(model.JobStatusExpired), string(model.JobStatusCancelled),
	)
}

func (s *SQLiteStore) ListCompletedJobs(ctx context.Context) ([]model.Job, error) {
	return s.listJobs(ctx,
		`SELECT `+sqliteJobColumns+` FROM jobs WHERE status = ? ORDER BY created_at DESC, id`,
		string(model.JobStatusCompleted),
	)
}

func (s *SQLiteStore) listJobs(ctx context.Context, query string, args ...any) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		jobs = append(jobs, *j)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) DeleteJob(ctx context.Context, jobID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM job_contacts WHERE job_id = ?`, jobID); err != nil {
		return eris.Wrapf(err, "sqlite: delete contacts for job %s", jobID)
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, jobID)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete job %s", jobID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (s *SQLiteStore) PutContacts(ctx context.Context, jobID string, list []model.Contact) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal contacts")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO job_contacts (job_id, contacts) VALUES (?, ?)
		 ON CONFLICT(job_id) DO UPDATE SET contacts = excluded.contacts`,
		jobID, string(raw),
	)
	return eris.Wrapf(err, "sqlite: put contacts for job %s", jobID)
}

func (s *SQLiteStore) GetContacts(ctx context.Context, jobID string) ([]model.Contact, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT contacts FROM job_contacts WHERE job_id = ?`, jobID,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get contacts for job %s", jobID)
	}

	var list []model.Contact
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal contacts")
	}
	return list, nil
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanJob(row scannable) (*model.Job, error) {
	var j model.Job
	var status string
	var countsJSON sql.NullString
	var lastPolled sql.NullTime

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

	if countsJSON.Valid && countsJSON.String != "" {
		j.Counts = &model.RequestCounts{}
		if err := json.Unmarshal([]byte(countsJSON.String), j.Counts); err != nil {
			return nil, eris.Wrap(err, "unmarshal counts")
		}
	}
	if lastPolled.Valid {
		t := lastPolled.Time.UTC()
		j.LastPolledAt = &t
	}
	j.CreatedAt = j.CreatedAt.UTC()
	return &j, nil
}

func marshalCounts(c *model.RequestCounts) (sql.NullString, error) {
	if c == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return sql.NullString{}, eris.Wrap(err, "marshal counts")
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
