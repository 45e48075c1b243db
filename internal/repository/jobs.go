package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
	"github.com/docsum/docsum/internal/common"
	"github.com/docsum/docsum/internal/entity"
)

// Expect is the precondition for a conditional update. The update applies
// only while the stored row still matches every set field; this is the
// claim mechanism that serializes concurrent advances of one job.
type Expect struct {
	States            []constants.JobState
	ExtractAttempts   *int
	SummarizeAttempts *int
}

// Patch is the set of fields a conditional update may write. Nil fields
// are left untouched; updated_at always advances on an applied patch.
type Patch struct {
	State             *constants.JobState
	ExtractedTextRef  *string
	SummaryRef        *string
	ErrorMessage      *string
	ClearError        bool
	ExtractAttempts   *int
	SummarizeAttempts *int
	TextLength        *int
	SummaryLength     *int
	Duration          *time.Duration
}

// JobRepository is the durable metadata store for jobs.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	ConditionalUpdate(ctx context.Context, id uuid.UUID, expect Expect, patch Patch) (bool, error)
	List(ctx context.Context, limit int) ([]*entity.Job, error)
}

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	state TEXT NOT NULL,
	input_ref TEXT NOT NULL,
	media_type TEXT NOT NULL,
	extracted_text_ref TEXT,
	summary_ref TEXT,
	error_message TEXT,
	extract_attempts INTEGER NOT NULL DEFAULT 0,
	summarize_attempts INTEGER NOT NULL DEFAULT 0,
	text_length INTEGER NOT NULL DEFAULT 0,
	summary_length INTEGER NOT NULL DEFAULT 0,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	retain_until TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state, created_at);
`

type jobRepo struct {
	db  *DB
	log *slog.Logger
}

// NewJobRepository initializes the jobs table and returns the repository.
func NewJobRepository(db *DB, log *slog.Logger) (JobRepository, error) {
	if log == nil {
		log = slog.Default()
	}
	if _, err := db.Exec(jobsSchema); err != nil {
		return nil, fmt.Errorf("init jobs schema: %w", err)
	}
	return &jobRepo{db: db, log: log}, nil
}

// Fixed-width nanoseconds: RFC3339Nano drops trailing zeros, which breaks
// the lexicographic ORDER BY over the TEXT column.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func (r *jobRepo) Create(ctx context.Context, job *entity.Job) error {
	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	if job.State == "" {
		job.State = constants.StateCreated
	}

	var retain any
	if job.RetainUntil != nil {
		retain = job.RetainUntil.UTC().Format(timeLayout)
	}
	_, err := r.db.ExecContext(ctx, r.db.rebind(`
		INSERT INTO jobs (id, state, input_ref, media_type, extract_attempts, summarize_attempts, created_at, updated_at, retain_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		job.ID.String(),
		string(job.State),
		job.InputRef,
		job.MediaType,
		job.ExtractAttempts,
		job.SummarizeAttempts,
		now.Format(timeLayout),
		now.Format(timeLayout),
		retain,
	)
	if err != nil {
		r.log.Error("job create failed", "job_id", job.ID, "error", err)
		return fmt.Errorf("%w: create job: %v", common.ErrPersistence, err)
	}
	r.log.Info("job created", "job_id", job.ID, "media_type", job.MediaType, "input_ref", job.InputRef)
	return nil
}

const jobColumns = `id, state, input_ref, media_type, extracted_text_ref, summary_ref, error_message,
	extract_attempts, summarize_attempts, text_length, summary_length, duration_ms,
	created_at, updated_at, retain_until`

func (r *jobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := r.db.QueryRowContext(ctx,
		r.db.rebind(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`), id.String())
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get job: %v", common.ErrPersistence, err)
	}
	return job, nil
}

func (r *jobRepo) List(ctx context.Context, limit int) ([]*entity.Job, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		r.db.rebind(`SELECT `+jobColumns+` FROM jobs ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list jobs: %v", common.ErrPersistence, err)
	}
	defer rows.Close()

	var out []*entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan job: %v", common.ErrPersistence, err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list jobs: %v", common.ErrPersistence, err)
	}
	return out, nil
}

// ConditionalUpdate applies patch iff the row still matches expect.
// Returns false (no error) when the precondition no longer holds — the
// caller lost the claim or is a late duplicate, both benign.
func (r *jobRepo) ConditionalUpdate(ctx context.Context, id uuid.UUID, expect Expect, patch Patch) (bool, error) {
	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(timeLayout)}

	if patch.State != nil {
		set = append(set, "state = ?")
		args = append(args, string(*patch.State))
	}
	if patch.ExtractedTextRef != nil {
		set = append(set, "extracted_text_ref = ?")
		args = append(args, *patch.ExtractedTextRef)
	}
	if patch.SummaryRef != nil {
		set = append(set, "summary_ref = ?")
		args = append(args, *patch.SummaryRef)
	}
	if patch.ClearError {
		set = append(set, "error_message = NULL")
	} else if patch.ErrorMessage != nil {
		set = append(set, "error_message = ?")
		args = append(args, *patch.ErrorMessage)
	}
	if patch.ExtractAttempts != nil {
		set = append(set, "extract_attempts = ?")
		args = append(args, *patch.ExtractAttempts)
	}
	if patch.SummarizeAttempts != nil {
		set = append(set, "summarize_attempts = ?")
		args = append(args, *patch.SummarizeAttempts)
	}
	if patch.TextLength != nil {
		set = append(set, "text_length = ?")
		args = append(args, *patch.TextLength)
	}
	if patch.SummaryLength != nil {
		set = append(set, "summary_length = ?")
		args = append(args, *patch.SummaryLength)
	}
	if patch.Duration != nil {
		set = append(set, "duration_ms = ?")
		args = append(args, patch.Duration.Milliseconds())
	}

	where := []string{"id = ?"}
	args = append(args, id.String())
	if len(expect.States) > 0 {
		ph := make([]string, len(expect.States))
		for i, s := range expect.States {
			ph[i] = "?"
			args = append(args, string(s))
		}
		where = append(where, "state IN ("+strings.Join(ph, ", ")+")")
	}
	if expect.ExtractAttempts != nil {
		where = append(where, "extract_attempts = ?")
		args = append(args, *expect.ExtractAttempts)
	}
	if expect.SummarizeAttempts != nil {
		where = append(where, "summarize_attempts = ?")
		args = append(args, *expect.SummarizeAttempts)
	}

	query := "UPDATE jobs SET " + strings.Join(set, ", ") + " WHERE " + strings.Join(where, " AND ")
	res, err := r.db.ExecContext(ctx, r.db.rebind(query), args...)
	if err != nil {
		r.log.Error("job conditional update failed", "job_id", id, "error", err)
		return false, fmt.Errorf("%w: update job: %v", common.ErrPersistence, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", common.ErrPersistence, err)
	}
	return n > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*entity.Job, error) {
	var (
		job                              entity.Job
		idStr, stateStr                  string
		extractedRef, summaryRef, errMsg sql.NullString
		createdAt, updatedAt             string
		retainUntil                      sql.NullString
		durationMS                       int64
	)
	err := row.Scan(
		&idStr, &stateStr, &job.InputRef, &job.MediaType,
		&extractedRef, &summaryRef, &errMsg,
		&job.ExtractAttempts, &job.SummarizeAttempts,
		&job.TextLength, &job.SummaryLength, &durationMS,
		&createdAt, &updatedAt, &retainUntil,
	)
	if err != nil {
		return nil, err
	}

	job.ID, err = uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("parse job id %q: %w", idStr, err)
	}
	job.State = constants.JobState(stateStr)
	if extractedRef.Valid {
		job.ExtractedTextRef = &extractedRef.String
	}
	if summaryRef.Valid {
		job.SummaryRef = &summaryRef.String
	}
	if errMsg.Valid {
		job.ErrorMessage = &errMsg.String
	}
	job.Duration = time.Duration(durationMS) * time.Millisecond
	if job.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	if retainUntil.Valid {
		t, err := time.Parse(timeLayout, retainUntil.String)
		if err != nil {
			return nil, fmt.Errorf("parse retain_until: %w", err)
		}
		job.RetainUntil = &t
	}
	return &job, nil
}
