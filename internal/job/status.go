package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
	"github.com/docsum/docsum/internal/blobstore"
	"github.com/docsum/docsum/internal/entity"
	"github.com/docsum/docsum/internal/repository"
)

// Status is the client-facing view of a job. The summary is inlined only
// for succeeded jobs whose summary fits the inlining bound; otherwise
// SummaryRef points at the blob.
type Status struct {
	JobID             uuid.UUID          `json:"job_id"`
	State             constants.JobState `json:"state"`
	MediaType         string             `json:"media_type"`
	Summary           string             `json:"summary,omitempty"`
	SummaryRef        string             `json:"summary_ref,omitempty"`
	ErrorMessage      string             `json:"error_message,omitempty"`
	ExtractAttempts   int                `json:"extract_attempts"`
	SummarizeAttempts int                `json:"summarize_attempts"`
	TextLength        int                `json:"text_length,omitempty"`
	SummaryLength     int                `json:"summary_length,omitempty"`
	DurationMS        int64              `json:"duration_ms,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
	RetainUntil       *time.Time         `json:"retain_until,omitempty"`
}

// StatusService answers read-only status queries.
type StatusService struct {
	repo      repository.JobRepository
	blobs     blobstore.Store
	maxInline int
	logger    *slog.Logger
}

func NewStatusService(repo repository.JobRepository, blobs blobstore.Store, maxInline int, logger *slog.Logger) *StatusService {
	if logger == nil {
		logger = slog.Default()
	}
	if maxInline <= 0 {
		maxInline = 64 << 10
	}
	return &StatusService{repo: repo, blobs: blobs, maxInline: maxInline, logger: logger}
}

// GetStatus returns the job view, or common.ErrNotFound for an unknown id.
func (s *StatusService) GetStatus(ctx context.Context, id uuid.UUID) (*Status, error) {
	j, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	st := statusFrom(j)

	if j.State == constants.StateSucceeded && j.SummaryRef != nil && j.SummaryLength <= s.maxInline {
		data, err := s.blobs.Get(ctx, *j.SummaryRef)
		if err != nil {
			// Record stays authoritative; serve the reference instead.
			s.logger.Warn("summary blob unreadable", "job_id", id, "ref", *j.SummaryRef, "error", err)
		} else {
			st.Summary = string(data)
		}
	}
	return st, nil
}

// ListStatuses returns recent jobs, newest first.
func (s *StatusService) ListStatuses(ctx context.Context, limit int) ([]*Status, error) {
	jobs, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*Status, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, statusFrom(j))
	}
	return out, nil
}

func statusFrom(j *entity.Job) *Status {
	st := &Status{
		JobID:             j.ID,
		State:             j.State,
		MediaType:         j.MediaType,
		ExtractAttempts:   j.ExtractAttempts,
		SummarizeAttempts: j.SummarizeAttempts,
		TextLength:        j.TextLength,
		SummaryLength:     j.SummaryLength,
		DurationMS:        j.Duration.Milliseconds(),
		CreatedAt:         j.CreatedAt,
		UpdatedAt:         j.UpdatedAt,
		RetainUntil:       j.RetainUntil,
	}
	if j.SummaryRef != nil {
		st.SummaryRef = *j.SummaryRef
	}
	if j.ErrorMessage != nil {
		st.ErrorMessage = *j.ErrorMessage
	}
	return st
}
