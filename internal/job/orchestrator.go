// Package job holds the orchestrator: the single entry point that moves a
// job through its state machine one stage at a time.
package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
	"github.com/docsum/docsum/internal/common"
	"github.com/docsum/docsum/internal/entity"
	"github.com/docsum/docsum/internal/extract"
	"github.com/docsum/docsum/internal/repository"
	"github.com/docsum/docsum/internal/summarize"
)

// Config carries the orchestrator tunables.
type Config struct {
	MaxAttempts  int           // per-stage retry bound
	StageTimeout time.Duration // per stage invocation
}

// Orchestrator advances jobs. Advance is safe to call concurrently and
// repeatedly for the same job: a conditional claim on (state, attempt
// counter) lets exactly one caller run a stage; everyone else no-ops.
type Orchestrator struct {
	repo       repository.JobRepository
	extractor  *extract.Stage
	summarizer *summarize.Stage
	cfg        Config
	logger     *slog.Logger
}

func NewOrchestrator(repo repository.JobRepository, ex *extract.Stage, sum *summarize.Stage, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.StageTimeout <= 0 {
		cfg.StageTimeout = 3 * time.Minute
	}
	return &Orchestrator{
		repo:       repo,
		extractor:  ex,
		summarizer: sum,
		cfg:        cfg,
		logger:     logger,
	}
}

// Advance performs at most one stage transition for the job and returns
// the state as of the end of the call. Terminal jobs are left untouched.
// A lost claim is a benign no-op. Only metadata-store failures come back
// as errors (wrapping common.ErrPersistence); stage failures are recorded
// on the job instead.
func (o *Orchestrator) Advance(ctx context.Context, jobID uuid.UUID) (constants.JobState, error) {
	j, err := o.repo.Get(ctx, jobID)
	if err != nil {
		return "", err
	}
	if j.State.Terminal() {
		o.logger.Debug("advance on terminal job", "job_id", jobID, "state", j.State)
		return j.State, nil
	}

	switch j.State {
	case constants.StateCreated, constants.StateExtracting:
		return o.runExtract(ctx, j)
	case constants.StateExtracted, constants.StateSummarizing:
		return o.runSummarize(ctx, j)
	default:
		return j.State, fmt.Errorf("job %s in unknown state %q", jobID, j.State)
	}
}

func (o *Orchestrator) runExtract(ctx context.Context, j *entity.Job) (constants.JobState, error) {
	prev := j.ExtractAttempts
	attempt := prev + 1
	state := constants.StateExtracting

	claimed, err := o.repo.ConditionalUpdate(ctx, j.ID,
		repository.Expect{
			States:          []constants.JobState{constants.StateCreated, constants.StateExtracting},
			ExtractAttempts: &prev,
		},
		repository.Patch{State: &state, ExtractAttempts: &attempt},
	)
	if err != nil {
		return j.State, err
	}
	if !claimed {
		o.logger.Debug("extract claim lost", "job_id", j.ID, "attempt", attempt)
		return j.State, nil
	}

	o.logger.Info("extract stage start", "job_id", j.ID, "attempt", attempt, "media_type", j.MediaType)
	sctx, cancel := context.WithTimeout(ctx, o.cfg.StageTimeout)
	er, stageErr := o.extractor.Extract(sctx, j.ID, j.InputRef, j.MediaType)
	cancel()
	stageErr = o.mapTimeout(stageErr)

	if stageErr != nil {
		return o.recordFailure(ctx, j.ID, constants.StateExtracting, attempt, true, stageErr)
	}

	next := constants.StateExtracted
	total := j.Duration + er.Duration
	ok, err := o.repo.ConditionalUpdate(ctx, j.ID,
		repository.Expect{
			States:          []constants.JobState{constants.StateExtracting},
			ExtractAttempts: &attempt,
		},
		repository.Patch{
			State:            &next,
			ExtractedTextRef: &er.TextRef,
			TextLength:       &er.TextLength,
			Duration:         &total,
			ClearError:       true,
		},
	)
	if err != nil {
		return constants.StateExtracting, err
	}
	if !ok {
		o.logger.Warn("extract result discarded, claim superseded", "job_id", j.ID, "attempt", attempt)
		return constants.StateExtracting, nil
	}
	o.logger.Info("extract stage done", "job_id", j.ID, "attempt", attempt, "text_bytes", er.TextLength)
	return next, nil
}

func (o *Orchestrator) runSummarize(ctx context.Context, j *entity.Job) (constants.JobState, error) {
	prev := j.SummarizeAttempts
	attempt := prev + 1
	state := constants.StateSummarizing

	claimed, err := o.repo.ConditionalUpdate(ctx, j.ID,
		repository.Expect{
			States:            []constants.JobState{constants.StateExtracted, constants.StateSummarizing},
			SummarizeAttempts: &prev,
		},
		repository.Patch{State: &state, SummarizeAttempts: &attempt},
	)
	if err != nil {
		return j.State, err
	}
	if !claimed {
		o.logger.Debug("summarize claim lost", "job_id", j.ID, "attempt", attempt)
		return j.State, nil
	}
	if j.ExtractedTextRef == nil {
		return o.recordFailure(ctx, j.ID, constants.StateSummarizing, attempt, false,
			common.NewAppError(common.CodePersistenceFailure, "job has no extracted text reference", nil))
	}

	o.logger.Info("summarize stage start", "job_id", j.ID, "attempt", attempt)
	sctx, cancel := context.WithTimeout(ctx, o.cfg.StageTimeout)
	sr, stageErr := o.summarizer.Summarize(sctx, j.ID, *j.ExtractedTextRef)
	cancel()
	stageErr = o.mapTimeout(stageErr)

	if stageErr != nil {
		return o.recordFailure(ctx, j.ID, constants.StateSummarizing, attempt, false, stageErr)
	}

	next := constants.StateSucceeded
	total := j.Duration + sr.Duration
	ok, err := o.repo.ConditionalUpdate(ctx, j.ID,
		repository.Expect{
			States:            []constants.JobState{constants.StateSummarizing},
			SummarizeAttempts: &attempt,
		},
		repository.Patch{
			State:         &next,
			SummaryRef:    &sr.SummaryRef,
			SummaryLength: &sr.SummaryLength,
			Duration:      &total,
			ClearError:    true,
		},
	)
	if err != nil {
		return constants.StateSummarizing, err
	}
	if !ok {
		o.logger.Warn("summarize result discarded, claim superseded", "job_id", j.ID, "attempt", attempt)
		return constants.StateSummarizing, nil
	}
	o.logger.Info("summarize stage done", "job_id", j.ID, "attempt", attempt, "summary_bytes", sr.SummaryLength)
	return next, nil
}

// recordFailure stores the stage error on the job. Within the retry bound
// the job stays in its running state so a later advance retries the stage;
// at the bound it transitions to FAILED.
func (o *Orchestrator) recordFailure(ctx context.Context, id uuid.UUID, running constants.JobState, attempt int, isExtract bool, stageErr error) (constants.JobState, error) {
	msg := stageErr.Error()
	expect := repository.Expect{States: []constants.JobState{running}}
	if isExtract {
		expect.ExtractAttempts = &attempt
	} else {
		expect.SummarizeAttempts = &attempt
	}

	patch := repository.Patch{ErrorMessage: &msg}
	next := running
	if attempt >= o.cfg.MaxAttempts {
		next = constants.StateFailed
		patch.State = &next
	}

	ok, err := o.repo.ConditionalUpdate(ctx, id, expect, patch)
	if err != nil {
		return running, err
	}
	if !ok {
		o.logger.Warn("stage failure not recorded, claim superseded", "job_id", id, "attempt", attempt)
		return running, nil
	}

	if next == constants.StateFailed {
		o.logger.Error("job failed", "job_id", id, "stage", running, "attempt", attempt, "error", stageErr)
	} else {
		o.logger.Warn("stage attempt failed", "job_id", id, "stage", running, "attempt", attempt, "error", stageErr)
	}
	return next, nil
}

// mapTimeout converts a deadline expiry into the STAGE_TIMEOUT error code.
func (o *Orchestrator) mapTimeout(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return common.NewAppError(common.CodeStageTimeout,
			fmt.Sprintf("stage exceeded %s", o.cfg.StageTimeout), err)
	}
	return err
}
