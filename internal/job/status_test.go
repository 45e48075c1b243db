package job

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
	"github.com/docsum/docsum/internal/common"
)

func TestGetStatusUnknownJob(t *testing.T) {
	fx := newFixture(t)
	svc := NewStatusService(fx.repo, fx.blobs, 0, nil)

	_, err := svc.GetStatus(context.Background(), uuid.New())
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetStatusInlinesSummary(t *testing.T) {
	fx := newFixture(t)
	j := fx.createJob(t, constants.TXT, "body")
	fx.mustAdvance(t, j.ID, constants.StateExtracted)
	fx.mustAdvance(t, j.ID, constants.StateSucceeded)

	svc := NewStatusService(fx.repo, fx.blobs, 1<<20, nil)
	st, err := svc.GetStatus(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.State != constants.StateSucceeded {
		t.Errorf("state = %s", st.State)
	}
	if st.Summary != "1. A summary." {
		t.Errorf("summary = %q", st.Summary)
	}
	if st.SummaryRef == "" {
		t.Error("summary_ref missing")
	}
}

func TestGetStatusLargeSummaryStaysReferenced(t *testing.T) {
	fx := newFixture(t)
	fx.model.out = "1. " + strings.Repeat("long summary text ", 50)
	j := fx.createJob(t, constants.TXT, "body")
	fx.mustAdvance(t, j.ID, constants.StateExtracted)
	fx.mustAdvance(t, j.ID, constants.StateSucceeded)

	svc := NewStatusService(fx.repo, fx.blobs, 32, nil)
	st, err := svc.GetStatus(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.Summary != "" {
		t.Errorf("oversized summary inlined (%d bytes)", len(st.Summary))
	}
	if st.SummaryRef == "" {
		t.Error("summary_ref missing for referenced summary")
	}
}

func TestGetStatusPendingJobHasNoSummary(t *testing.T) {
	fx := newFixture(t)
	j := fx.createJob(t, constants.TXT, "body")

	svc := NewStatusService(fx.repo, fx.blobs, 1<<20, nil)
	st, err := svc.GetStatus(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if st.State != constants.StateCreated {
		t.Errorf("state = %s", st.State)
	}
	if st.Summary != "" || st.SummaryRef != "" {
		t.Errorf("pending job exposes summary: %q %q", st.Summary, st.SummaryRef)
	}
}

func TestGetStatusFailedJobCarriesError(t *testing.T) {
	fx := newFixture(t)
	apiDown := common.NewAppError(common.CodeModelUnavailable, "down", nil)
	fx.model.errs = []error{apiDown, apiDown, apiDown}
	j := fx.createJob(t, constants.TXT, "body")
	fx.mustAdvance(t, j.ID, constants.StateExtracted)
	fx.mustAdvance(t, j.ID, constants.StateSummarizing)
	fx.mustAdvance(t, j.ID, constants.StateSummarizing)
	fx.mustAdvance(t, j.ID, constants.StateFailed)

	svc := NewStatusService(fx.repo, fx.blobs, 1<<20, nil)
	st, err := svc.GetStatus(context.Background(), j.ID)
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !strings.Contains(st.ErrorMessage, common.CodeModelUnavailable) {
		t.Errorf("error_message = %q", st.ErrorMessage)
	}
	if st.Summary != "" {
		t.Errorf("failed job has summary: %q", st.Summary)
	}
}

func TestListStatuses(t *testing.T) {
	fx := newFixture(t)
	for i := 0; i < 3; i++ {
		fx.createJob(t, constants.TXT, "body")
	}

	svc := NewStatusService(fx.repo, fx.blobs, 1<<20, nil)
	sts, err := svc.ListStatuses(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListStatuses: %v", err)
	}
	if len(sts) != 3 {
		t.Errorf("len = %d", len(sts))
	}
}
