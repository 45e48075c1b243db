// Package notify delivers terminal-state notifications. Delivery is best
// effort: a failed webhook never affects the job record.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/docsum/docsum/internal/job"
)

type Notifier interface {
	JobFinished(ctx context.Context, st *job.Status)
}

// Webhook POSTs a JSON payload for every finished job. An empty URL turns
// it into a log-only notifier.
type Webhook struct {
	url    string
	hc     *http.Client
	logger *slog.Logger
}

func NewWebhook(url string, timeout time.Duration, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		hc:     &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type payload struct {
	JobID        string `json:"job_id"`
	State        string `json:"state"`
	SummaryRef   string `json:"summary_ref,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	FinishedAt   string `json:"finished_at"`
}

func (w *Webhook) JobFinished(ctx context.Context, st *job.Status) {
	if w.url == "" {
		w.logger.Info("job finished (no webhook configured)",
			"job_id", st.JobID, "state", st.State)
		return
	}

	body, err := json.Marshal(payload{
		JobID:        st.JobID.String(),
		State:        string(st.State),
		SummaryRef:   st.SummaryRef,
		ErrorMessage: st.ErrorMessage,
		FinishedAt:   time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		w.logger.Error("webhook payload encode failed", "job_id", st.JobID, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		w.logger.Error("webhook request build failed", "job_id", st.JobID, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.hc.Do(req)
	if err != nil {
		w.logger.Warn("webhook delivery failed", "job_id", st.JobID, "url", w.url, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		w.logger.Warn("webhook rejected",
			"job_id", st.JobID, "url", w.url, "status", fmt.Sprint(resp.StatusCode))
		return
	}
	w.logger.Info("webhook delivered", "job_id", st.JobID, "state", st.State)
}
