package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Completion replies carry one short summary object; anything bigger than
// this is a broken endpoint, not a summary.
const defaultReplyCap = 1 << 20

// PostJSON sends a completion-style JSON request and returns the raw reply
// body, capped at replyCap bytes (0 uses the default). Provider specifics
// (URL, auth headers) stay with the caller.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, headers map[string]string, replyCap int64, logger *slog.Logger) ([]byte, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	if replyCap <= 0 {
		replyCap = defaultReplyCap
	}

	callID := uuid.New().String()

	bs, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logger.Info("summarizer.call", "call_id", callID, "url", url, "request_bytes", len(bs))

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.Error("summarizer.call_failed",
			"call_id", callID, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, replyCap+1))
	if err != nil {
		logger.Error("summarizer.reply_read_failed", "call_id", callID, "error", err)
		return nil, resp.StatusCode, fmt.Errorf("read reply: %w", err)
	}
	if int64(len(raw)) > replyCap {
		return nil, resp.StatusCode, fmt.Errorf("reply exceeds %d bytes", replyCap)
	}

	logger.Info("summarizer.reply",
		"call_id", callID,
		"status", resp.StatusCode,
		"reply_bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode/100 != 2 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}
