package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/docsum/docsum/internal/common"
	"github.com/docsum/docsum/internal/llm"
)

const systemPrompt = "You are a document summarization assistant. Produce a concise " +
	"summary of the document as short numbered points, one fact per point. " +
	"Use plain text only. Do not use markdown, bullets, asterisks or headers. " +
	"Do not invent facts that are not in the document."

// badPhrases mark replies where the model refused or complained about the
// input instead of summarizing it. Such replies are replaced with a neutral
// summary rather than stored verbatim.
var badPhrases = []string{
	"appears to be corrupted",
	"unable to summarize",
	"cannot summarize",
	"i'm sorry",
	"as an ai",
	"does not contain any readable",
}

const fallbackSummary = "1. The document did not yield a usable summary; its text may be incomplete or unreadable."

// Client talks to an OpenAI-compatible chat completions endpoint and asks
// for a schema-constrained JSON reply.
type Client struct {
	cfg    Config
	hc     *http.Client
	logger *slog.Logger
}

var _ llm.Summarizer = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		hc:     &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float32       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat any           `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Summarize sends the text to the model and returns the cleaned summary.
// Transport and non-2xx failures surface as MODEL_UNAVAILABLE so the
// orchestrator retries the stage.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Summarize the following document:\n\n" + text},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		ResponseFormat: map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "document_summary",
				"strict": true,
				"schema": llm.BuildSummaryJSONSchema(),
			},
		},
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	raw, status, err := llm.PostJSON(ctx, c.hc, url, req, headers, 0, c.logger)
	if err != nil {
		return "", common.NewAppError(common.CodeModelUnavailable,
			fmt.Sprintf("chat completions request failed (status %d)", status), err)
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", common.NewAppError(common.CodeModelUnavailable,
			"malformed chat completions response", err)
	}
	if resp.Error != nil {
		return "", common.NewAppError(common.CodeModelUnavailable,
			fmt.Sprintf("model error: %s", resp.Error.Message), nil)
	}
	if len(resp.Choices) == 0 {
		return "", common.NewAppError(common.CodeModelUnavailable,
			"chat completions response has no choices", nil)
	}

	content := resp.Choices[0].Message.Content
	if err := llm.ValidateJSONAgainstSchema(llm.BuildSummaryJSONSchema(), []byte(content)); err != nil {
		return "", common.NewAppError(common.CodeModelUnavailable,
			"model reply failed schema validation", err)
	}

	var reply struct {
		Summary string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return "", common.NewAppError(common.CodeModelUnavailable,
			"model reply is not valid json", err)
	}

	summary := CleanSummary(reply.Summary)
	if summary == "" {
		return "", common.NewAppError(common.CodeModelUnavailable,
			"model returned an empty summary", nil)
	}
	return summary, nil
}

// CleanSummary strips leftover markdown glyphs and replaces refusal-style
// replies with a neutral fallback summary.
func CleanSummary(s string) string {
	lower := strings.ToLower(s)
	for _, phrase := range badPhrases {
		if strings.Contains(lower, phrase) {
			return fallbackSummary
		}
	}

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.ReplaceAll(line, "**", "")
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
