package summarize

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docsum/docsum/internal/blobstore"
	"github.com/docsum/docsum/internal/common"
	"github.com/docsum/docsum/internal/llm"
	"github.com/docsum/docsum/internal/ocr"
)

// maxReducePasses bounds the chunk-and-reduce loop. If partial summaries
// still exceed the input limit after this many passes, the combined text
// is truncated to the limit for the final call.
const maxReducePasses = 3

// Result is what a successful summarization run produced.
type Result struct {
	SummaryRef    string
	SummaryLength int
	Duration      time.Duration
}

// Stage turns extracted text into a stored summary.
type Stage struct {
	blobs      blobstore.Store
	model      llm.Summarizer
	inputLimit int
	logger     *slog.Logger
}

func NewStage(blobs blobstore.Store, model llm.Summarizer, inputLimit int, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	if inputLimit <= 0 {
		inputLimit = 10000
	}
	return &Stage{blobs: blobs, model: model, inputLimit: inputLimit, logger: logger}
}

// Summarize reads the extracted text blob, produces a summary and stores
// it under the job's deterministic summary key.
func (s *Stage) Summarize(ctx context.Context, jobID uuid.UUID, textRef string) (Result, error) {
	start := time.Now()

	data, err := s.blobs.Get(ctx, textRef)
	if err != nil {
		return Result{}, common.WrapError(err, "read extracted text")
	}

	text := strings.TrimSpace(ocr.CleanStructuralNoise(string(data)))
	if text == "" {
		return Result{}, common.NewAppError(common.CodeEmptyInput,
			"extracted text is empty", nil)
	}

	summary, err := s.summarizeText(ctx, text)
	if err != nil {
		return Result{}, err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return Result{}, common.NewAppError(common.CodeModelUnavailable,
			"summarizer returned empty output", nil)
	}

	key := blobstore.SummaryKey(jobID.String())
	if err := s.blobs.Put(ctx, key, []byte(summary)); err != nil {
		return Result{}, common.WrapError(err, "store summary")
	}

	res := Result{
		SummaryRef:    key,
		SummaryLength: len(summary),
		Duration:      time.Since(start),
	}
	s.logger.Debug("summarization ok",
		"job_id", jobID, "text_len", len(text), "summary_len", res.SummaryLength,
		"elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}

// summarizeText applies the input limit. Text under the limit goes to the
// model in one call; oversized text is chunked, each chunk summarized, and
// the partial summaries reduced until they fit.
func (s *Stage) summarizeText(ctx context.Context, text string) (string, error) {
	if len(text) <= s.inputLimit {
		return s.model.Summarize(ctx, text)
	}

	s.logger.Info("input exceeds summarizer limit, chunking",
		"text_len", len(text), "limit", s.inputLimit)

	combined := text
	for pass := 1; pass <= maxReducePasses; pass++ {
		chunks := splitChunks(combined, s.inputLimit)
		parts := make([]string, 0, len(chunks))
		for _, chunk := range chunks {
			part, err := s.model.Summarize(ctx, chunk)
			if err != nil {
				return "", err
			}
			parts = append(parts, strings.TrimSpace(part))
		}
		combined = strings.Join(parts, "\n")
		if len(combined) <= s.inputLimit {
			if len(parts) == 1 {
				return combined, nil
			}
			return s.model.Summarize(ctx, combined)
		}
	}

	// Reduce did not converge within the pass bound; a truncated final call
	// keeps the stage terminating on pathological input.
	s.logger.Warn("reduce passes exhausted, truncating",
		"combined_len", len(combined), "limit", s.inputLimit)
	return s.model.Summarize(ctx, combined[:s.inputLimit])
}
