// Package extract implements Stage 1 of the pipeline: input blob -> plain
// text blob. Text inputs pass through verbatim; PDF and image inputs are
// delegated to the OCR capability.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
	"github.com/docsum/docsum/internal/blobstore"
	"github.com/docsum/docsum/internal/common"
	"github.com/docsum/docsum/internal/ocr"
)

// Result is what a successful extraction hands back to the orchestrator:
// a blob reference, never the text itself, so job records stay small.
type Result struct {
	TextRef    string
	TextLength int
	Duration   time.Duration
}

type Stage struct {
	blobs  blobstore.Store
	ocr    ocr.Recognizer
	logger *slog.Logger
}

func NewStage(blobs blobstore.Store, recognizer ocr.Recognizer, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{blobs: blobs, ocr: recognizer, logger: logger}
}

// Extract reads the input blob, produces plain text, and writes it under
// the job's deterministic extracted-text key. Re-running for the same job
// overwrites the same key, which keeps duplicate stage runs idempotent.
func (s *Stage) Extract(ctx context.Context, jobID uuid.UUID, inputRef, mediaType string) (Result, error) {
	start := time.Now()

	data, err := s.blobs.Get(ctx, inputRef)
	if err != nil {
		return Result{}, fmt.Errorf("read input blob: %w", err)
	}

	var text string
	switch mediaType {
	case constants.TXT:
		if len(data) == 0 {
			return Result{}, common.NewAppError(common.CodeEmptyInput,
				"uploaded text document is empty", nil)
		}
		// Verbatim pass-through; no OCR call for declared text.
		text = string(data)
	case constants.PDF, constants.IMAGE:
		text, err = s.ocr.Recognize(ctx, data, mediaType)
		if err != nil {
			return Result{}, err
		}
		if strings.TrimSpace(text) == "" {
			return Result{}, common.NewAppError(common.CodeNoTextFound,
				"no recognizable text in document", nil)
		}
	default:
		return Result{}, common.NewAppError(common.CodeUnsupportedFormat,
			fmt.Sprintf("unknown media type %q", mediaType), nil)
	}

	textRef := blobstore.ExtractedTextKey(jobID.String())
	if err := s.blobs.Put(ctx, textRef, []byte(text)); err != nil {
		return Result{}, fmt.Errorf("store extracted text: %w", err)
	}

	res := Result{TextRef: textRef, TextLength: len(text), Duration: time.Since(start)}
	s.logger.Debug("extraction ok",
		"job_id", jobID, "media_type", mediaType,
		"text_bytes", res.TextLength, "duration_ms", res.Duration.Milliseconds())
	return res, nil
}
