// Package ocr implements the text-recognition capability: binary document
// bytes in, recognized plain text out. PDFs are tried text-first via
// pdfcpu; scanned PDFs and images go through tesseract.
package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/docsum/docsum/constants"
	"github.com/docsum/docsum/internal/common"
)

// Recognizer is the OCR capability the extraction stage depends on.
type Recognizer interface {
	Recognize(ctx context.Context, data []byte, mediaType string) (string, error)
}

type Config struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"

	TesseractLang string // default "eng"
	TessdataDir   string
	DPI           int // rasterization DPI for scanned PDFs, default 300
	MaxPages      int // 0 = no limit
}

// Extractor implements Recognizer on top of an exec Runner so tests can
// stub the external commands.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	return &Extractor{cfg: cfg, runner: execRunner{log: logger}, logger: logger}
}

// Recognize picks a strategy based on the declared media type. The input
// is materialized to a temp file because both pdfcpu fallback rendering
// and tesseract operate on paths.
func (e *Extractor) Recognize(ctx context.Context, data []byte, mediaType string) (string, error) {
	switch mediaType {
	case constants.PDF:
		return e.recognizePDF(ctx, data)
	case constants.IMAGE:
		path, cleanup, err := e.spill(data, "page.png")
		if err != nil {
			return "", err
		}
		defer cleanup()
		return e.tesseractOCR(ctx, path)
	default:
		return "", common.NewAppError(common.CodeUnsupportedFormat,
			fmt.Sprintf("media type %q is not recognizable", mediaType), nil)
	}
}

// spill writes data to a temp file and returns its path plus a cleanup.
func (e *Extractor) spill(data []byte, name string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "docsum-ocr-*")
	if err != nil {
		return "", nil, fmt.Errorf("temp dir: %w", err)
	}
	cleanup := func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			e.logger.Warn("failed to remove ocr temp dir", "dir", dir, "error", rmErr)
		}
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("write temp input: %w", err)
	}
	return path, cleanup, nil
}
