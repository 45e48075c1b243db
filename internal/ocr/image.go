package ocr

import (
	"context"
	"fmt"
	"regexp"

	"github.com/docsum/docsum/internal/common"
)

var reBoxNoise = regexp.MustCompile(`(?m)^\s*[_\-]{3,}\s*$`)

// tesseractOCR runs `tesseract <file> stdout -l <lang>` and returns the
// normalized text. An exec failure is a capability outage, not bad input.
func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, error) {
	args := []string{path, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", common.NewAppError(common.CodeOcrUnavailable,
			fmt.Sprintf("tesseract: %s", truncate(string(errb), 512)), err)
	}

	// minor cleanup of obvious line noise
	txt := reBoxNoise.ReplaceAllString(string(out), "")
	return Normalize(txt), nil
}
