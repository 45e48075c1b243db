package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/docsum/docsum/constants"
	"github.com/docsum/docsum/internal/blobstore"
	"github.com/docsum/docsum/internal/common"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ []byte, _ string) (string, error) {
	f.calls++
	return f.text, f.err
}

func newTestStage(t *testing.T, rec *fakeRecognizer) (*Stage, blobstore.Store) {
	t.Helper()
	blobs, err := blobstore.NewFS(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return NewStage(blobs, rec, nil), blobs
}

func TestExtractTextPassthrough(t *testing.T) {
	rec := &fakeRecognizer{}
	stage, blobs := newTestStage(t, rec)
	ctx := context.Background()

	id := uuid.New()
	inputRef := blobstore.InputKey(id.String(), "txt")
	if err := blobs.Put(ctx, inputRef, []byte("document body")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	res, err := stage.Extract(ctx, id, inputRef, constants.TXT)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.calls != 0 {
		t.Errorf("OCR invoked %d times for TXT input", rec.calls)
	}
	if res.TextRef != blobstore.ExtractedTextKey(id.String()) {
		t.Errorf("text_ref = %q", res.TextRef)
	}
	if res.TextLength != len("document body") {
		t.Errorf("text_length = %d", res.TextLength)
	}

	stored, err := blobs.Get(ctx, res.TextRef)
	if err != nil {
		t.Fatalf("Get extracted: %v", err)
	}
	if string(stored) != "document body" {
		t.Errorf("stored text = %q", stored)
	}
}

func TestExtractEmptyTextInput(t *testing.T) {
	stage, blobs := newTestStage(t, &fakeRecognizer{})
	ctx := context.Background()

	id := uuid.New()
	inputRef := blobstore.InputKey(id.String(), "txt")
	if err := blobs.Put(ctx, inputRef, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}

	_, err := stage.Extract(ctx, id, inputRef, constants.TXT)
	if common.CodeOf(err) != common.CodeEmptyInput {
		t.Fatalf("code = %q, want EMPTY_INPUT (%v)", common.CodeOf(err), err)
	}
}

func TestExtractDelegatesToOCR(t *testing.T) {
	rec := &fakeRecognizer{text: "scanned words"}
	stage, blobs := newTestStage(t, rec)
	ctx := context.Background()

	id := uuid.New()
	inputRef := blobstore.InputKey(id.String(), "png")
	_ = blobs.Put(ctx, inputRef, []byte{0x89, 0x50})

	res, err := stage.Extract(ctx, id, inputRef, constants.IMAGE)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if rec.calls != 1 {
		t.Errorf("OCR calls = %d, want 1", rec.calls)
	}
	if res.TextLength != len("scanned words") {
		t.Errorf("text_length = %d", res.TextLength)
	}
}

func TestExtractNoTextFound(t *testing.T) {
	rec := &fakeRecognizer{text: "   \n  "}
	stage, blobs := newTestStage(t, rec)
	ctx := context.Background()

	id := uuid.New()
	inputRef := blobstore.InputKey(id.String(), "png")
	_ = blobs.Put(ctx, inputRef, []byte{1})

	_, err := stage.Extract(ctx, id, inputRef, constants.IMAGE)
	if common.CodeOf(err) != common.CodeNoTextFound {
		t.Fatalf("code = %q, want NO_TEXT_FOUND (%v)", common.CodeOf(err), err)
	}
}

func TestExtractOCRErrorPropagates(t *testing.T) {
	ocrErr := common.NewAppError(common.CodeOcrUnavailable, "tesseract missing", nil)
	rec := &fakeRecognizer{err: ocrErr}
	stage, blobs := newTestStage(t, rec)
	ctx := context.Background()

	id := uuid.New()
	inputRef := blobstore.InputKey(id.String(), "pdf")
	_ = blobs.Put(ctx, inputRef, []byte{1})

	_, err := stage.Extract(ctx, id, inputRef, constants.PDF)
	if !errors.Is(err, ocrErr) {
		t.Fatalf("err = %v, want wrapped OCR error", err)
	}
}

func TestExtractUnknownMediaType(t *testing.T) {
	stage, blobs := newTestStage(t, &fakeRecognizer{})
	ctx := context.Background()

	id := uuid.New()
	inputRef := blobstore.InputKey(id.String(), "bin")
	_ = blobs.Put(ctx, inputRef, []byte{1})

	_, err := stage.Extract(ctx, id, inputRef, "AUDIO")
	if common.CodeOf(err) != common.CodeUnsupportedFormat {
		t.Fatalf("code = %q, want UNSUPPORTED_FORMAT", common.CodeOf(err))
	}
}
