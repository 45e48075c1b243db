package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestExecRunnerLogsToInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	r := execRunner{log: logger}
	_, _, err := r.Run(context.Background(), "docsum-no-such-binary")
	if err == nil {
		t.Fatal("expected exec failure for a missing binary")
	}
	if !strings.Contains(buf.String(), "ocr.exec.failed") {
		t.Errorf("failure not logged on the injected logger: %q", buf.String())
	}
}

func TestExtractorWiresLoggerIntoRunner(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	e := NewExtractor(Config{}, logger)
	run, ok := e.runner.(execRunner)
	if !ok {
		t.Fatalf("runner is %T, want execRunner", e.runner)
	}
	if run.log != logger {
		t.Error("extractor logger not threaded into the exec runner")
	}
}

func TestTruncateCapsStderr(t *testing.T) {
	long := strings.Repeat("x", stderrLogCap+100)
	got := truncate(long, stderrLogCap)
	if len(got) > stderrLogCap+len("...(truncated)") {
		t.Errorf("truncate did not cap: %d bytes", len(got))
	}
	if truncate("short", stderrLogCap) != "short" {
		t.Error("short string altered")
	}
}
