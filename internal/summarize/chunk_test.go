package summarize

import (
	"strings"
	"testing"
)

func TestSplitChunksSmallInputUntouched(t *testing.T) {
	chunks := splitChunks("short text", 100)
	if len(chunks) != 1 || chunks[0] != "short text" {
		t.Fatalf("chunks = %v", chunks)
	}
}

func TestSplitChunksRespectsBudget(t *testing.T) {
	paras := make([]string, 20)
	for i := range paras {
		paras[i] = strings.Repeat("word ", 30)
	}
	text := strings.Join(paras, "\n\n")

	const budget = 400
	chunks := splitChunks(text, budget)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > budget {
			t.Errorf("chunk %d has %d bytes, budget %d", i, len(c), budget)
		}
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is blank", i)
		}
	}
}

func TestSplitChunksKeepsAllContent(t *testing.T) {
	text := "alpha one\n\nbeta two\n\ngamma three"
	joined := strings.Join(splitChunks(text, 12), "\n")
	for _, word := range []string{"alpha", "beta", "gamma", "one", "two", "three"} {
		if !strings.Contains(joined, word) {
			t.Errorf("word %q lost in chunking", word)
		}
	}
}

func TestSplitChunksHardCutsOversizedLine(t *testing.T) {
	line := strings.Repeat("x", 950)
	chunks := splitChunks(line, 100)
	total := 0
	for i, c := range chunks {
		if len(c) > 100 {
			t.Errorf("chunk %d has %d bytes", i, len(c))
		}
		total += len(c)
	}
	if total < 900 {
		t.Errorf("content lost: %d of %d bytes survived", total, len(line))
	}
}
