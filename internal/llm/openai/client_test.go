package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/docsum/docsum/internal/common"
)

func completionsServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}, "finish_reason": "stop"},
			},
		})
	}))
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{BaseURL: baseURL, Model: "gpt-4o-mini", APIKey: "test-key"}, nil)
}

func TestSummarizeHappyPath(t *testing.T) {
	srv := completionsServer(t, http.StatusOK, `{"summary":"1. Point one.\n2. Point two."}`)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Summarize(context.Background(), "document text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got != "1. Point one.\n2. Point two." {
		t.Errorf("got %q", got)
	}
}

func TestSummarizeStripsBulletGlyphs(t *testing.T) {
	srv := completionsServer(t, http.StatusOK, `{"summary":"- first fact\n* second fact\n• third fact"}`)
	defer srv.Close()

	got, err := newTestClient(srv.URL).Summarize(context.Background(), "text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if strings.ContainsAny(got, "-*•") {
		t.Errorf("bullet glyphs survived: %q", got)
	}
}

func TestSummarizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).Summarize(context.Background(), "text")
	if common.CodeOf(err) != common.CodeModelUnavailable {
		t.Fatalf("code = %q, want MODEL_UNAVAILABLE (%v)", common.CodeOf(err), err)
	}
}

func TestSummarizeRejectsNonSchemaReply(t *testing.T) {
	srv := completionsServer(t, http.StatusOK, `{"wrong_field":"x"}`)
	defer srv.Close()

	_, err := newTestClient(srv.URL).Summarize(context.Background(), "text")
	if common.CodeOf(err) != common.CodeModelUnavailable {
		t.Fatalf("code = %q, want MODEL_UNAVAILABLE (%v)", common.CodeOf(err), err)
	}
}

func TestCleanSummary(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain passthrough", "1. Fact.", "1. Fact."},
		{"markdown bold stripped", "**Important** point", "Important point"},
		{"blank lines dropped", "a\n\n\nb", "a\nb"},
		{"refusal replaced", "I'm sorry, I cannot summarize this.", fallbackSummary},
		{"corrupted-input complaint replaced", "The document appears to be corrupted.", fallbackSummary},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanSummary(tt.in); got != tt.want {
				t.Errorf("CleanSummary(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
