package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPostJSONReturnsReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q", ct)
		}
		if got := r.Header.Get("X-Token"); got != "abc" {
			t.Errorf("caller header not forwarded: %q", got)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	raw, status, err := PostJSON(context.Background(), srv.Client(), srv.URL,
		map[string]string{"q": "x"}, map[string]string{"X-Token": "abc"}, 0, nil)
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if string(raw) != `{"ok":true}` {
		t.Errorf("raw = %q", raw)
	}
}

func TestPostJSONNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	raw, status, err := PostJSON(context.Background(), srv.Client(), srv.URL, nil, nil, 0, nil)
	if err == nil {
		t.Fatal("expected error for 503")
	}
	if status != http.StatusServiceUnavailable {
		t.Errorf("status = %d", status)
	}
	// The body is still returned so callers can log provider error details.
	if !strings.Contains(string(raw), "down") {
		t.Errorf("raw = %q", raw)
	}
}

func TestPostJSONRejectsOversizedReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 2048)))
	}))
	defer srv.Close()

	_, _, err := PostJSON(context.Background(), srv.Client(), srv.URL, nil, nil, 1024, nil)
	if err == nil || !strings.Contains(err.Error(), "exceeds") {
		t.Fatalf("err = %v, want reply-cap rejection", err)
	}
}
