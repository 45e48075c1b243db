package blobstore

import (
	"context"
	"errors"
	"testing"
)

func TestPutGetRoundtrip(t *testing.T) {
	s, err := NewFS(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	ctx := context.Background()

	key := InputKey("abc", "txt")
	if err := s.Put(ctx, key, []byte("hello")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestPutOverwrites(t *testing.T) {
	s, _ := NewFS(t.TempDir(), nil)
	ctx := context.Background()

	key := ExtractedTextKey("abc")
	if err := s.Put(ctx, key, []byte("v1")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, key, []byte("v2")); err != nil {
		t.Fatalf("Put again: %v", err)
	}
	got, _ := s.Get(ctx, key)
	if string(got) != "v2" {
		t.Errorf("got %q, want v2", got)
	}
}

func TestGetMissingKey(t *testing.T) {
	s, _ := NewFS(t.TempDir(), nil)
	_, err := s.Get(context.Background(), SummaryKey("nope"))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRejectsTraversalKeys(t *testing.T) {
	s, _ := NewFS(t.TempDir(), nil)
	ctx := context.Background()

	for _, key := range []string{"../escape", "/abs/path", "a/../../b"} {
		if err := s.Put(ctx, key, []byte("x")); err == nil {
			t.Errorf("Put(%q) accepted a traversal key", key)
		}
	}
}

func TestKeyLayout(t *testing.T) {
	if got := InputKey("id1", "pdf"); got != "jobs/id1/input.pdf" {
		t.Errorf("InputKey = %q", got)
	}
	if got := InputKey("id1", ".pdf"); got != "jobs/id1/input.pdf" {
		t.Errorf("InputKey with dot = %q", got)
	}
	if got := ExtractedTextKey("id1"); got != "jobs/id1/extracted.txt" {
		t.Errorf("ExtractedTextKey = %q", got)
	}
	if got := SummaryKey("id1"); got != "jobs/id1/summary.txt" {
		t.Errorf("SummaryKey = %q", got)
	}
}
