package store

import (
	"context"
	"testing"
	"time"
)

func TestFileTranscriptStoreAppendAndRead(t *testing.T) {
	s, err := NewFileTranscriptStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileTranscriptStore: %v", err)
	}
	ctx := context.Background()

	base := time.Now()
	lines := []TranscriptLine{
		{Timestamp: base, SessionID: "s1", Role: "user", Content: "hi"},
		{Timestamp: base.Add(time.Second), SessionID: "s1", Role: "assistant", Content: "hello"},
	}
	for _, l := range lines {
		if err := s.Append(ctx, "s1", l); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	got, err := s.Read(ctx, "s1", time.Time{}, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Content != "hi" || got[1].Content != "hello" {
		t.Fatalf("unexpected content order: %+v", got)
	}
}

func TestFileTranscriptStoreReadSince(t *testing.T) {
	s, _ := NewFileTranscriptStore(t.TempDir())
	ctx := context.Background()
	base := time.Now()

	s.Append(ctx, "s1", TranscriptLine{Timestamp: base, Content: "old"})
	s.Append(ctx, "s1", TranscriptLine{Timestamp: base.Add(time.Minute), Content: "new"})

	got, err := s.Read(ctx, "s1", base, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 1 || got[0].Content != "new" {
		t.Fatalf("got = %+v, want just [new]", got)
	}
}

func TestFileTranscriptStoreReadLimit(t *testing.T) {
	s, _ := NewFileTranscriptStore(t.TempDir())
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		s.Append(ctx, "s1", TranscriptLine{Timestamp: time.Now(), Content: "x"})
	}

	got, err := s.Read(ctx, "s1", time.Time{}, 2)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}

func TestFileTranscriptStoreReadMissingSession(t *testing.T) {
	s, _ := NewFileTranscriptStore(t.TempDir())
	got, err := s.Read(context.Background(), "nope", time.Time{}, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != nil {
		t.Fatalf("got = %v, want nil for a never-created session", got)
	}
}

func TestFileTranscriptStoreReset(t *testing.T) {
	s, _ := NewFileTranscriptStore(t.TempDir())
	ctx := context.Background()
	s.Append(ctx, "s1", TranscriptLine{Timestamp: time.Now(), Content: "x"})

	if err := s.Reset(ctx, "s1"); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	got, _ := s.Read(ctx, "s1", time.Time{}, 0)
	if len(got) != 0 {
		t.Fatalf("len(got) after reset = %d, want 0", len(got))
	}

	if err := s.Reset(ctx, "never-existed"); err != nil {
		t.Fatalf("Reset on a never-created session should be a no-op, got: %v", err)
	}
}

func TestSanitizeIDReplacesPathSeparators(t *testing.T) {
	tests := map[string]string{
		"agent:default:alice": "agent_default_alice",
		"a/b\\c":               "a_b_c",
		"plain":                "plain",
	}
	for in, want := range tests {
		if got := sanitizeID(in); got != want {
			t.Errorf("sanitizeID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeIDHandlesEmptyAndDots(t *testing.T) {
	for _, in := range []string{"", ".", ".."} {
		got := sanitizeID(in)
		if got == "" || got == "." || got == ".." {
			t.Errorf("sanitizeID(%q) = %q, want a safe non-dot-only name", in, got)
		}
	}
}
