package tools

import (
	"testing"

	"github.com/serialagent/gateway/internal/providers"
)

func TestDecodeDataURLValid(t *testing.T) {
	// base64 of "hi"
	got, err := decodeDataURL("data:image/png;base64,aGk=")
	if err != nil {
		t.Fatalf("decodeDataURL: %v", err)
	}
	if string(got) != "hi" {
		t.Fatalf("decodeDataURL = %q, want hi", got)
	}
}

func TestDecodeDataURLMissingMarker(t *testing.T) {
	if _, err := decodeDataURL("not-a-data-url"); err == nil {
		t.Fatal("expected an error for a URL without a ;base64, marker")
	}
}

func TestDecodeDataURLInvalidBase64(t *testing.T) {
	if _, err := decodeDataURL("data:image/png;base64,not-base64!!"); err == nil {
		t.Fatal("expected an error decoding invalid base64")
	}
}

func TestConvertUsageNil(t *testing.T) {
	if got := convertUsage(nil); got != nil {
		t.Fatalf("convertUsage(nil) = %v, want nil", got)
	}
}

func TestConvertUsageCopiesFields(t *testing.T) {
	u := &struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	}{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}

	got := convertUsage(u)
	want := &providers.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}
	if *got != *want {
		t.Fatalf("convertUsage = %+v, want %+v", got, want)
	}
}

func TestTruncateBytesShort(t *testing.T) {
	if got := truncateBytes([]byte("hi"), 10); got != "hi" {
		t.Fatalf("truncateBytes(short) = %q, want unchanged", got)
	}
}

func TestTruncateBytesLong(t *testing.T) {
	got := truncateBytes([]byte("hello world"), 5)
	if got != "hello..." {
		t.Fatalf("truncateBytes(long) = %q, want hello...", got)
	}
}
