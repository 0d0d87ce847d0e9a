package providers

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestRetryableHTTPStatus(t *testing.T) {
	cases := map[int]bool{
		200: false,
		429: true,
		500: true,
		503: true,
		400: false,
		404: false,
	}
	for status, want := range cases {
		if got := RetryableHTTPStatus(status); got != want {
			t.Errorf("RetryableHTTPStatus(%d) = %v, want %v", status, got, want)
		}
	}
}

func TestRetryDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	result, err := RetryDo(context.Background(), DefaultRetryConfig(), func() (string, error) {
		calls++
		return "ok", nil
	})
	if err != nil || result != "ok" {
		t.Fatalf("RetryDo = (%q, %v)", result, err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestRetryDoRetriesRetryableError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	calls := 0
	result, err := RetryDo(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, &HTTPError{Status: 503}
		}
		return 42, nil
	})
	if err != nil || result != 42 {
		t.Fatalf("RetryDo = (%d, %v)", result, err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryDoGivesUpOnNonRetryableError(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 5, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	calls := 0
	_, err := RetryDo(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, &HTTPError{Status: 400}
	})
	if err == nil {
		t.Fatal("expected an error for a non-retryable HTTP status")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retry on a non-retryable error)", calls)
	}
}

func TestRetryDoStopsAfterMaxAttempts(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: 10 * time.Millisecond}
	calls := 0
	_, err := RetryDo(context.Background(), cfg, func() (int, error) {
		calls++
		return 0, &HTTPError{Status: 500}
	})
	if err == nil {
		t.Fatal("expected an error after exhausting all attempts")
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (MaxAttempts)", calls)
	}
}

func TestRetryDoRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := RetryDo(ctx, DefaultRetryConfig(), func() (int, error) {
		calls++
		return 0, nil
	})
	if err == nil {
		t.Fatal("expected an error for an already-cancelled context")
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 (context checked before first attempt)", calls)
	}
}

func TestRetryDoZeroMaxAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := RetryDo(context.Background(), RetryConfig{}, func() (int, error) {
		calls++
		return 0, errors.New("fail")
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 when MaxAttempts<=0 defaults to 1", calls)
	}
}

func TestHTTPErrorMessage(t *testing.T) {
	e := &HTTPError{Status: http.StatusServiceUnavailable, Body: "overloaded"}
	got := e.Error()
	if got == "" {
		t.Fatal("expected a non-empty error message")
	}
}

func TestParseRetryAfterSeconds(t *testing.T) {
	got := ParseRetryAfter("30")
	if got != 30*time.Second {
		t.Fatalf("ParseRetryAfter(30) = %v, want 30s", got)
	}
}

func TestParseRetryAfterEmpty(t *testing.T) {
	if got := ParseRetryAfter(""); got != 0 {
		t.Fatalf("ParseRetryAfter(\"\") = %v, want 0", got)
	}
}

func TestParseRetryAfterUnparseable(t *testing.T) {
	if got := ParseRetryAfter("not-a-date-or-seconds"); got != 0 {
		t.Fatalf("ParseRetryAfter(garbage) = %v, want 0", got)
	}
}

func TestParseRetryAfterHTTPDate(t *testing.T) {
	future := time.Now().Add(2 * time.Minute).UTC().Format(http.TimeFormat)
	got := ParseRetryAfter(future)
	if got <= 0 {
		t.Fatalf("ParseRetryAfter(future http-date) = %v, want > 0", got)
	}
}
