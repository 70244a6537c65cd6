package poll

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/mvelez/jobdeck/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetrier_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	r := NewRetrier(2, 10*time.Millisecond, discardLogger())
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestRetrier_RetriesOn5xx(t *testing.T) {
	calls := 0
	r := NewRetrier(2, 10*time.Millisecond, discardLogger())
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &model.HTTPError{StatusCode: 503, Err: errors.New("service unavailable")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetrier_DoesNotRetryOn4xx(t *testing.T) {
	calls := 0
	r := NewRetrier(2, 10*time.Millisecond, discardLogger())
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return &model.HTTPError{StatusCode: 403, Err: errors.New("bad credentials")}
	})
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != 403 {
		t.Fatalf("expected HTTPError 403, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", calls)
	}
}

func TestRetrier_Retries429WithRetryAfter(t *testing.T) {
	calls := 0
	start := time.Now()
	r := NewRetrier(1, time.Millisecond, discardLogger())
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		if calls == 1 {
			return &model.HTTPError{StatusCode: 429, RetryAfter: 50 * time.Millisecond}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	// Retry-After takes precedence over the backoff base delay.
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("retry fired before Retry-After elapsed: %v", elapsed)
	}
}

func TestRetrier_GivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	r := NewRetrier(2, 10*time.Millisecond, discardLogger())
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return &model.HTTPError{StatusCode: 500, Err: errors.New("internal error")}
	})
	if err == nil {
		t.Fatal("expected error after max retries")
	}
	// 1 initial + 2 retries = 3
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestRetrier_RespectsContextCancellation(t *testing.T) {
	calls := 0
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRetrier(2, time.Second, discardLogger())
	err := r.Do(ctx, func(context.Context) error {
		calls++
		return &model.HTTPError{StatusCode: 500}
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("120"); got != 120*time.Second {
		t.Fatalf("parseRetryAfter(120) = %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Fatalf("empty value should parse to zero, got %v", got)
	}
	if got := parseRetryAfter("soon"); got != 0 {
		t.Fatalf("unparseable value should parse to zero, got %v", got)
	}
}
