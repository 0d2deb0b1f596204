package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoRetriesRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return &HTTPError{StatusCode: 503}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Options{MaxRetries: 5, BaseDelay: time.Millisecond}, func() error {
		calls++
		return &HTTPError{StatusCode: 401, Body: []byte("bad key")}
	})
	var he *HTTPError
	if !errors.As(err, &he) || he.StatusCode != 401 {
		t.Fatalf("err = %v, want 401 HTTPError", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDoGivesUp(t *testing.T) {
	calls := 0
	var retried []int
	err := Do(context.Background(), Options{
		MaxRetries: 2,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
		OnRetry:    func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
	}, func() error {
		calls++
		return &HTTPError{StatusCode: 429, RetryAfter: time.Hour}
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(retried) != 2 {
		t.Errorf("OnRetry called %d times, want 2", len(retried))
	}
}

func TestDoHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Do(ctx, Options{MaxRetries: 3}, func() error {
		t.Fatal("fn must not run")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"5", 5 * time.Second},
		{"-1", 0},
		{"soon", 0},
		{"Mon, 02 Jan 2006 15:04:05 GMT", 0},
	}
	for _, tt := range tests {
		if got := ParseRetryAfter(tt.in); got != tt.want {
			t.Errorf("ParseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFullJitterSleepBounds(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		d := FullJitterSleep(attempt, 10*time.Millisecond, 50*time.Millisecond)
		if d < 0 || d > 50*time.Millisecond {
			t.Fatalf("attempt %d: sleep %v out of bounds", attempt, d)
		}
	}
	if d := FullJitterSleep(3, 0, time.Second); d != 0 {
		t.Errorf("zero base delay gave %v", d)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain error is not retryable")
	}
	if !IsRetryable(&HTTPError{StatusCode: 502}) {
		t.Error("502 is retryable")
	}
	if IsRetryable(context.DeadlineExceeded) {
		t.Error("deadline is not retryable")
	}
}
