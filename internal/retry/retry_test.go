package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestDo_SingleAttemptReturnsErrorUnwrapped(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{Attempts: 1}, func() error {
		calls++
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("err = %v, want errBoom unwrapped", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{Attempts: 3, BaseDelay: time.Millisecond, Jitter: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errBoom
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestDo_WrapsLastErrorAfterExhaustion(t *testing.T) {
	err := Do(context.Background(), Config{Attempts: 2, BaseDelay: time.Millisecond, Jitter: time.Millisecond}, func() error {
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want wrapped errBoom", err)
	}
}

func TestDo_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	cfg := Config{
		Attempts:  5,
		BaseDelay: time.Millisecond,
		Jitter:    time.Millisecond,
		Retryable: func(err error) bool { return false },
	}
	err := Do(context.Background(), cfg, func() error {
		calls++
		return errBoom
	})
	if err != errBoom || calls != 1 {
		t.Fatalf("err = %v calls = %d, want errBoom after 1 call", err, calls)
	}
}

func TestDo_PermanentIsUnwrapped(t *testing.T) {
	calls := 0
	err := Do(context.Background(), Config{Attempts: 5, BaseDelay: time.Millisecond, Jitter: time.Millisecond}, func() error {
		calls++
		return Permanent(errBoom)
	})
	if err != errBoom || calls != 1 {
		t.Fatalf("err = %v calls = %d", err, calls)
	}
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{Attempts: 3, BaseDelay: time.Second, MaxDelay: time.Second, Jitter: time.Millisecond}
	err := Do(ctx, cfg, func() error {
		cancel()
		return errBoom
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
