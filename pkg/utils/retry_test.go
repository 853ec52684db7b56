package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBackoffDoSucceedsAfterFailures(t *testing.T) {
	b := NewBackoff().WithAttempts(3)
	b.delay = time.Millisecond
	b.cap = 5 * time.Millisecond

	calls := 0
	err := b.Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do returned %v after eventual success", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestBackoffDoReturnsLastError(t *testing.T) {
	b := NewBackoff().WithAttempts(2)
	b.delay = time.Millisecond

	wantErr := errors.New("still broken")
	calls := 0
	err := b.Do(context.Background(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestBackoffDoStopsOnCancelledContext(t *testing.T) {
	b := NewBackoff().WithAttempts(5)
	b.delay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := b.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 (cancelled before first attempt)", calls)
	}
}

func TestBackoffDelayGrowthIsCapped(t *testing.T) {
	b := NewBackoff()

	if got := b.Delay(0); got != 100*time.Millisecond {
		t.Fatalf("Delay(0) = %v, want 100ms", got)
	}
	if got := b.Delay(1); got != 200*time.Millisecond {
		t.Fatalf("Delay(1) = %v, want 200ms", got)
	}
	if got := b.Delay(20); got != 10*time.Second {
		t.Fatalf("Delay(20) = %v, want the 10s cap", got)
	}
}

func TestDoWithResult(t *testing.T) {
	b := NewBackoff().WithAttempts(2)
	b.delay = time.Millisecond

	calls := 0
	got, err := DoWithResult(context.Background(), b, func() (int, error) {
		calls++
		if calls == 1 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("DoWithResult returned %v", err)
	}
	if got != 42 {
		t.Fatalf("got = %d, want 42", got)
	}
}
