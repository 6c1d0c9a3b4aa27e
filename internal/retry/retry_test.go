package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDoSucceedsAfterFailures(t *testing.T) {
	p := Fixed(5, time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), "test op", func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	p := Fixed(3, time.Millisecond)

	calls := 0
	err := p.Do(context.Background(), "test op", func() error {
		calls++
		return errors.New("always fails")
	})

	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoStopsOnPermanent(t *testing.T) {
	p := Fixed(5, time.Millisecond)

	base := errors.New("bad credentials")
	calls := 0
	err := p.Do(context.Background(), "test op", func() error {
		calls++
		return Permanent(fmt.Errorf("auth: %w", base))
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if !errors.Is(err, base) {
		t.Errorf("expected wrapped base error, got %v", err)
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	p := Fixed(5, 10*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := p.Do(ctx, "test op", func() error {
		return errors.New("transient")
	})

	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > time.Second {
		t.Error("Do did not return promptly on cancellation")
	}
}

func TestDelayForExponential(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		Delay:       time.Second,
		Multiplier:  2,
		MaxDelay:    3 * time.Second,
	}

	if got := p.delayFor(2); got != time.Second {
		t.Errorf("attempt 2: expected 1s, got %v", got)
	}
	if got := p.delayFor(3); got != 2*time.Second {
		t.Errorf("attempt 3: expected 2s, got %v", got)
	}
	if got := p.delayFor(4); got != 3*time.Second {
		t.Errorf("attempt 4: expected cap at 3s, got %v", got)
	}
}

func TestRetryableStatus(t *testing.T) {
	retryable := []int{408, 429, 500, 502, 503, 504}
	for _, code := range retryable {
		if !RetryableStatus(code) {
			t.Errorf("expected %d to be retryable", code)
		}
	}

	permanent := []int{200, 201, 400, 401, 403, 404, 413}
	for _, code := range permanent {
		if RetryableStatus(code) {
			t.Errorf("expected %d to be non-retryable", code)
		}
	}
}
