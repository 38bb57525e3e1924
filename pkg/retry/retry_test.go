package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFlaky = errors.New("flaky backend")

func fastConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     10 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestDo_RecoversAfterFailures(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		if attempts < 3 {
			return errFlaky
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return errFlaky
	})
	if !errors.Is(err, errFlaky) {
		t.Fatalf("expected wrapped errFlaky, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestDo_PermanentStopsRetrying(t *testing.T) {
	wantErr := errors.New("bad input")
	attempts := 0
	err := Do(context.Background(), fastConfig(), func() error {
		attempts++
		return Permanent(wantErr)
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected bad input error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("permanent error must not be retried, got %d attempts", attempts)
	}
}

func TestDo_ContextCancelledDuringWait(t *testing.T) {
	cfg := Config{
		MaxAttempts:  5,
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
		Multiplier:   1.0,
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	attempts := 0
	err := Do(ctx, cfg, func() error {
		attempts++
		return errFlaky
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt before the long wait, got %d", attempts)
	}
}

func TestDo_JitterStaysPositive(t *testing.T) {
	cfg := fastConfig()
	cfg.Jitter = true
	for attempt := 0; attempt < 5; attempt++ {
		if d := delayFor(cfg, attempt); d < 0 {
			t.Fatalf("negative delay %v at attempt %d", d, attempt)
		}
	}
}

func TestPermanent_NilPassthrough(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) must be nil")
	}
}
