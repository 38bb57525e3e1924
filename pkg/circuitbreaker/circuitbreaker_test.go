package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errBackend = errors.New("backend unavailable")

func testConfig() Config {
	return Config{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		OpenTimeout:      50 * time.Millisecond,
		HalfOpenMax:      3,
	}
}

func trip(t *testing.T, cb *CircuitBreaker) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func() error { return errBackend })
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("expected open after failures, got %v", cb.GetState())
	}
}

func TestExecute_ClosedPassesThrough(t *testing.T) {
	cb := New(DefaultConfig())
	ctx := context.Background()

	if err := cb.Execute(ctx, func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cb.Execute(ctx, func() error { return errBackend }); !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error passthrough, got %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Errorf("single failure must not open circuit, state %v", cb.GetState())
	}
}

func TestExecute_OpensAfterThresholdAndRejects(t *testing.T) {
	cb := New(testConfig())
	trip(t, cb)

	err := cb.Execute(context.Background(), func() error {
		t.Error("fn must not run while circuit is open")
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
}

func TestExecute_HalfOpenClosesAfterSuccesses(t *testing.T) {
	cb := New(testConfig())
	trip(t, cb)

	time.Sleep(60 * time.Millisecond)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, func() error { return nil }); err != nil {
			t.Fatalf("probe %d failed: %v", i+1, err)
		}
	}
	if cb.GetState() != StateClosed {
		t.Errorf("expected closed after successful probes, got %v", cb.GetState())
	}
}

func TestExecute_HalfOpenFailureReopens(t *testing.T) {
	cb := New(testConfig())
	trip(t, cb)

	time.Sleep(60 * time.Millisecond)

	err := cb.Execute(context.Background(), func() error { return errBackend })
	if !errors.Is(err, errBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	if cb.GetState() != StateOpen {
		t.Errorf("failed probe must reopen circuit, got %v", cb.GetState())
	}
}

func TestExecute_ContextCancelled(t *testing.T) {
	cb := New(DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func() error {
		t.Error("fn must not run with cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOnStateChange_ReportsTransitions(t *testing.T) {
	cb := New(testConfig())

	var mu sync.Mutex
	var seen []State
	cb.OnStateChange(func(_, to State) {
		mu.Lock()
		seen = append(seen, to)
		mu.Unlock()
	})

	trip(t, cb)
	time.Sleep(60 * time.Millisecond)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_ = cb.Execute(ctx, func() error { return nil })
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	found := map[State]bool{}
	for _, s := range seen {
		found[s] = true
	}
	if !found[StateOpen] || !found[StateClosed] {
		t.Errorf("expected transitions through open and back to closed, saw %v", seen)
	}
}

func TestReset_ClosesCircuit(t *testing.T) {
	cb := New(testConfig())
	trip(t, cb)

	cb.Reset()
	if cb.GetState() != StateClosed {
		t.Fatalf("expected closed after reset, got %v", cb.GetState())
	}
	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("unexpected error after reset: %v", err)
	}
}

func TestExecute_ConcurrentSuccesses(t *testing.T) {
	cb := New(DefaultConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = cb.Execute(ctx, func() error { return nil })
			}
		}()
	}
	wg.Wait()

	if cb.GetState() != StateClosed {
		t.Errorf("expected closed after concurrent successes, got %v", cb.GetState())
	}
}
