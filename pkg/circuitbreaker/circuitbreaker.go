package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker rejects a call without executing it.
var ErrOpen = errors.New("circuit breaker open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker tuning knobs.
type Config struct {
	FailureThreshold int           // consecutive failures before the circuit opens
	SuccessThreshold int           // successes in half-open before the circuit closes
	OpenTimeout      time.Duration // how long the circuit stays open before probing
	HalfOpenMax      int           // max in-flight probes in half-open state
}

// DefaultConfig returns conservative defaults suitable for a local Redis.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      30 * time.Second,
		HalfOpenMax:      3,
	}
}

// CircuitBreaker guards a dependency from cascading failures. After
// FailureThreshold consecutive failures calls are rejected with ErrOpen
// until OpenTimeout passes, then a limited number of probe calls decide
// whether the circuit closes again.
type CircuitBreaker struct {
	cfg Config

	mu            sync.Mutex
	state         State
	failures      int
	successes     int
	halfOpenCalls int
	changedAt     time.Time

	onStateChange func(from, to State)
}

// New creates a circuit breaker in the closed state.
func New(cfg Config) *CircuitBreaker {
	return &CircuitBreaker{
		cfg:       cfg,
		state:     StateClosed,
		changedAt: time.Now(),
	}
}

// OnStateChange registers a callback invoked on every state transition.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn if the circuit allows it and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !cb.allow() {
		return ErrOpen
	}

	if err := fn(); err != nil {
		cb.recordFailure()
		return err
	}
	cb.recordSuccess()
	return nil
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if time.Since(cb.changedAt) >= cb.cfg.OpenTimeout {
			cb.transition(StateHalfOpen)
			cb.halfOpenCalls++
			return true
		}
		return false
	case StateHalfOpen:
		if cb.halfOpenCalls >= cb.cfg.HalfOpenMax {
			return false
		}
		cb.halfOpenCalls++
		return true
	default:
		return true
	}
}

func (cb *CircuitBreaker) recordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.successes = 0

	switch cb.state {
	case StateClosed:
		if cb.failures >= cb.cfg.FailureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		// A failed probe reopens the circuit immediately.
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) recordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successes++
	cb.failures = 0

	if cb.state == StateHalfOpen && cb.successes >= cb.cfg.SuccessThreshold {
		cb.transition(StateClosed)
	}
}

func (cb *CircuitBreaker) transition(next State) {
	if cb.state == next {
		return
	}
	prev := cb.state
	cb.state = next
	cb.changedAt = time.Now()
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenCalls = 0

	if cb.onStateChange != nil {
		go cb.onStateChange(prev, next)
	}
}

// GetState returns the current state.
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forces the breaker back to the closed state.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transition(StateClosed)
}
