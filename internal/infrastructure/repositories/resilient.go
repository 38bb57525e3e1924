package repositories

import (
	"context"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
	"huddle/pkg/circuitbreaker"
	"huddle/pkg/retry"

	"go.uber.org/zap"
)

// ResilientMessageRepository guards the message store with retries and a
// circuit breaker. Message persistence sits on the broadcast hot path, so a
// struggling store must fail fast instead of stalling every room.
type ResilientMessageRepository struct {
	inner    ports.MessageRepository
	breaker  *circuitbreaker.CircuitBreaker
	retryCfg retry.Config
	logger   *zap.SugaredLogger
}

func NewResilientMessageRepository(inner ports.MessageRepository, logger *zap.SugaredLogger) *ResilientMessageRepository {
	r := &ResilientMessageRepository{
		inner:    inner,
		breaker:  circuitbreaker.New(circuitbreaker.DefaultConfig()),
		retryCfg: retry.DefaultConfig(),
		logger:   logger,
	}
	r.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("message store circuit state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})
	return r
}

func (r *ResilientMessageRepository) Save(ctx context.Context, msg *domain.ChatMessage) error {
	// Validation failures are deterministic; retrying them only burns the
	// attempt budget and pollutes the breaker counters.
	if err := msg.Validate(); err != nil {
		return err
	}

	return retry.Do(ctx, r.retryCfg, func() error {
		err := r.breaker.Execute(ctx, func() error {
			return r.inner.Save(ctx, msg)
		})
		if err == circuitbreaker.ErrOpen {
			return retry.Permanent(err)
		}
		return err
	})
}

var _ ports.MessageRepository = (*ResilientMessageRepository)(nil)
