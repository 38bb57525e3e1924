package repositories

import (
	"context"

	"huddle/internal/core/ports"
	"huddle/internal/infrastructure/repositories/memory"
	redisrepo "huddle/internal/infrastructure/repositories/redis"
	"huddle/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory selects Redis-backed or in-memory collaborator implementations.
// A failed Redis connection falls back to memory rather than refusing to
// start; the in-memory side is authoritative enough for a single node.
type Factory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func NewFactory(cfg *config.Config, logger *zap.SugaredLogger) (*Factory, error) {
	factory := &Factory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory, nil
}

// CreatePresenceRegistry always returns the in-memory registry: presence is
// process-local by design and must not survive a restart.
func (f *Factory) CreatePresenceRegistry() ports.PresenceRegistry {
	return memory.NewPresenceRegistry()
}

func (f *Factory) CreateLivestreamRepository() ports.LivestreamRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisLivestreamRepository(f.redisClient)
	}
	return memory.NewLivestreamRepository()
}

// CreateUserRepository wraps the store in a short-TTL read cache; sender
// profiles are resolved on every message broadcast.
func (f *Factory) CreateUserRepository() ports.UserRepository {
	var inner ports.UserRepository
	if f.useRedis && f.redisClient != nil {
		inner = redisrepo.NewRedisUserRepository(f.redisClient)
	} else {
		inner = memory.NewUserRepository()
	}
	return NewCachedUserRepository(inner)
}

// CreateMessageRepository guards the message store with retry and a circuit
// breaker so a failing store degrades broadcasts instead of stalling them.
func (f *Factory) CreateMessageRepository() ports.MessageRepository {
	return NewResilientMessageRepository(memory.NewMessageRepository(), f.logger)
}

// HealthCheck pings Redis when it is in use. Memory-backed factories are
// always healthy.
func (f *Factory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}

// Close releases the Redis connection if one was opened.
func (f *Factory) Close() error {
	return redisrepo.CloseRedisClient(f.redisClient)
}
