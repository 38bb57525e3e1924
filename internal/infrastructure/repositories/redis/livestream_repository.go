package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

// RedisLivestreamRepository stores authoritative livestream records keyed by
// stream id, with a streamer-id index for the active record and a hash of
// last-heartbeat timestamps for the reaper.
type RedisLivestreamRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisLivestreamRepository(client *redis.Client) ports.LivestreamRepository {
	return &RedisLivestreamRepository{
		client: client,
		prefix: "huddle:livestream:",
	}
}

func (r *RedisLivestreamRepository) streamKey(id domain.StreamID) string {
	return r.prefix + string(id)
}

func (r *RedisLivestreamRepository) activeByStreamerKey(streamerID domain.UserID) string {
	return r.prefix + "active:" + string(streamerID)
}

func (r *RedisLivestreamRepository) activeSetKey() string {
	return r.prefix + "active"
}

func (r *RedisLivestreamRepository) heartbeatsKey() string {
	return r.prefix + "heartbeats"
}

func (r *RedisLivestreamRepository) Create(ctx context.Context, stream *domain.Livestream) error {
	data, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal livestream: %w", err)
	}

	// SetNX on the streamer index is the one-active-stream-per-streamer
	// guard; losing the race means another start already succeeded.
	ok, err := r.client.SetNX(ctx, r.activeByStreamerKey(stream.StreamerID), string(stream.ID), 0).Result()
	if err != nil {
		return fmt.Errorf("failed to claim active slot: %w", err)
	}
	if !ok {
		return domain.ErrAlreadyLive
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.streamKey(stream.ID), data, 0)
	pipe.SAdd(ctx, r.activeSetKey(), string(stream.ID))
	pipe.HSet(ctx, r.heartbeatsKey(), string(stream.ID), stream.LastHeartbeat.UnixMilli())
	if _, err := pipe.Exec(ctx); err != nil {
		r.client.Del(ctx, r.activeByStreamerKey(stream.StreamerID))
		return fmt.Errorf("failed to store livestream in Redis: %w", err)
	}

	return nil
}

func (r *RedisLivestreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Livestream, error) {
	data, err := r.client.Get(ctx, r.streamKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get livestream from Redis: %w", err)
	}

	var stream domain.Livestream
	if err := json.Unmarshal([]byte(data), &stream); err != nil {
		return nil, fmt.Errorf("failed to unmarshal livestream: %w", err)
	}

	return &stream, nil
}

func (r *RedisLivestreamRepository) FindActiveByStreamer(ctx context.Context, streamerID domain.UserID) (*domain.Livestream, error) {
	id, err := r.client.Get(ctx, r.activeByStreamerKey(streamerID)).Result()
	if err == redis.Nil {
		return nil, domain.ErrStreamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve active livestream: %w", err)
	}

	return r.GetByID(ctx, domain.StreamID(id))
}

func (r *RedisLivestreamRepository) MarkEnded(ctx context.Context, id domain.StreamID) error {
	stream, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !stream.Live {
		return nil
	}

	stream.Live = false
	stream.EndedAt = time.Now()

	data, err := json.Marshal(stream)
	if err != nil {
		return fmt.Errorf("failed to marshal livestream: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.streamKey(id), data, 0)
	pipe.Del(ctx, r.activeByStreamerKey(stream.StreamerID))
	pipe.SRem(ctx, r.activeSetKey(), string(id))
	pipe.HDel(ctx, r.heartbeatsKey(), string(id))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark livestream ended: %w", err)
	}

	return nil
}

func (r *RedisLivestreamRepository) Heartbeat(ctx context.Context, id domain.StreamID, at time.Time) error {
	exists, err := r.client.SIsMember(ctx, r.activeSetKey(), string(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to check livestream liveness: %w", err)
	}
	if !exists {
		return domain.ErrStreamNotFound
	}

	if err := r.client.HSet(ctx, r.heartbeatsKey(), string(id), at.UnixMilli()).Err(); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return nil
}

func (r *RedisLivestreamRepository) ListActive(ctx context.Context) ([]*domain.Livestream, error) {
	ids, err := r.client.SMembers(ctx, r.activeSetKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list active livestreams: %w", err)
	}

	var out []*domain.Livestream
	for _, id := range ids {
		stream, err := r.GetByID(ctx, domain.StreamID(id))
		if err == domain.ErrStreamNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, stream)
	}
	return out, nil
}

func (r *RedisLivestreamRepository) ListStale(ctx context.Context, olderThan time.Time) ([]*domain.Livestream, error) {
	beats, err := r.client.HGetAll(ctx, r.heartbeatsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read heartbeats: %w", err)
	}

	cutoff := olderThan.UnixMilli()
	var out []*domain.Livestream
	for id, raw := range beats {
		var ms int64
		if _, err := fmt.Sscanf(raw, "%d", &ms); err != nil {
			continue
		}
		if ms >= cutoff {
			continue
		}
		stream, err := r.GetByID(ctx, domain.StreamID(id))
		if err == domain.ErrStreamNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, stream)
	}
	return out, nil
}
