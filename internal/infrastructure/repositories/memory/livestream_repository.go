package memory

import (
	"context"
	"sync"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
)

// LivestreamRepository holds authoritative livestream records in memory. The
// at-most-one-active-stream-per-streamer invariant is enforced here, on the
// record owner's side, not in the signaling layer.
type LivestreamRepository struct {
	streams map[domain.StreamID]*domain.Livestream
	active  map[domain.UserID]domain.StreamID
	mu      sync.RWMutex
}

func NewLivestreamRepository() ports.LivestreamRepository {
	return &LivestreamRepository{
		streams: make(map[domain.StreamID]*domain.Livestream),
		active:  make(map[domain.UserID]domain.StreamID),
	}
}

func (r *LivestreamRepository) Create(ctx context.Context, stream *domain.Livestream) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[stream.StreamerID]; exists {
		return domain.ErrAlreadyLive
	}

	cp := *stream
	r.streams[stream.ID] = &cp
	r.active[stream.StreamerID] = stream.ID
	return nil
}

func (r *LivestreamRepository) GetByID(ctx context.Context, id domain.StreamID) (*domain.Livestream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stream, exists := r.streams[id]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}

	cp := *stream
	return &cp, nil
}

func (r *LivestreamRepository) FindActiveByStreamer(ctx context.Context, streamerID domain.UserID) (*domain.Livestream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.active[streamerID]
	if !exists {
		return nil, domain.ErrStreamNotFound
	}

	cp := *r.streams[id]
	return &cp, nil
}

func (r *LivestreamRepository) MarkEnded(ctx context.Context, id domain.StreamID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream, exists := r.streams[id]
	if !exists {
		return domain.ErrStreamNotFound
	}
	if !stream.Live {
		return nil
	}

	stream.Live = false
	stream.EndedAt = time.Now()
	delete(r.active, stream.StreamerID)
	return nil
}

func (r *LivestreamRepository) Heartbeat(ctx context.Context, id domain.StreamID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stream, exists := r.streams[id]
	if !exists || !stream.Live {
		return domain.ErrStreamNotFound
	}

	stream.LastHeartbeat = at
	return nil
}

func (r *LivestreamRepository) ListActive(ctx context.Context) ([]*domain.Livestream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Livestream
	for _, id := range r.active {
		cp := *r.streams[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (r *LivestreamRepository) ListStale(ctx context.Context, olderThan time.Time) ([]*domain.Livestream, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Livestream
	for _, id := range r.active {
		stream := r.streams[id]
		if stream.LastHeartbeat.Before(olderThan) {
			cp := *stream
			out = append(out, &cp)
		}
	}
	return out, nil
}
