package ports

import (
	"context"
	"time"

	"huddle/internal/core/domain"
)

// PresenceRegistry owns the ephemeral per-connection state. It is never
// persisted; every entry is rebuilt from zero on process restart.
type PresenceRegistry interface {
	Put(ctx context.Context, presence *domain.Presence) error
	Get(ctx context.Context, id domain.ConnectionID) (*domain.Presence, error)
	Remove(ctx context.Context, id domain.ConnectionID) error
	SetRoom(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID) error
	ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.Presence, error)
}

// MessageRepository is the external message-persistence collaborator. Save
// assigns the message id and creation timestamp.
type MessageRepository interface {
	Save(ctx context.Context, msg *domain.ChatMessage) error
}

// LivestreamRepository holds the authoritative livestream records. Create
// returns domain.ErrAlreadyLive when the streamer already has an active
// record; lookups return domain.ErrStreamNotFound.
type LivestreamRepository interface {
	Create(ctx context.Context, stream *domain.Livestream) error
	GetByID(ctx context.Context, id domain.StreamID) (*domain.Livestream, error)
	FindActiveByStreamer(ctx context.Context, streamerID domain.UserID) (*domain.Livestream, error)
	MarkEnded(ctx context.Context, id domain.StreamID) error
	Heartbeat(ctx context.Context, id domain.StreamID, at time.Time) error
	ListActive(ctx context.Context) ([]*domain.Livestream, error)
	ListStale(ctx context.Context, olderThan time.Time) ([]*domain.Livestream, error)
}

// UserRepository is the external user-lookup collaborator.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	SetOnline(ctx context.Context, id domain.UserID, online bool) error
}
