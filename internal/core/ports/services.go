package ports

import (
	"context"

	"huddle/internal/core/domain"
)

type RoomService interface {
	// JoinRoom resolves the user, records presence and announces the join.
	// Joining the room the connection is already in is a no-op beyond the
	// private ack; joining a different room implicitly leaves the old one.
	JoinRoom(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID, userID domain.UserID) error

	// LeaveRoom is a no-op when the connection is not in a room.
	LeaveRoom(ctx context.Context, connID domain.ConnectionID) error

	// Disconnect performs leave semantics, marks the user offline
	// (best-effort) and removes the presence entry entirely.
	Disconnect(ctx context.Context, connID domain.ConnectionID) error
}

type SendMessageInput struct {
	RoomID   domain.RoomID
	Content  string
	Type     domain.MessageType
	FileURL  string
	FileName string
	FileSize int64
}

type MessageService interface {
	// SendMessage persists then broadcasts. The sender receives the
	// broadcast too; there is no local echo path.
	SendMessage(ctx context.Context, connID domain.ConnectionID, input SendMessageInput) error
}

type TypingService interface {
	StartTyping(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) error
	StopTyping(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) error

	// HandleDisconnect clears any typing entries held for the connection's
	// user so indicators cannot stick after a mid-type disconnect.
	HandleDisconnect(ctx context.Context, connID domain.ConnectionID)
}

type StartStreamInput struct {
	Scope       domain.StreamScope
	Privacy     domain.StreamPrivacy
	Title       string
	Description string
}

type LivestreamService interface {
	StartStream(ctx context.Context, connID domain.ConnectionID, input StartStreamInput) error
	JoinStream(ctx context.Context, connID domain.ConnectionID, streamerID domain.UserID) error
	StopStream(ctx context.Context, connID domain.ConnectionID) error
	LeaveStream(ctx context.Context, connID domain.ConnectionID, streamerID domain.UserID) error
	Heartbeat(ctx context.Context, connID domain.ConnectionID, streamID domain.StreamID) error

	// HandleDisconnect ends the connection's own stream if it was
	// publishing and emits viewer_left for every stream it was watching.
	HandleDisconnect(ctx context.Context, connID domain.ConnectionID)
}

// MediaTokenService issues signed tokens scoped to one SFU channel, one uid
// and one role. The channel name is format-validated before signing.
type MediaTokenService interface {
	Issue(channel string, uid domain.UserID, role domain.MediaRole) (string, error)
}
