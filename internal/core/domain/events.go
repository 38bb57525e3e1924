package domain

import "time"

// Event is anything the coordinator can push to a client. The name is the
// wire-level event type; payload shape is fixed per name.
type Event interface {
	EventName() string
}

type UserJoinedEvent struct {
	UserID      UserID    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Timestamp   time.Time `json:"timestamp"`
}

func (UserJoinedEvent) EventName() string { return "user_joined" }

type RoomJoinedEvent struct {
	RoomID  RoomID `json:"room_id"`
	Message string `json:"message"`
}

func (RoomJoinedEvent) EventName() string { return "room_joined" }

type UserLeftEvent struct {
	UserID      UserID    `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Timestamp   time.Time `json:"timestamp"`
}

func (UserLeftEvent) EventName() string { return "user_left" }

// NewMessageEvent combines the persisted message with the sender's cached
// display identity so receivers never need a user lookup to render it.
type NewMessageEvent struct {
	ChatMessage
	SenderUsername    string `json:"sender_username"`
	SenderDisplayName string `json:"sender_display_name"`
}

func (NewMessageEvent) EventName() string { return "new_message" }

type UserTypingEvent struct {
	RoomID      RoomID `json:"room_id"`
	UserID      UserID `json:"user_id"`
	DisplayName string `json:"display_name"`
}

func (UserTypingEvent) EventName() string { return "user_typing" }

type UserStoppedTypingEvent struct {
	RoomID      RoomID `json:"room_id"`
	UserID      UserID `json:"user_id"`
	DisplayName string `json:"display_name"`
}

func (UserStoppedTypingEvent) EventName() string { return "user_stopped_typing" }

type LivestreamStartedEvent struct {
	StreamID     StreamID      `json:"stream_id"`
	StreamerID   UserID        `json:"streamer_id"`
	StreamerName string        `json:"streamer_name"`
	Title        string        `json:"title,omitempty"`
	Privacy      StreamPrivacy `json:"privacy"`
	ChannelName  string        `json:"channel_name"`
	RoomID       RoomID        `json:"room_id,omitempty"`
	Scope        StreamScope   `json:"-"`
}

func (e LivestreamStartedEvent) EventName() string {
	if e.Scope == ScopePersonal {
		return "personal_livestream_started"
	}
	return "livestream_started"
}

type LivestreamEndedEvent struct {
	StreamID   StreamID    `json:"stream_id"`
	StreamerID UserID      `json:"streamer_id"`
	Scope      StreamScope `json:"-"`
}

func (e LivestreamEndedEvent) EventName() string {
	if e.Scope == ScopePersonal {
		return "personal_livestream_ended"
	}
	return "livestream_ended"
}

// LivestreamReadyEvent is the private ack to the streamer carrying the
// publish-role media token for the SFU channel.
type LivestreamReadyEvent struct {
	StreamID    StreamID    `json:"stream_id"`
	ChannelName string      `json:"channel_name"`
	Token       string      `json:"token"`
	Scope       StreamScope `json:"-"`
}

func (LivestreamReadyEvent) EventName() string { return "livestream_ready" }

// StreamTokenEvent is the private ack to a joining viewer carrying the
// audience-role media token.
type StreamTokenEvent struct {
	StreamID    StreamID `json:"stream_id"`
	ChannelName string   `json:"channel_name"`
	Token       string   `json:"token"`
}

func (StreamTokenEvent) EventName() string { return "stream_token" }

type ViewerJoinedEvent struct {
	StreamID    StreamID    `json:"stream_id"`
	UserID      UserID      `json:"user_id"`
	ViewerCount int         `json:"viewer_count"`
	Scope       StreamScope `json:"-"`
}

func (e ViewerJoinedEvent) EventName() string {
	if e.Scope == ScopePersonal {
		return "personal_viewer_joined"
	}
	return "viewer_joined"
}

type ViewerLeftEvent struct {
	StreamID    StreamID    `json:"stream_id"`
	UserID      UserID      `json:"user_id"`
	ViewerCount int         `json:"viewer_count"`
	Scope       StreamScope `json:"-"`
}

func (e ViewerLeftEvent) EventName() string {
	if e.Scope == ScopePersonal {
		return "personal_viewer_left"
	}
	return "viewer_left"
}

// ErrorEvent is always delivered privately to the connection whose action
// failed, never broadcast.
type ErrorEvent struct {
	Message string `json:"message"`
}

func (ErrorEvent) EventName() string { return "error" }
