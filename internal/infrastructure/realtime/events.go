package realtime

import (
	"encoding/json"
	"fmt"

	"huddle/internal/core/domain"
	"huddle/pkg/validation"
)

// Envelope is the wire framing for both directions: a fixed event type name
// plus a payload whose schema is determined by the name. Unknown names and
// malformed payloads fail fast with a DecodeError instead of propagating
// zero values into handler logic.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client-to-server event names.
const (
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventTypingStart = "typing_start"
	EventTypingStop  = "typing_stop"
	EventStartStream = "start_stream"
	EventStopStream  = "stop_stream"
	EventJoinStream  = "join_stream"
	EventLeaveStream = "leave_stream"
	EventHeartbeat   = "heartbeat"
)

// DecodeError reports a payload that failed boundary validation.
type DecodeError struct {
	EventType string
	Reason    string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s payload: %s", e.EventType, e.Reason)
}

func decodeErr(eventType, format string, args ...interface{}) *DecodeError {
	return &DecodeError{EventType: eventType, Reason: fmt.Sprintf(format, args...)}
}

type JoinRoomPayload struct {
	RoomID domain.RoomID `json:"room_id"`
	UserID domain.UserID `json:"user_id"`
}

type SendMessagePayload struct {
	RoomID      domain.RoomID      `json:"room_id"`
	Content     string             `json:"content"`
	MessageType domain.MessageType `json:"message_type"`
	FileURL     string             `json:"file_url,omitempty"`
	FileName    string             `json:"file_name,omitempty"`
	FileSize    int64              `json:"file_size,omitempty"`
}

type TypingPayload struct {
	RoomID domain.RoomID `json:"room_id"`
}

type StartStreamPayload struct {
	Scope       domain.StreamScope   `json:"scope"`
	Privacy     domain.StreamPrivacy `json:"privacy"`
	Title       string               `json:"title,omitempty"`
	Description string               `json:"description,omitempty"`
}

type JoinStreamPayload struct {
	StreamerID domain.UserID `json:"streamer_id"`
}

type LeaveStreamPayload struct {
	StreamerID domain.UserID `json:"streamer_id"`
}

type HeartbeatPayload struct {
	StreamID domain.StreamID `json:"stream_id"`
}

func decodeJoinRoom(raw json.RawMessage) (*JoinRoomPayload, error) {
	var p JoinRoomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, decodeErr(EventJoinRoom, "%v", err)
	}
	if err := validation.ValidateRoomID(string(p.RoomID)); err != nil {
		return nil, decodeErr(EventJoinRoom, "%v", err)
	}
	if err := validation.ValidateUserID(string(p.UserID)); err != nil {
		return nil, decodeErr(EventJoinRoom, "%v", err)
	}
	return &p, nil
}

func decodeSendMessage(raw json.RawMessage) (*SendMessagePayload, error) {
	var p SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, decodeErr(EventSendMessage, "%v", err)
	}
	if err := validation.ValidateRoomID(string(p.RoomID)); err != nil {
		return nil, decodeErr(EventSendMessage, "%v", err)
	}
	if p.MessageType == "" {
		p.MessageType = domain.MessageTypeText
	}
	switch p.MessageType {
	case domain.MessageTypeText:
		if p.Content == "" {
			return nil, decodeErr(EventSendMessage, "content is required for text messages")
		}
		if err := validation.ValidateMessageContent(p.Content); err != nil {
			return nil, decodeErr(EventSendMessage, "%v", err)
		}
	case domain.MessageTypeImage, domain.MessageTypeVideo, domain.MessageTypeAudio, domain.MessageTypeFile:
		if err := validation.ValidateFileURL(p.FileURL); err != nil {
			return nil, decodeErr(EventSendMessage, "%v", err)
		}
	default:
		return nil, decodeErr(EventSendMessage, "unknown message type %q", p.MessageType)
	}
	return &p, nil
}

func decodeTyping(eventType string, raw json.RawMessage) (*TypingPayload, error) {
	var p TypingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, decodeErr(eventType, "%v", err)
	}
	if err := validation.ValidateRoomID(string(p.RoomID)); err != nil {
		return nil, decodeErr(eventType, "%v", err)
	}
	return &p, nil
}

func decodeStartStream(raw json.RawMessage) (*StartStreamPayload, error) {
	var p StartStreamPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, decodeErr(EventStartStream, "%v", err)
	}
	if p.Scope == "" {
		p.Scope = domain.ScopePersonal
	}
	if p.Scope != domain.ScopeRoom && p.Scope != domain.ScopePersonal {
		return nil, decodeErr(EventStartStream, "unknown scope %q", p.Scope)
	}
	if p.Privacy == "" {
		p.Privacy = domain.PrivacyPublic
	}
	if p.Privacy != domain.PrivacyPublic && p.Privacy != domain.PrivacyFriendsOnly {
		return nil, decodeErr(EventStartStream, "unknown privacy %q", p.Privacy)
	}
	if err := validation.ValidateStreamTitle(p.Title); err != nil {
		return nil, decodeErr(EventStartStream, "%v", err)
	}
	return &p, nil
}

func decodeStreamerRef(eventType string, raw json.RawMessage) (domain.UserID, error) {
	var p JoinStreamPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", decodeErr(eventType, "%v", err)
	}
	if err := validation.ValidateUserID(string(p.StreamerID)); err != nil {
		return "", decodeErr(eventType, "%v", err)
	}
	return p.StreamerID, nil
}

func decodeHeartbeat(raw json.RawMessage) (*HeartbeatPayload, error) {
	var p HeartbeatPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, decodeErr(EventHeartbeat, "%v", err)
	}
	if p.StreamID == "" {
		return nil, decodeErr(EventHeartbeat, "stream_id is required")
	}
	return &p, nil
}

// encodeEvent wraps a server-side event into its wire envelope.
func encodeEvent(event domain.Event) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", event.EventName(), err)
	}
	return json.Marshal(Envelope{
		Type:    event.EventName(),
		Payload: payload,
	})
}
