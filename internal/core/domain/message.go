package domain

import (
	"fmt"
	"time"
)

type MessageID string

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeVideo MessageType = "video"
	MessageTypeAudio MessageType = "audio"
	MessageTypeFile  MessageType = "file"
)

// ChatMessage is immutable once persisted. ID and CreatedAt are assigned by
// the message repository, never by the caller.
type ChatMessage struct {
	ID        MessageID   `json:"id"`
	RoomID    RoomID      `json:"room_id"`
	SenderID  UserID      `json:"sender_id"`
	Content   string      `json:"content"`
	Type      MessageType `json:"type"`
	FileURL   string      `json:"file_url,omitempty"`
	FileName  string      `json:"file_name,omitempty"`
	FileSize  int64       `json:"file_size,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// Validate checks the invariants that hold for every message regardless of
// where it came from: exactly one room, exactly one sender, and a non-empty
// file URL for attachment-type messages.
func (m *ChatMessage) Validate() error {
	if m.RoomID == "" {
		return fmt.Errorf("message must belong to a room")
	}
	if m.SenderID == "" {
		return fmt.Errorf("message must have a sender")
	}
	switch m.Type {
	case MessageTypeText:
		if m.Content == "" {
			return fmt.Errorf("text message must have content")
		}
	case MessageTypeImage, MessageTypeVideo, MessageTypeAudio, MessageTypeFile:
		if m.FileURL == "" {
			return fmt.Errorf("%s message must carry a file url", m.Type)
		}
	default:
		return fmt.Errorf("unknown message type: %s", m.Type)
	}
	return nil
}
