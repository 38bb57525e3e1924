package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"

	"github.com/google/uuid"
)

// MessageRepository is the in-memory stand-in for the platform's message
// store. Save assigns id and creation timestamp, as the external collaborator
// does in production.
type MessageRepository struct {
	messages map[domain.MessageID]*domain.ChatMessage
	mu       sync.RWMutex
}

func NewMessageRepository() ports.MessageRepository {
	return &MessageRepository{
		messages: make(map[domain.MessageID]*domain.ChatMessage),
	}
}

func (r *MessageRepository) Save(ctx context.Context, msg *domain.ChatMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	msg.ID = domain.MessageID(uuid.New().String())
	msg.CreatedAt = time.Now()

	cp := *msg
	r.messages[msg.ID] = &cp
	return nil
}

// ListByRoom returns persisted messages for a room in creation order.
func (r *MessageRepository) ListByRoom(roomID domain.RoomID) []*domain.ChatMessage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.ChatMessage
	for _, msg := range r.messages {
		if msg.RoomID == roomID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
