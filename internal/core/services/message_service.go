package services

import (
	"context"
	"fmt"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
	"huddle/pkg/utils"

	"go.uber.org/zap"
)

type messageService struct {
	registry    ports.PresenceRegistry
	messageRepo ports.MessageRepository
	broadcaster ports.Broadcaster
	metrics     MessageMetrics
	logger      *zap.SugaredLogger
}

type MessageMetrics interface {
	RecordMessageBroadcast(roomID domain.RoomID)
}

func NewMessageService(
	registry ports.PresenceRegistry,
	messageRepo ports.MessageRepository,
	broadcaster ports.Broadcaster,
	metrics MessageMetrics,
	logger *zap.SugaredLogger,
) ports.MessageService {
	if metrics == nil {
		metrics = noopMessageMetrics{}
	}
	return &messageService{
		registry:    registry,
		messageRepo: messageRepo,
		broadcaster: broadcaster,
		metrics:     metrics,
		logger:      logger,
	}
}

type noopMessageMetrics struct{}

func (noopMessageMetrics) RecordMessageBroadcast(domain.RoomID) {}

// SendMessage persists the message and broadcasts it to the whole room,
// sender included. The sender renders its own message from the broadcast,
// which keeps every member's view in the same relative order. A persistence
// failure aborts the whole action; nothing is broadcast.
func (s *messageService) SendMessage(ctx context.Context, connID domain.ConnectionID, input ports.SendMessageInput) error {
	presence, err := s.registry.Get(ctx, connID)
	if err != nil {
		return domain.ErrUserNotAuthenticated
	}

	msg := &domain.ChatMessage{
		RoomID:   input.RoomID,
		SenderID: presence.UserID,
		Content:  utils.SanitizeString(input.Content),
		Type:     input.Type,
		FileURL:  input.FileURL,
		FileName: input.FileName,
		FileSize: input.FileSize,
	}

	if err := s.messageRepo.Save(ctx, msg); err != nil {
		s.logger.Errorw("failed to persist message",
			"connection_id", connID,
			"room_id", input.RoomID,
			"error", err,
		)
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	// Sender identity comes from the presence entry, not a fresh lookup.
	s.broadcaster.BroadcastRoom(msg.RoomID, domain.NewMessageEvent{
		ChatMessage:       *msg,
		SenderUsername:    presence.Username,
		SenderDisplayName: presence.DisplayName,
	})

	s.metrics.RecordMessageBroadcast(msg.RoomID)
	return nil
}
