package services

import (
	"context"
	"fmt"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"

	"go.uber.org/zap"
)

type roomService struct {
	registry    ports.PresenceRegistry
	userRepo    ports.UserRepository
	broadcaster ports.Broadcaster
	typing      ports.TypingService
	streams     ports.LivestreamService
	metrics     RoomMetrics
	logger      *zap.SugaredLogger
}

// RoomMetrics is the subset of the monitoring collector the room coordinator
// reports to. Nil-safe via the noop implementation.
type RoomMetrics interface {
	RecordRoomJoin(roomID domain.RoomID)
	RecordRoomLeave(roomID domain.RoomID)
}

func NewRoomService(
	registry ports.PresenceRegistry,
	userRepo ports.UserRepository,
	broadcaster ports.Broadcaster,
	typing ports.TypingService,
	streams ports.LivestreamService,
	metrics RoomMetrics,
	logger *zap.SugaredLogger,
) ports.RoomService {
	if metrics == nil {
		metrics = noopRoomMetrics{}
	}
	return &roomService{
		registry:    registry,
		userRepo:    userRepo,
		broadcaster: broadcaster,
		typing:      typing,
		streams:     streams,
		metrics:     metrics,
		logger:      logger,
	}
}

type noopRoomMetrics struct{}

func (noopRoomMetrics) RecordRoomJoin(domain.RoomID)  {}
func (noopRoomMetrics) RecordRoomLeave(domain.RoomID) {}

func (s *roomService) JoinRoom(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID, userID domain.UserID) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to resolve joining user: %w", err)
	}

	existing, err := s.registry.Get(ctx, connID)
	if err == nil && existing.RoomID == roomID {
		// Re-joining the current room is a no-op beyond the ack; a second
		// user_joined broadcast would duplicate "X joined" system messages.
		return s.broadcaster.SendTo(connID, domain.RoomJoinedEvent{
			RoomID:  roomID,
			Message: fmt.Sprintf("already in room %s", roomID),
		})
	}
	if err == nil && existing.InRoom() {
		// Switching rooms without an explicit leave: leave the old room
		// first so the connection is in exactly one broadcast scope.
		s.announceLeave(ctx, existing)
	}

	presence := &domain.Presence{
		ConnectionID: connID,
		UserID:       user.ID,
		Username:     user.Username,
		DisplayName:  user.DisplayName,
		RoomID:       roomID,
		ConnectedAt:  time.Now(),
	}
	if existing != nil {
		presence.ConnectedAt = existing.ConnectedAt
	}
	if err := s.registry.Put(ctx, presence); err != nil {
		return fmt.Errorf("failed to record presence: %w", err)
	}

	s.broadcaster.BroadcastRoom(roomID, domain.UserJoinedEvent{
		UserID:      user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Timestamp:   time.Now(),
	}, connID)

	s.metrics.RecordRoomJoin(roomID)
	s.logger.Infow("connection joined room",
		"connection_id", connID,
		"room_id", roomID,
		"user_id", user.ID,
	)

	return s.broadcaster.SendTo(connID, domain.RoomJoinedEvent{
		RoomID:  roomID,
		Message: fmt.Sprintf("joined room %s", roomID),
	})
}

func (s *roomService) LeaveRoom(ctx context.Context, connID domain.ConnectionID) error {
	presence, err := s.registry.Get(ctx, connID)
	if err != nil || !presence.InRoom() {
		// Leaving while not in a room is a no-op.
		return nil
	}

	s.announceLeave(ctx, presence)

	if err := s.registry.SetRoom(ctx, connID, ""); err != nil {
		return fmt.Errorf("failed to clear room membership: %w", err)
	}
	return nil
}

func (s *roomService) Disconnect(ctx context.Context, connID domain.ConnectionID) error {
	presence, err := s.registry.Get(ctx, connID)
	if err != nil {
		// Connection never joined a room; nothing to clean up here.
		return nil
	}

	if presence.InRoom() {
		s.announceLeave(ctx, presence)
	}

	if s.typing != nil {
		s.typing.HandleDisconnect(ctx, connID)
	}
	if s.streams != nil {
		s.streams.HandleDisconnect(ctx, connID)
	}

	// Best-effort: there is no connection left to report a failure to.
	if err := s.userRepo.SetOnline(ctx, presence.UserID, false); err != nil {
		s.logger.Warnw("failed to mark user offline on disconnect",
			"user_id", presence.UserID,
			"error", err,
		)
	}

	if err := s.registry.Remove(ctx, connID); err != nil {
		return fmt.Errorf("failed to remove presence entry: %w", err)
	}

	s.logger.Infow("connection disconnected",
		"connection_id", connID,
		"user_id", presence.UserID,
	)
	return nil
}

// announceLeave broadcasts user_left to the remaining members of the
// presence entry's room. The departing connection is excluded.
func (s *roomService) announceLeave(ctx context.Context, presence *domain.Presence) {
	s.broadcaster.BroadcastRoom(presence.RoomID, domain.UserLeftEvent{
		UserID:      presence.UserID,
		Username:    presence.Username,
		DisplayName: presence.DisplayName,
		Timestamp:   time.Now(),
	}, presence.ConnectionID)
	s.metrics.RecordRoomLeave(presence.RoomID)
}
