package services

import (
	"context"
	"sync"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"

	"go.uber.org/zap"
)

type typingEntry struct {
	connID      domain.ConnectionID
	userID      domain.UserID
	displayName string
	refreshedAt time.Time
}

// typingService relays typing indicators and keeps a server-side mirror with
// a TTL so a client that dies mid-type cannot leave a stuck indicator. The
// state is advisory: loss is tolerated, duplicates are suppressed.
type typingService struct {
	registry    ports.PresenceRegistry
	broadcaster ports.Broadcaster
	ttl         time.Duration

	typists map[domain.RoomID]map[domain.UserID]*typingEntry
	mu      sync.Mutex

	logger *zap.SugaredLogger
}

func NewTypingService(
	registry ports.PresenceRegistry,
	broadcaster ports.Broadcaster,
	ttl time.Duration,
	logger *zap.SugaredLogger,
) *typingService {
	return &typingService{
		registry:    registry,
		broadcaster: broadcaster,
		ttl:         ttl,
		typists:     make(map[domain.RoomID]map[domain.UserID]*typingEntry),
		logger:      logger,
	}
}

var _ ports.TypingService = (*typingService)(nil)

func (s *typingService) StartTyping(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) error {
	presence, err := s.registry.Get(ctx, connID)
	if err != nil {
		return domain.ErrUserNotAuthenticated
	}

	s.mu.Lock()
	room, exists := s.typists[roomID]
	if !exists {
		room = make(map[domain.UserID]*typingEntry)
		s.typists[roomID] = room
	}
	_, alreadyTyping := room[presence.UserID]
	room[presence.UserID] = &typingEntry{
		connID:      connID,
		userID:      presence.UserID,
		displayName: presence.DisplayName,
		refreshedAt: time.Now(),
	}
	s.mu.Unlock()

	// Re-starting while already typing only refreshes the TTL; the
	// observable state is unchanged, so no second broadcast.
	if alreadyTyping {
		return nil
	}

	s.broadcaster.BroadcastRoom(roomID, domain.UserTypingEvent{
		RoomID:      roomID,
		UserID:      presence.UserID,
		DisplayName: presence.DisplayName,
	}, connID)
	return nil
}

func (s *typingService) StopTyping(ctx context.Context, connID domain.ConnectionID, roomID domain.RoomID) error {
	presence, err := s.registry.Get(ctx, connID)
	if err != nil {
		return domain.ErrUserNotAuthenticated
	}

	s.mu.Lock()
	room := s.typists[roomID]
	_, wasTyping := room[presence.UserID]
	delete(room, presence.UserID)
	s.mu.Unlock()

	if !wasTyping {
		return nil
	}

	s.broadcaster.BroadcastRoom(roomID, domain.UserStoppedTypingEvent{
		RoomID:      roomID,
		UserID:      presence.UserID,
		DisplayName: presence.DisplayName,
	}, connID)
	return nil
}

func (s *typingService) HandleDisconnect(ctx context.Context, connID domain.ConnectionID) {
	s.mu.Lock()
	var stops []domain.UserStoppedTypingEvent
	for roomID, room := range s.typists {
		for userID, entry := range room {
			if entry.connID == connID {
				delete(room, userID)
				stops = append(stops, domain.UserStoppedTypingEvent{
					RoomID:      roomID,
					UserID:      userID,
					DisplayName: entry.displayName,
				})
			}
		}
	}
	s.mu.Unlock()

	for _, stop := range stops {
		s.broadcaster.BroadcastRoom(stop.RoomID, stop, connID)
	}
}

// Run sweeps expired typing entries until the context is cancelled. Entries
// not refreshed within the TTL get a user_stopped_typing broadcast on the
// typist's behalf.
func (s *typingService) Run(ctx context.Context, sweepInterval time.Duration) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *typingService) sweep() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	var stops []domain.UserStoppedTypingEvent
	var conns []domain.ConnectionID
	for roomID, room := range s.typists {
		for userID, entry := range room {
			if entry.refreshedAt.Before(cutoff) {
				delete(room, userID)
				stops = append(stops, domain.UserStoppedTypingEvent{
					RoomID:      roomID,
					UserID:      userID,
					DisplayName: entry.displayName,
				})
				conns = append(conns, entry.connID)
			}
		}
		if len(room) == 0 {
			delete(s.typists, roomID)
		}
	}
	s.mu.Unlock()

	for i, stop := range stops {
		s.logger.Debugw("expired stale typing indicator",
			"room_id", stop.RoomID,
			"user_id", stop.UserID,
		)
		s.broadcaster.BroadcastRoom(stop.RoomID, stop, conns[i])
	}
}

// TypistsInRoom reports who is currently marked as typing, for tests and
// introspection.
func (s *typingService) TypistsInRoom(roomID domain.RoomID) []domain.UserID {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.UserID
	for userID := range s.typists[roomID] {
		out = append(out, userID)
	}
	return out
}
