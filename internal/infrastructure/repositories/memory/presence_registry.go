package memory

import (
	"context"
	"sync"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
)

// PresenceRegistry is the process-local connection registry. Entries are
// inserted on the first room join and removed on disconnect; a room switch
// mutates the RoomID field in place.
type PresenceRegistry struct {
	entries map[domain.ConnectionID]*domain.Presence
	mu      sync.RWMutex
}

func NewPresenceRegistry() ports.PresenceRegistry {
	return &PresenceRegistry{
		entries: make(map[domain.ConnectionID]*domain.Presence),
	}
}

func (r *PresenceRegistry) Put(ctx context.Context, presence *domain.Presence) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *presence
	r.entries[presence.ConnectionID] = &cp
	return nil
}

func (r *PresenceRegistry) Get(ctx context.Context, id domain.ConnectionID) (*domain.Presence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[id]
	if !exists {
		return nil, domain.ErrUserNotAuthenticated
	}

	cp := *entry
	return &cp, nil
}

func (r *PresenceRegistry) Remove(ctx context.Context, id domain.ConnectionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.entries, id)
	return nil
}

func (r *PresenceRegistry) SetRoom(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.entries[id]
	if !exists {
		return domain.ErrUserNotAuthenticated
	}

	entry.RoomID = roomID
	return nil
}

func (r *PresenceRegistry) ListByRoom(ctx context.Context, roomID domain.RoomID) ([]*domain.Presence, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var members []*domain.Presence
	for _, entry := range r.entries {
		if entry.RoomID == roomID {
			cp := *entry
			members = append(members, &cp)
		}
	}

	return members, nil
}
