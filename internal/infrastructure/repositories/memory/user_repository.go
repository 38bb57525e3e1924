package memory

import (
	"context"
	"sync"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
)

// UserRepository is an in-memory user-lookup collaborator, used in tests and
// single-node development runs.
type UserRepository struct {
	users map[domain.UserID]*domain.User
	mu    sync.RWMutex
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users: make(map[domain.UserID]*domain.User),
	}
}

var _ ports.UserRepository = (*UserRepository)(nil)

// Create inserts or replaces a user record.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, exists := r.users[id]
	if !exists {
		return nil, domain.ErrUserNotFound
	}

	cp := *user
	return &cp, nil
}

func (r *UserRepository) SetOnline(ctx context.Context, id domain.UserID, online bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, exists := r.users[id]
	if !exists {
		return domain.ErrUserNotFound
	}

	user.Online = online
	user.LastSeen = time.Now()
	return nil
}
