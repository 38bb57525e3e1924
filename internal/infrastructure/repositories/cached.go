package repositories

import (
	"context"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
	"huddle/pkg/cache"
)

// userCacheTTL bounds how stale a cached profile may get. Display names
// change rarely; liveness is tracked by the presence registry, not here.
const userCacheTTL = 30 * time.Second

// CachedUserRepository memoizes user lookups. Every websocket join and
// message resolves the sender profile, which otherwise hits the user store
// on each event.
type CachedUserRepository struct {
	inner ports.UserRepository
	users *cache.Cache[*domain.User]
}

func NewCachedUserRepository(inner ports.UserRepository) *CachedUserRepository {
	return &CachedUserRepository{
		inner: inner,
		users: cache.New[*domain.User](userCacheTTL),
	}
}

func (r *CachedUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.inner.Create(ctx, user); err != nil {
		return err
	}
	r.users.Delete(string(user.ID))
	return nil
}

func (r *CachedUserRepository) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	if user, ok := r.users.Get(string(id)); ok {
		cp := *user
		return &cp, nil
	}

	user, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cp := *user
	r.users.Set(string(id), &cp)
	return user, nil
}

func (r *CachedUserRepository) SetOnline(ctx context.Context, id domain.UserID, online bool) error {
	if err := r.inner.SetOnline(ctx, id, online); err != nil {
		return err
	}
	// Online flips also touch LastSeen, so drop the stale copy.
	r.users.Delete(string(id))
	return nil
}

// Stop releases the cache sweeper goroutine.
func (r *CachedUserRepository) Stop() {
	r.users.Stop()
}

var _ ports.UserRepository = (*CachedUserRepository)(nil)
