package repositories

import (
	"context"
	"testing"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
	"huddle/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingUserStore struct {
	inner ports.UserRepository
	gets  int
}

func (s *countingUserStore) Create(ctx context.Context, user *domain.User) error {
	return s.inner.Create(ctx, user)
}

func (s *countingUserStore) GetByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	s.gets++
	return s.inner.GetByID(ctx, id)
}

func (s *countingUserStore) SetOnline(ctx context.Context, id domain.UserID, online bool) error {
	return s.inner.SetOnline(ctx, id, online)
}

func TestCachedUserRepository_CachesLookups(t *testing.T) {
	ctx := context.Background()
	store := &countingUserStore{inner: memory.NewUserRepository()}
	repo := NewCachedUserRepository(store)
	defer repo.Stop()

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Username: "alice"}))

	for i := 0; i < 3; i++ {
		user, err := repo.GetByID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	}
	assert.Equal(t, 1, store.gets, "repeat lookups must hit the cache")
}

func TestCachedUserRepository_SetOnlineInvalidates(t *testing.T) {
	ctx := context.Background()
	store := &countingUserStore{inner: memory.NewUserRepository()}
	repo := NewCachedUserRepository(store)
	defer repo.Stop()

	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Username: "alice"}))

	_, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NoError(t, repo.SetOnline(ctx, "u1", true))

	user, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, user.Online)
	assert.Equal(t, 2, store.gets, "invalidation must force a fresh read")
}

func TestCachedUserRepository_MissPassesThrough(t *testing.T) {
	store := &countingUserStore{inner: memory.NewUserRepository()}
	repo := NewCachedUserRepository(store)
	defer repo.Stop()

	_, err := repo.GetByID(context.Background(), "nobody")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}
