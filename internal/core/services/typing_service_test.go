package services

import (
	"context"
	"testing"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTypingService_StartStop(t *testing.T) {
	ctx := context.Background()

	t.Run("start broadcasts user_typing excluding the typist", func(t *testing.T) {
		f := newFixture(t)
		f.join(t, "conn-1", "alice", "room-1")

		require.NoError(t, f.typing.StartTyping(ctx, "conn-1", "room-1"))

		assert.Contains(t, f.broadcast.roomEventNames("room-1"), "user_typing")
		last := f.broadcast.room[len(f.broadcast.room)-1]
		assert.Contains(t, last.exclude, domain.ConnectionID("conn-1"))
		assert.Equal(t, []domain.UserID{"alice"}, f.typing.TypistsInRoom("room-1"))
	})

	t.Run("restart while typing refreshes without second broadcast", func(t *testing.T) {
		f := newFixture(t)
		f.join(t, "conn-1", "alice", "room-1")

		require.NoError(t, f.typing.StartTyping(ctx, "conn-1", "room-1"))
		require.NoError(t, f.typing.StartTyping(ctx, "conn-1", "room-1"))

		var typingEvents int
		for _, name := range f.broadcast.roomEventNames("room-1") {
			if name == "user_typing" {
				typingEvents++
			}
		}
		assert.Equal(t, 1, typingEvents)
	})

	t.Run("stop broadcasts user_stopped_typing once", func(t *testing.T) {
		f := newFixture(t)
		f.join(t, "conn-1", "alice", "room-1")

		require.NoError(t, f.typing.StartTyping(ctx, "conn-1", "room-1"))
		require.NoError(t, f.typing.StopTyping(ctx, "conn-1", "room-1"))
		// Stopping again is a no-op.
		require.NoError(t, f.typing.StopTyping(ctx, "conn-1", "room-1"))

		var stops int
		for _, name := range f.broadcast.roomEventNames("room-1") {
			if name == "user_stopped_typing" {
				stops++
			}
		}
		assert.Equal(t, 1, stops)
		assert.Empty(t, f.typing.TypistsInRoom("room-1"))
	})

	t.Run("typing without presence is rejected", func(t *testing.T) {
		f := newFixture(t)

		err := f.typing.StartTyping(ctx, "conn-ghost", "room-1")
		assert.ErrorIs(t, err, domain.ErrUserNotAuthenticated)
	})
}

func TestTypingService_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("stale entries expire with a stop broadcast", func(t *testing.T) {
		registry := memory.NewPresenceRegistry()
		broadcast := newFakeBroadcaster()
		logger := zaptest.NewLogger(t).Sugar()
		typing := NewTypingService(registry, broadcast, 10*time.Millisecond, logger)

		require.NoError(t, registry.Put(ctx, &domain.Presence{
			ConnectionID: "conn-1",
			UserID:       "alice",
			DisplayName:  "alice",
			RoomID:       "room-1",
			ConnectedAt:  time.Now(),
		}))
		require.NoError(t, typing.StartTyping(ctx, "conn-1", "room-1"))

		time.Sleep(20 * time.Millisecond)
		typing.sweep()

		assert.Contains(t, broadcast.roomEventNames("room-1"), "user_stopped_typing")
		assert.Empty(t, typing.TypistsInRoom("room-1"))
	})

	t.Run("fresh entries survive the sweep", func(t *testing.T) {
		f := newFixture(t)
		f.join(t, "conn-1", "alice", "room-1")

		require.NoError(t, f.typing.StartTyping(ctx, "conn-1", "room-1"))
		f.typing.sweep()

		assert.Equal(t, []domain.UserID{"alice"}, f.typing.TypistsInRoom("room-1"))
		assert.NotContains(t, f.broadcast.roomEventNames("room-1"), "user_stopped_typing")
	})
}

func TestTypingService_HandleDisconnect(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	f.join(t, "conn-1", "alice", "room-1")
	f.join(t, "conn-2", "bob", "room-1")

	require.NoError(t, f.typing.StartTyping(ctx, "conn-1", "room-1"))
	require.NoError(t, f.typing.StartTyping(ctx, "conn-2", "room-1"))

	f.typing.HandleDisconnect(ctx, "conn-1")

	// Only alice's indicator is cleared.
	assert.Equal(t, []domain.UserID{"bob"}, f.typing.TypistsInRoom("room-1"))
}
