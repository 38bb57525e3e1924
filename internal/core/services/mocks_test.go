package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
	"huddle/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeBroadcaster records every fan-out so tests can assert on the exact
// events a service emitted and to whom.
type fakeBroadcaster struct {
	mu sync.Mutex

	direct map[domain.ConnectionID][]domain.Event
	room   []roomBroadcast
	global []globalBroadcast
}

type roomBroadcast struct {
	roomID  domain.RoomID
	event   domain.Event
	exclude []domain.ConnectionID
}

type globalBroadcast struct {
	event   domain.Event
	exclude []domain.ConnectionID
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{
		direct: make(map[domain.ConnectionID][]domain.Event),
	}
}

func (b *fakeBroadcaster) SendTo(id domain.ConnectionID, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.direct[id] = append(b.direct[id], event)
	return nil
}

func (b *fakeBroadcaster) BroadcastRoom(roomID domain.RoomID, event domain.Event, exclude ...domain.ConnectionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.room = append(b.room, roomBroadcast{roomID: roomID, event: event, exclude: exclude})
}

func (b *fakeBroadcaster) BroadcastAll(event domain.Event, exclude ...domain.ConnectionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.global = append(b.global, globalBroadcast{event: event, exclude: exclude})
}

func (b *fakeBroadcaster) roomEventNames(roomID domain.RoomID) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for _, rb := range b.room {
		if rb.roomID == roomID {
			names = append(names, rb.event.EventName())
		}
	}
	return names
}

func (b *fakeBroadcaster) globalEventNames() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for _, gb := range b.global {
		names = append(names, gb.event.EventName())
	}
	return names
}

func (b *fakeBroadcaster) directEvents(id domain.ConnectionID) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Event(nil), b.direct[id]...)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Save(ctx context.Context, msg *domain.ChatMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// mockTokenIssuer is a controllable media token collaborator: it can fail,
// or block long enough to trip the connecting timeout.
type mockTokenIssuer struct {
	token string
	err   error
	delay time.Duration
}

func (m *mockTokenIssuer) Issue(channel string, uid domain.UserID, role domain.MediaRole) (string, error) {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return "", m.err
	}
	if m.token != "" {
		return m.token, nil
	}
	return "token-" + channel + "-" + string(uid) + "-" + string(role), nil
}

// fixture wires the coordinator service graph on in-memory collaborators
// with a recording broadcaster, the way main assembles it minus the
// transport.
type fixture struct {
	registry   ports.PresenceRegistry
	users      *memory.UserRepository
	streamRepo ports.LivestreamRepository
	broadcast  *fakeBroadcaster
	tokens     *mockTokenIssuer
	typing     *typingService
	livestream *livestreamService
	rooms      ports.RoomService
	messages   ports.MessageService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		registry:   memory.NewPresenceRegistry(),
		users:      memory.NewUserRepository(),
		streamRepo: memory.NewLivestreamRepository(),
		broadcast:  newFakeBroadcaster(),
		tokens:     &mockTokenIssuer{},
	}
	logger := zaptest.NewLogger(t).Sugar()

	f.typing = NewTypingService(f.registry, f.broadcast, 5*time.Second, logger)
	f.livestream = NewLivestreamService(
		f.registry,
		f.streamRepo,
		f.tokens,
		f.broadcast,
		nil,
		time.Second,
		logger,
	)
	f.messages = NewMessageService(f.registry, memory.NewMessageRepository(), f.broadcast, nil, logger)
	f.rooms = NewRoomService(f.registry, f.users, f.broadcast, f.typing, f.livestream, nil, logger)
	return f
}

func (f *fixture) seedUser(t *testing.T, id domain.UserID, username string) {
	t.Helper()
	err := f.users.Create(context.Background(), &domain.User{
		ID:          id,
		Username:    username,
		DisplayName: username,
	})
	require.NoError(t, err)
}

// join seeds the user and joins them to the room on a fresh connection.
func (f *fixture) join(t *testing.T, connID domain.ConnectionID, userID domain.UserID, roomID domain.RoomID) {
	t.Helper()
	f.seedUser(t, userID, string(userID))
	require.NoError(t, f.rooms.JoinRoom(context.Background(), connID, roomID, userID))
}
