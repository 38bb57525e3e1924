package realtime

import (
	"encoding/json"
	"testing"

	"huddle/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJoinRoom(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{name: "valid", payload: `{"room_id":"room-1","user_id":"alice"}`},
		{name: "missing room", payload: `{"user_id":"alice"}`, wantErr: true},
		{name: "missing user", payload: `{"room_id":"room-1"}`, wantErr: true},
		{name: "room with spaces", payload: `{"room_id":"room 1","user_id":"alice"}`, wantErr: true},
		{name: "malformed json", payload: `{`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := decodeJoinRoom(json.RawMessage(tt.payload))
			if tt.wantErr {
				var decodeErr *DecodeError
				assert.ErrorAs(t, err, &decodeErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, domain.RoomID("room-1"), p.RoomID)
		})
	}
}

func TestDecodeSendMessage(t *testing.T) {
	t.Run("type defaults to text", func(t *testing.T) {
		p, err := decodeSendMessage(json.RawMessage(`{"room_id":"room-1","content":"hi"}`))
		require.NoError(t, err)
		assert.Equal(t, domain.MessageTypeText, p.MessageType)
	})

	t.Run("text without content fails", func(t *testing.T) {
		_, err := decodeSendMessage(json.RawMessage(`{"room_id":"room-1"}`))
		assert.Error(t, err)
	})

	t.Run("attachment requires a valid file url", func(t *testing.T) {
		_, err := decodeSendMessage(json.RawMessage(`{"room_id":"room-1","message_type":"image"}`))
		assert.Error(t, err)

		_, err = decodeSendMessage(json.RawMessage(`{"room_id":"room-1","message_type":"image","file_url":"ftp://x/y"}`))
		assert.Error(t, err)

		p, err := decodeSendMessage(json.RawMessage(`{"room_id":"room-1","message_type":"image","file_url":"https://cdn.example.com/a.png"}`))
		require.NoError(t, err)
		assert.Equal(t, domain.MessageTypeImage, p.MessageType)
	})

	t.Run("unknown type fails", func(t *testing.T) {
		_, err := decodeSendMessage(json.RawMessage(`{"room_id":"room-1","message_type":"sticker","content":"x"}`))
		assert.Error(t, err)
	})
}

func TestDecodeStartStream(t *testing.T) {
	t.Run("scope defaults to personal, privacy to public", func(t *testing.T) {
		p, err := decodeStartStream(json.RawMessage(`{}`))
		require.NoError(t, err)
		assert.Equal(t, domain.ScopePersonal, p.Scope)
		assert.Equal(t, domain.PrivacyPublic, p.Privacy)
	})

	t.Run("room scope passes through", func(t *testing.T) {
		p, err := decodeStartStream(json.RawMessage(`{"scope":"room","privacy":"friends-only","title":"my stream"}`))
		require.NoError(t, err)
		assert.Equal(t, domain.ScopeRoom, p.Scope)
		assert.Equal(t, domain.PrivacyFriendsOnly, p.Privacy)
	})

	t.Run("unknown scope fails", func(t *testing.T) {
		_, err := decodeStartStream(json.RawMessage(`{"scope":"global"}`))
		assert.Error(t, err)
	})
}

func TestDecodeStreamerRef(t *testing.T) {
	id, err := decodeStreamerRef(EventJoinStream, json.RawMessage(`{"streamer_id":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("alice"), id)

	_, err = decodeStreamerRef(EventJoinStream, json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestEncodeEvent(t *testing.T) {
	t.Run("envelope carries the event name and payload", func(t *testing.T) {
		data, err := encodeEvent(domain.UserTypingEvent{
			RoomID:      "room-1",
			UserID:      "alice",
			DisplayName: "Alice",
		})
		require.NoError(t, err)

		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		assert.Equal(t, "user_typing", env.Type)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal(env.Payload, &payload))
		assert.Equal(t, "alice", payload["user_id"])
	})

	t.Run("scoped events encode with the scope-qualified name", func(t *testing.T) {
		data, err := encodeEvent(domain.LivestreamStartedEvent{
			StreamID:   "s1",
			StreamerID: "alice",
			Scope:      domain.ScopePersonal,
		})
		require.NoError(t, err)

		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		assert.Equal(t, "personal_livestream_started", env.Type)
	})
}
