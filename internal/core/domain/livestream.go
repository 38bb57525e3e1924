package domain

import (
	"strings"
	"time"
)

type StreamID string

// StreamScope selects which broadcast audience a livestream announcement
// reaches: room-embedded streams announce within the streamer's room, personal
// streams announce to every attached connection.
type StreamScope string

const (
	ScopeRoom     StreamScope = "room"
	ScopePersonal StreamScope = "personal"
)

type StreamPrivacy string

const (
	PrivacyPublic      StreamPrivacy = "public"
	PrivacyFriendsOnly StreamPrivacy = "friends-only"
)

// SessionStatus is the signaling-side lifecycle of a stream session.
// failed is reachable from connecting only; ended from connected.
type SessionStatus string

const (
	StatusIdle       SessionStatus = "idle"
	StatusConnecting SessionStatus = "connecting"
	StatusConnected  SessionStatus = "connected"
	StatusFailed     SessionStatus = "failed"
	StatusEnded      SessionStatus = "ended"
)

// Livestream is the authoritative record, owned by the livestream repository.
// The in-memory mirror (viewer count, connection status) lives in the
// coordinator and is rebuilt from zero on restart.
type Livestream struct {
	ID            StreamID      `json:"id"`
	StreamerID    UserID        `json:"streamer_id"`
	StreamerName  string        `json:"streamer_name"`
	Scope         StreamScope   `json:"scope"`
	RoomID        RoomID        `json:"room_id,omitempty"`
	ChannelName   string        `json:"channel_name"`
	Privacy       StreamPrivacy `json:"privacy"`
	Title         string        `json:"title,omitempty"`
	Description   string        `json:"description,omitempty"`
	Live          bool          `json:"live"`
	StartedAt     time.Time     `json:"started_at"`
	EndedAt       time.Time     `json:"ended_at,omitempty"`
	LastHeartbeat time.Time     `json:"-"`
}

// MediaRole is the role a media token grants on the SFU channel.
type MediaRole string

const (
	RoleHost     MediaRole = "host"
	RoleAudience MediaRole = "audience"
)

const maxChannelNameLen = 64

// ChannelNameForStreamer derives the SFU channel name from the streamer id.
// The derivation is deterministic so viewers can recompute it from a known
// streamer id without a discovery round-trip. Characters outside the SFU's
// accepted alphabet are mapped to underscores.
func ChannelNameForStreamer(streamerID UserID) string {
	var b strings.Builder
	b.WriteString("stream_")
	for _, r := range string(streamerID) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
		if b.Len() >= maxChannelNameLen {
			break
		}
	}
	name := b.String()
	if len(name) > maxChannelNameLen {
		name = name[:maxChannelNameLen]
	}
	return name
}
