package domain

import "time"

type ConnectionID string
type RoomID string

// Presence is the per-connection registry entry. It exists from the first
// successful room join until the connection disconnects. RoomID is empty when
// the connection has left its room but is still attached.
type Presence struct {
	ConnectionID ConnectionID
	UserID       UserID
	Username     string
	DisplayName  string
	RoomID       RoomID
	ConnectedAt  time.Time
}

// InRoom reports whether the presence entry is currently joined to a room.
func (p *Presence) InRoom() bool {
	return p.RoomID != ""
}
