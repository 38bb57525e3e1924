package ports

import "huddle/internal/core/domain"

// Broadcaster is the transport-facing side of the coordinator: it answers
// "who is listening right now", not "who may join" (that is the external
// app's concern). Broadcasts are best-effort; a slow or dead receiver is
// dropped by the transport layer, never retried.
type Broadcaster interface {
	// SendTo delivers an event privately to one connection.
	SendTo(id domain.ConnectionID, event domain.Event) error

	// BroadcastRoom delivers an event to every connection currently joined
	// to the room's broadcast scope, except the excluded ones.
	BroadcastRoom(roomID domain.RoomID, event domain.Event, exclude ...domain.ConnectionID)

	// BroadcastAll delivers an event to every attached connection, except
	// the excluded ones. Used by the personal livestream scope.
	BroadcastAll(event domain.Event, exclude ...domain.ConnectionID)
}
