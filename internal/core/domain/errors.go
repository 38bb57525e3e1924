package domain

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserNotAuthenticated = errors.New("connection has no active presence")
	ErrAlreadyLive          = errors.New("streamer already has an active livestream")
	ErrStreamNotFound       = errors.New("no active livestream for streamer")
	ErrTokenIssuance        = errors.New("media token issuance failed")
	ErrPersistence          = errors.New("persistence failure")
	ErrRoomNotJoined        = errors.New("connection is not in a room")
	ErrInvalidChannelName   = errors.New("invalid channel name")
)
