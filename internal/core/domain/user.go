package domain

import "time"

type UserID string

type User struct {
	ID          UserID
	Username    string
	DisplayName string
	Online      bool
	LastSeen    time.Time
}
