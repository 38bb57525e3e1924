package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// ChannelNameRegex matches the alphabet the media SFU accepts for
	// channel names.
	ChannelNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{1,64}$`)

	// RoomIDRegex validates room ID format
	RoomIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// UserIDRegex validates user ID format
	UserIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	// EmailRegex validates email format
	EmailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// UsernameRegex validates username format
	UsernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateChannelName validates an SFU channel name.
func ValidateChannelName(name string) error {
	if name == "" {
		return fmt.Errorf("channel name is required")
	}
	if !ChannelNameRegex.MatchString(name) {
		return fmt.Errorf("channel name must be 1-64 alphanumeric or underscore characters")
	}
	return nil
}

// ValidateRoomID validates a room ID.
func ValidateRoomID(roomID string) error {
	if roomID == "" {
		return fmt.Errorf("room ID is required")
	}
	if len(roomID) > 100 {
		return fmt.Errorf("room ID is too long (max 100 characters)")
	}
	if !RoomIDRegex.MatchString(roomID) {
		return fmt.Errorf("invalid room ID format")
	}
	return nil
}

// ValidateUserID validates a user ID.
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("user ID is required")
	}
	if len(userID) > 100 {
		return fmt.Errorf("user ID is too long (max 100 characters)")
	}
	if !UserIDRegex.MatchString(userID) {
		return fmt.Errorf("invalid user ID format")
	}
	return nil
}

// ValidateEmail validates email
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if len(email) > 254 {
		return fmt.Errorf("email is too long (max 254 characters)")
	}
	if !EmailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ValidateUsername validates username
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return fmt.Errorf("username is required")
	}
	if len(username) < 3 {
		return fmt.Errorf("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return fmt.Errorf("username is too long (max 50 characters)")
	}
	if !UsernameRegex.MatchString(username) {
		return fmt.Errorf("username contains invalid characters (only letters, numbers, _, - allowed)")
	}
	return nil
}

// ValidatePassword validates password
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters")
	}
	if len(password) > 128 {
		return fmt.Errorf("password is too long (max 128 characters)")
	}
	return nil
}

// ValidateStreamTitle validates a livestream title.
func ValidateStreamTitle(title string) error {
	title = strings.TrimSpace(title)
	if len(title) > 100 {
		return fmt.Errorf("stream title is too long (max 100 characters)")
	}
	if !utf8.ValidString(title) {
		return fmt.Errorf("stream title contains invalid characters")
	}
	return nil
}

// ValidateMessageContent validates chat message content.
func ValidateMessageContent(content string) error {
	if len(content) > 4096 {
		return fmt.Errorf("message content is too long (max 4096 characters)")
	}
	if !utf8.ValidString(content) {
		return fmt.Errorf("message content contains invalid characters")
	}
	return nil
}

// ValidateFileURL validates the file URL carried by attachment messages.
func ValidateFileURL(urlStr string) error {
	if urlStr == "" {
		return fmt.Errorf("file URL is required")
	}
	if len(urlStr) > 2048 {
		return fmt.Errorf("file URL is too long (max 2048 characters)")
	}
	u, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid file URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("file URL must use http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("file URL must have a host")
	}
	return nil
}
