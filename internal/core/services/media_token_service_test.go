package services

import (
	"testing"
	"time"

	"huddle/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaTokenService_Issue(t *testing.T) {
	svc := NewMediaTokenService("test-secret", time.Hour)

	t.Run("issued token carries channel, uid and role", func(t *testing.T) {
		token, err := svc.Issue("stream_alice", "alice", domain.RoleHost)
		require.NoError(t, err)

		claims, err := svc.Parse(token)
		require.NoError(t, err)
		assert.Equal(t, "stream_alice", claims.Channel)
		assert.Equal(t, domain.UserID("alice"), claims.UID)
		assert.Equal(t, domain.RoleHost, claims.Role)
		assert.True(t, claims.ExpiresAt.After(time.Now()))
	})

	t.Run("invalid channel name is rejected before signing", func(t *testing.T) {
		_, err := svc.Issue("stream with spaces", "alice", domain.RoleAudience)
		assert.ErrorIs(t, err, domain.ErrInvalidChannelName)
	})

	t.Run("empty uid is rejected", func(t *testing.T) {
		_, err := svc.Issue("stream_alice", "", domain.RoleAudience)
		assert.Error(t, err)
	})

	t.Run("unknown role is rejected", func(t *testing.T) {
		_, err := svc.Issue("stream_alice", "alice", domain.MediaRole("admin"))
		assert.Error(t, err)
	})

	t.Run("token signed with another secret fails to parse", func(t *testing.T) {
		other := NewMediaTokenService("other-secret", time.Hour)
		token, err := other.Issue("stream_alice", "alice", domain.RoleAudience)
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.Error(t, err)
	})

	t.Run("expired token fails to parse", func(t *testing.T) {
		short := NewMediaTokenService("test-secret", -time.Minute)
		token, err := short.Issue("stream_alice", "alice", domain.RoleAudience)
		require.NoError(t, err)

		_, err = svc.Parse(token)
		assert.Error(t, err)
	})
}

func TestAuthService_Tokens(t *testing.T) {
	svc := NewAuthService("auth-secret", 15*time.Minute, 24*time.Hour)

	t.Run("access token round trip", func(t *testing.T) {
		token, err := svc.GenerateToken("alice", "alice")
		require.NoError(t, err)

		claims, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, domain.UserID("alice"), claims.UserID)
		assert.Equal(t, "alice", claims.Username)
	})

	t.Run("refresh token validates and carries the user", func(t *testing.T) {
		token, err := svc.GenerateRefreshToken("alice")
		require.NoError(t, err)

		claims, err := svc.ValidateRefreshToken(token)
		require.NoError(t, err)
		assert.Equal(t, domain.UserID("alice"), claims.UserID)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired token is reported as expired", func(t *testing.T) {
		expired := NewAuthService("auth-secret", -time.Minute, 24*time.Hour)
		token, err := expired.GenerateToken("alice", "alice")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})
}
