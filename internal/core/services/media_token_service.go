package services

import (
	"fmt"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
	"huddle/pkg/validation"

	"github.com/golang-jwt/jwt/v5"
)

// MediaTokenService signs SFU join tokens. Each token is scoped to exactly
// one channel, one uid and one role; the SFU rejects anything else.
type MediaTokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewMediaTokenService(secret string, ttl time.Duration) *MediaTokenService {
	return &MediaTokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

var _ ports.MediaTokenService = (*MediaTokenService)(nil)

// MediaClaims is the claim set the SFU validates on channel join.
type MediaClaims struct {
	Channel string           `json:"channel"`
	UID     domain.UserID    `json:"uid"`
	Role    domain.MediaRole `json:"role"`
	jwt.RegisteredClaims
}

func (s *MediaTokenService) Issue(channel string, uid domain.UserID, role domain.MediaRole) (string, error) {
	if err := validation.ValidateChannelName(channel); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidChannelName, err)
	}
	if uid == "" {
		return "", fmt.Errorf("uid is required")
	}
	if role != domain.RoleHost && role != domain.RoleAudience {
		return "", fmt.Errorf("unknown media role: %s", role)
	}

	now := time.Now()
	claims := &MediaClaims{
		Channel: channel,
		UID:     uid,
		Role:    role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse validates a media token and returns its claims. Used by tests and
// by the REST token endpoint's round-trip check.
func (s *MediaTokenService) Parse(tokenString string) (*MediaClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &MediaClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*MediaClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid media token")
	}
	return claims, nil
}
