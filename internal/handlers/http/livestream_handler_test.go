package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/services"
	"huddle/internal/infrastructure/middleware"
	"huddle/internal/infrastructure/repositories/memory"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamRouter(t *testing.T) (*gin.Engine, services.AuthService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	streams := memory.NewLivestreamRepository()
	require.NoError(t, streams.Create(context.Background(), &domain.Livestream{
		ID:           "stream-1",
		StreamerID:   "alice",
		StreamerName: "alice",
		Scope:        domain.ScopePersonal,
		ChannelName:  "personal_alice",
		Privacy:      domain.PrivacyPublic,
		Live:         true,
		StartedAt:    time.Now(),
	}))

	auth := services.NewAuthService("test-secret", time.Minute, time.Hour)
	tokens := services.NewMediaTokenService("media-secret", time.Minute)
	handler := NewLivestreamHandler(streams, tokens)

	router := gin.New()
	public := router.Group("/api/v1")
	public.Use(middleware.OptionalAuthMiddleware(auth))
	authed := router.Group("/api/v1")
	authed.Use(middleware.AuthMiddleware(auth))
	handler.SetupRoutes(public, authed)

	return router, auth
}

func TestLivestreamHandler_ListStreamsWithoutAuth(t *testing.T) {
	router, _ := newStreamRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "personal_alice")
}

func TestLivestreamHandler_GetStreamByStreamerWithoutAuth(t *testing.T) {
	router, _ := newStreamRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/streams/alice", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/streams/nobody", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLivestreamHandler_ViewerTokenRequiresAuth(t *testing.T) {
	router, auth := newStreamRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/streams/alice/token", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := auth.GenerateToken("bob", "bob")
	require.NoError(t, err)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/streams/alice/token", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "personal_alice")
}
