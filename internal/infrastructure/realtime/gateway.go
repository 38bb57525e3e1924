package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"
	"huddle/internal/core/services"
	"huddle/pkg/config"
	"huddle/pkg/tracing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// originChecker builds the upgrade origin check from the configured allow
// list. Requests without an Origin header (non-browser clients) pass; "*"
// allows every origin; otherwise the header must match an entry exactly,
// case-insensitively.
func originChecker(allowed []string) func(*http.Request) bool {
	exact := make(map[string]struct{}, len(allowed))
	wildcard := false
	for _, origin := range allowed {
		if origin == "*" {
			wildcard = true
			continue
		}
		exact[strings.ToLower(origin)] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := exact[strings.ToLower(origin)]
		return ok
	}
}

// GatewayMetrics is the monitoring hook for connection lifecycle.
type GatewayMetrics interface {
	RecordConnectionOpened()
	RecordConnectionClosed()
}

type noopGatewayMetrics struct{}

func (noopGatewayMetrics) RecordConnectionOpened() {}
func (noopGatewayMetrics) RecordConnectionClosed() {}

// Gateway owns every live WebSocket connection and fans events between the
// transport and the coordinator services. It is the only implementation of
// ports.Broadcaster.
//
// Each connection's events are handled sequentially by its read pump, so a
// single client's actions stay FIFO. Handlers for different connections run
// concurrently and may interleave at collaborator calls; per-room broadcast
// order is "first completed, first broadcast".
type Gateway struct {
	registry ports.PresenceRegistry
	auth     services.AuthService
	upgrader websocket.Upgrader

	rooms      ports.RoomService
	messages   ports.MessageService
	typing     ports.TypingService
	livestream ports.LivestreamService

	conns map[domain.ConnectionID]*client
	mu    sync.RWMutex

	// broadcastMu serializes fan-out so every member of a room observes
	// the same relative event order.
	broadcastMu sync.Mutex

	pingInterval    time.Duration
	pongTimeout     time.Duration
	writeTimeout    time.Duration
	sendBufferSize  int
	maxMessageBytes int64

	msgRate  rate.Limit
	msgBurst int

	metrics GatewayMetrics
	logger  *zap.SugaredLogger
}

func NewGateway(cfg *config.Config, registry ports.PresenceRegistry, auth services.AuthService, metrics GatewayMetrics, logger *zap.SugaredLogger) *Gateway {
	if metrics == nil {
		metrics = noopGatewayMetrics{}
	}

	var msgRate rate.Limit
	var msgBurst int
	if cfg.RateLimiting.Enabled {
		msgRate = rate.Limit(cfg.RateLimiting.WebSocket.MessagesPerSecond)
		msgBurst = cfg.RateLimiting.WebSocket.Burst
	}

	return &Gateway{
		registry: registry,
		auth:     auth,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(cfg.Auth.AllowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		conns:           make(map[domain.ConnectionID]*client),
		pingInterval:    cfg.Realtime.PingInterval,
		pongTimeout:     cfg.Realtime.PongTimeout,
		writeTimeout:    cfg.Realtime.WriteTimeout,
		sendBufferSize:  cfg.Realtime.SendBufferSize,
		maxMessageBytes: cfg.Realtime.MaxMessageBytes,
		msgRate:         msgRate,
		msgBurst:        msgBurst,
		metrics:         metrics,
		logger:          logger,
	}
}

// Attach wires the coordinator services in after construction; the services
// themselves depend on the gateway as their Broadcaster.
func (g *Gateway) Attach(
	rooms ports.RoomService,
	messages ports.MessageService,
	typing ports.TypingService,
	livestream ports.LivestreamService,
) {
	g.rooms = rooms
	g.messages = messages
	g.typing = typing
	g.livestream = livestream
}

// HandleWebSocket upgrades the connection and runs its pumps until it drops.
// A bearer token in the "token" query parameter is validated when presented;
// identity for room membership still rides on the join_room payload, which
// must agree with the token's subject when one was given.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	var tokenUser domain.UserID
	if token := r.URL.Query().Get("token"); token != "" && g.auth != nil {
		claims, err := g.auth.ValidateToken(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		tokenUser = claims.UserID
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Errorw("websocket upgrade failed", "error", err)
		return
	}

	c := &client{
		id:      domain.ConnectionID(uuid.New().String()),
		conn:    conn,
		gateway: g,
		send:    make(chan []byte, g.sendBufferSize),
	}
	if g.msgRate > 0 {
		c.limiter = rate.NewLimiter(g.msgRate, g.msgBurst)
	}

	g.mu.Lock()
	g.conns[c.id] = c
	g.mu.Unlock()
	g.metrics.RecordConnectionOpened()

	g.logger.Infow("connection attached",
		"connection_id", c.id,
		"token_user", tokenUser,
		"remote_addr", r.RemoteAddr,
	)

	ctx := r.Context()
	if tokenUser != "" {
		ctx = context.WithValue(ctx, ctxKeyTokenUser{}, tokenUser)
	}

	go c.writePump()
	c.readPump(ctx)
}

type ctxKeyTokenUser struct{}

// detach tears a connection down: presence cleanup, typing and livestream
// cleanup (via the room service's disconnect path), then removal from the
// connection table. Cleanup failures are logged and swallowed; there is no
// client left to report to.
func (g *Gateway) detach(c *client) {
	// close(c.send) must happen while holding the write lock: every enqueue
	// runs under the read lock, so a send on the closed channel cannot
	// interleave with the close.
	g.mu.Lock()
	_, attached := g.conns[c.id]
	delete(g.conns, c.id)
	if attached {
		close(c.send)
	}
	g.mu.Unlock()

	if !attached {
		return
	}

	c.conn.Close()
	g.metrics.RecordConnectionClosed()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if g.rooms != nil {
		if err := g.rooms.Disconnect(ctx, c.id); err != nil {
			g.logger.Warnw("disconnect cleanup failed", "connection_id", c.id, "error", err)
		}
	}

	g.logger.Infow("connection detached", "connection_id", c.id)
}

func (g *Gateway) dispatch(ctx context.Context, c *client, env Envelope) error {
	if env.Type == "" {
		return &DecodeError{EventType: "(empty)", Reason: "event type is required"}
	}

	ctx, span := tracing.TraceRealtimeEvent(ctx, env.Type, string(c.id))
	defer span.End()

	if err := g.handleEvent(ctx, span, c, env); err != nil {
		tracing.RecordError(ctx, err)
		return err
	}
	return nil
}

func (g *Gateway) handleEvent(ctx context.Context, span trace.Span, c *client, env Envelope) error {
	switch env.Type {
	case EventJoinRoom:
		p, err := decodeJoinRoom(env.Payload)
		if err != nil {
			return err
		}
		span.SetAttributes(
			tracing.RoomIDKey.String(string(p.RoomID)),
			tracing.UserIDKey.String(string(p.UserID)),
		)
		if tokenUser, ok := ctx.Value(ctxKeyTokenUser{}).(domain.UserID); ok && tokenUser != p.UserID {
			return &DecodeError{EventType: EventJoinRoom, Reason: "user_id does not match authenticated user"}
		}
		return g.rooms.JoinRoom(ctx, c.id, p.RoomID, p.UserID)

	case EventLeaveRoom:
		return g.rooms.LeaveRoom(ctx, c.id)

	case EventSendMessage:
		p, err := decodeSendMessage(env.Payload)
		if err != nil {
			return err
		}
		span.SetAttributes(tracing.RoomIDKey.String(string(p.RoomID)))
		return g.messages.SendMessage(ctx, c.id, ports.SendMessageInput{
			RoomID:   p.RoomID,
			Content:  p.Content,
			Type:     p.MessageType,
			FileURL:  p.FileURL,
			FileName: p.FileName,
			FileSize: p.FileSize,
		})

	case EventTypingStart:
		p, err := decodeTyping(EventTypingStart, env.Payload)
		if err != nil {
			return err
		}
		return g.typing.StartTyping(ctx, c.id, p.RoomID)

	case EventTypingStop:
		p, err := decodeTyping(EventTypingStop, env.Payload)
		if err != nil {
			return err
		}
		return g.typing.StopTyping(ctx, c.id, p.RoomID)

	case EventStartStream:
		p, err := decodeStartStream(env.Payload)
		if err != nil {
			return err
		}
		return g.livestream.StartStream(ctx, c.id, ports.StartStreamInput{
			Scope:       p.Scope,
			Privacy:     p.Privacy,
			Title:       p.Title,
			Description: p.Description,
		})

	case EventStopStream:
		return g.livestream.StopStream(ctx, c.id)

	case EventJoinStream:
		streamerID, err := decodeStreamerRef(EventJoinStream, env.Payload)
		if err != nil {
			return err
		}
		return g.livestream.JoinStream(ctx, c.id, streamerID)

	case EventLeaveStream:
		streamerID, err := decodeStreamerRef(EventLeaveStream, env.Payload)
		if err != nil {
			return err
		}
		return g.livestream.LeaveStream(ctx, c.id, streamerID)

	case EventHeartbeat:
		p, err := decodeHeartbeat(env.Payload)
		if err != nil {
			return err
		}
		span.SetAttributes(tracing.StreamIDKey.String(string(p.StreamID)))
		return g.livestream.Heartbeat(ctx, c.id, p.StreamID)

	default:
		return decodeErr(env.Type, "unknown event type")
	}
}

var _ ports.Broadcaster = (*Gateway)(nil)

func (g *Gateway) SendTo(id domain.ConnectionID, event domain.Event) error {
	data, err := encodeEvent(event)
	if err != nil {
		return err
	}

	// The read lock is held through the enqueue, like the broadcast paths:
	// detach closes the send channel under the write lock, so dropping the
	// lock between lookup and enqueue would race a concurrent disconnect.
	g.mu.RLock()
	c, exists := g.conns[id]
	if !exists {
		g.mu.RUnlock()
		return errors.New("connection not attached")
	}
	delivered := c.enqueue(data)
	g.mu.RUnlock()

	if !delivered {
		g.logger.Warnw("dropping event for slow connection",
			"connection_id", id,
			"event", event.EventName(),
		)
	}
	return nil
}

func (g *Gateway) BroadcastRoom(roomID domain.RoomID, event domain.Event, exclude ...domain.ConnectionID) {
	members, err := g.registry.ListByRoom(context.Background(), roomID)
	if err != nil {
		g.logger.Warnw("failed to resolve room members for broadcast",
			"room_id", roomID,
			"error", err,
		)
		return
	}

	data, err := encodeEvent(event)
	if err != nil {
		g.logger.Errorw("failed to encode broadcast event", "event", event.EventName(), "error", err)
		return
	}

	excluded := make(map[domain.ConnectionID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	g.broadcastMu.Lock()
	defer g.broadcastMu.Unlock()

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, member := range members {
		if _, skip := excluded[member.ConnectionID]; skip {
			continue
		}
		if c, exists := g.conns[member.ConnectionID]; exists {
			c.enqueue(data)
		}
	}
}

func (g *Gateway) BroadcastAll(event domain.Event, exclude ...domain.ConnectionID) {
	data, err := encodeEvent(event)
	if err != nil {
		g.logger.Errorw("failed to encode broadcast event", "event", event.EventName(), "error", err)
		return
	}

	excluded := make(map[domain.ConnectionID]struct{}, len(exclude))
	for _, id := range exclude {
		excluded[id] = struct{}{}
	}

	g.broadcastMu.Lock()
	defer g.broadcastMu.Unlock()

	g.mu.RLock()
	defer g.mu.RUnlock()
	for id, c := range g.conns {
		if _, skip := excluded[id]; skip {
			continue
		}
		c.enqueue(data)
	}
}

// ConnectionCount reports the number of attached connections.
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

// HealthCheck reports gateway liveness and the current connection count.
func (g *Gateway) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().Unix(),
		"connections": g.ConnectionCount(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
