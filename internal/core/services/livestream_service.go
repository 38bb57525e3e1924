package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"huddle/internal/core/domain"
	"huddle/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// streamMirror is the in-memory signaling mirror of one active livestream.
// The authoritative record lives in the livestream repository; the mirror
// holds only what broadcasts need (status, viewer set) and is rebuilt from
// zero on restart.
type streamMirror struct {
	streamID      domain.StreamID
	streamerID    domain.UserID
	scope         domain.StreamScope
	roomID        domain.RoomID
	status        domain.SessionStatus
	publisherConn domain.ConnectionID
	viewers       map[domain.ConnectionID]domain.UserID
}

type StreamMetrics interface {
	RecordStreamStarted(scope domain.StreamScope)
	RecordStreamEnded(scope domain.StreamScope)
	SetViewerCount(streamID domain.StreamID, count int)
}

type noopStreamMetrics struct{}

func (noopStreamMetrics) RecordStreamStarted(domain.StreamScope) {}
func (noopStreamMetrics) RecordStreamEnded(domain.StreamScope)   {}
func (noopStreamMetrics) SetViewerCount(domain.StreamID, int)    {}

// livestreamService coordinates both stream variants (room-embedded and
// personal) through one state machine parameterized by scope. Per-session
// states: idle -> connecting -> connected -> (ended | failed); failed is
// reachable from connecting only.
type livestreamService struct {
	registry    ports.PresenceRegistry
	streamRepo  ports.LivestreamRepository
	tokens      ports.MediaTokenService
	broadcaster ports.Broadcaster
	metrics     StreamMetrics

	connectingTimeout time.Duration

	mirrors map[domain.StreamID]*streamMirror
	mu      sync.Mutex

	logger *zap.SugaredLogger
}

func NewLivestreamService(
	registry ports.PresenceRegistry,
	streamRepo ports.LivestreamRepository,
	tokens ports.MediaTokenService,
	broadcaster ports.Broadcaster,
	metrics StreamMetrics,
	connectingTimeout time.Duration,
	logger *zap.SugaredLogger,
) *livestreamService {
	if metrics == nil {
		metrics = noopStreamMetrics{}
	}
	return &livestreamService{
		registry:          registry,
		streamRepo:        streamRepo,
		tokens:            tokens,
		broadcaster:       broadcaster,
		metrics:           metrics,
		connectingTimeout: connectingTimeout,
		mirrors:           make(map[domain.StreamID]*streamMirror),
		logger:            logger,
	}
}

var _ ports.LivestreamService = (*livestreamService)(nil)

func (s *livestreamService) StartStream(ctx context.Context, connID domain.ConnectionID, input ports.StartStreamInput) error {
	presence, err := s.registry.Get(ctx, connID)
	if err != nil {
		return domain.ErrUserNotAuthenticated
	}

	var roomID domain.RoomID
	if input.Scope == domain.ScopeRoom {
		if !presence.InRoom() {
			return domain.ErrRoomNotJoined
		}
		roomID = presence.RoomID
	}

	channel := domain.ChannelNameForStreamer(presence.UserID)

	record := &domain.Livestream{
		ID:            domain.StreamID(uuid.New().String()),
		StreamerID:    presence.UserID,
		StreamerName:  presence.DisplayName,
		Scope:         input.Scope,
		RoomID:        roomID,
		ChannelName:   channel,
		Privacy:       input.Privacy,
		Title:         input.Title,
		Description:   input.Description,
		Live:          true,
		StartedAt:     time.Now(),
		LastHeartbeat: time.Now(),
	}

	// AlreadyLive is enforced by the record owner, not this layer.
	if err := s.streamRepo.Create(ctx, record); err != nil {
		if errors.Is(err, domain.ErrAlreadyLive) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	mirror := &streamMirror{
		streamID:      record.ID,
		streamerID:    presence.UserID,
		scope:         input.Scope,
		roomID:        roomID,
		status:        domain.StatusConnecting,
		publisherConn: connID,
		viewers:       make(map[domain.ConnectionID]domain.UserID),
	}
	s.mu.Lock()
	s.mirrors[record.ID] = mirror
	s.mu.Unlock()

	// The connecting phase is bounded; a hung token collaborator must not
	// leave the session in connecting forever.
	tokenCtx, cancel := context.WithTimeout(ctx, s.connectingTimeout)
	defer cancel()

	token, err := s.issueToken(tokenCtx, channel, presence.UserID, domain.RoleHost)
	if err != nil {
		s.failStream(ctx, record.ID)
		return fmt.Errorf("%w: %v", domain.ErrTokenIssuance, err)
	}

	s.mu.Lock()
	mirror.status = domain.StatusConnected
	s.mu.Unlock()

	if err := s.broadcaster.SendTo(connID, domain.LivestreamReadyEvent{
		StreamID:    record.ID,
		ChannelName: channel,
		Token:       token,
		Scope:       input.Scope,
	}); err != nil {
		s.logger.Warnw("failed to deliver publish token", "stream_id", record.ID, "error", err)
	}

	announce := domain.LivestreamStartedEvent{
		StreamID:     record.ID,
		StreamerID:   record.StreamerID,
		StreamerName: record.StreamerName,
		Title:        record.Title,
		Privacy:      record.Privacy,
		ChannelName:  channel,
		RoomID:       roomID,
		Scope:        input.Scope,
	}
	s.announce(mirror, announce, connID)

	s.metrics.RecordStreamStarted(input.Scope)
	s.logger.Infow("livestream started",
		"stream_id", record.ID,
		"streamer_id", record.StreamerID,
		"scope", input.Scope,
		"channel", channel,
	)
	return nil
}

func (s *livestreamService) JoinStream(ctx context.Context, connID domain.ConnectionID, streamerID domain.UserID) error {
	presence, err := s.registry.Get(ctx, connID)
	if err != nil {
		return domain.ErrUserNotAuthenticated
	}

	// Existence is checked against the authoritative record, not the
	// ephemeral mirror, to avoid racing a stream that just started.
	record, err := s.streamRepo.FindActiveByStreamer(ctx, streamerID)
	if err != nil {
		if errors.Is(err, domain.ErrStreamNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	token, err := s.issueToken(ctx, record.ChannelName, presence.UserID, domain.RoleAudience)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTokenIssuance, err)
	}

	if err := s.broadcaster.SendTo(connID, domain.StreamTokenEvent{
		StreamID:    record.ID,
		ChannelName: record.ChannelName,
		Token:       token,
	}); err != nil {
		return err
	}

	s.mu.Lock()
	mirror, exists := s.mirrors[record.ID]
	if !exists {
		// Record exists but mirror was lost (restart); rebuild enough of
		// it to keep counting viewers.
		mirror = &streamMirror{
			streamID:   record.ID,
			streamerID: record.StreamerID,
			scope:      record.Scope,
			roomID:     record.RoomID,
			status:     domain.StatusConnected,
			viewers:    make(map[domain.ConnectionID]domain.UserID),
		}
		s.mirrors[record.ID] = mirror
	}
	if _, already := mirror.viewers[connID]; already {
		s.mu.Unlock()
		return nil
	}
	mirror.viewers[connID] = presence.UserID
	count := len(mirror.viewers)
	s.mu.Unlock()

	s.announce(mirror, domain.ViewerJoinedEvent{
		StreamID:    record.ID,
		UserID:      presence.UserID,
		ViewerCount: count,
		Scope:       record.Scope,
	})
	s.metrics.SetViewerCount(record.ID, count)
	return nil
}

func (s *livestreamService) LeaveStream(ctx context.Context, connID domain.ConnectionID, streamerID domain.UserID) error {
	presence, err := s.registry.Get(ctx, connID)
	if err != nil {
		return domain.ErrUserNotAuthenticated
	}

	record, err := s.streamRepo.FindActiveByStreamer(ctx, streamerID)
	if err != nil {
		// Stream already gone; leaving is a no-op.
		return nil
	}

	s.mu.Lock()
	mirror, exists := s.mirrors[record.ID]
	if !exists {
		s.mu.Unlock()
		return nil
	}
	if _, watching := mirror.viewers[connID]; !watching {
		s.mu.Unlock()
		return nil
	}
	delete(mirror.viewers, connID)
	count := len(mirror.viewers)
	s.mu.Unlock()

	s.announce(mirror, domain.ViewerLeftEvent{
		StreamID:    record.ID,
		UserID:      presence.UserID,
		ViewerCount: count,
		Scope:       record.Scope,
	})
	s.metrics.SetViewerCount(record.ID, count)
	return nil
}

// StopStream is idempotent: stopping with no active stream is a no-op.
func (s *livestreamService) StopStream(ctx context.Context, connID domain.ConnectionID) error {
	presence, err := s.registry.Get(ctx, connID)
	if err != nil {
		return domain.ErrUserNotAuthenticated
	}

	record, err := s.streamRepo.FindActiveByStreamer(ctx, presence.UserID)
	if err != nil {
		return nil
	}

	return s.endStream(ctx, record)
}

func (s *livestreamService) Heartbeat(ctx context.Context, connID domain.ConnectionID, streamID domain.StreamID) error {
	s.mu.Lock()
	mirror, exists := s.mirrors[streamID]
	if !exists || mirror.publisherConn != connID {
		s.mu.Unlock()
		return domain.ErrStreamNotFound
	}
	s.mu.Unlock()

	if err := s.streamRepo.Heartbeat(ctx, streamID, time.Now()); err != nil {
		return fmt.Errorf("failed to record heartbeat: %w", err)
	}
	return nil
}

func (s *livestreamService) HandleDisconnect(ctx context.Context, connID domain.ConnectionID) {
	// Snapshot under lock, announce outside it.
	s.mu.Lock()
	var owned *streamMirror
	type watched struct {
		mirror *streamMirror
		userID domain.UserID
		count  int
	}
	var watchedStreams []watched
	for _, mirror := range s.mirrors {
		if mirror.publisherConn == connID {
			owned = mirror
			continue
		}
		if userID, ok := mirror.viewers[connID]; ok {
			delete(mirror.viewers, connID)
			watchedStreams = append(watchedStreams, watched{mirror, userID, len(mirror.viewers)})
		}
	}
	s.mu.Unlock()

	// Emit the viewer_left the dead connection never sent, so counters do
	// not drift on ungraceful disconnects.
	for _, w := range watchedStreams {
		s.announce(w.mirror, domain.ViewerLeftEvent{
			StreamID:    w.mirror.streamID,
			UserID:      w.userID,
			ViewerCount: w.count,
			Scope:       w.mirror.scope,
		})
		s.metrics.SetViewerCount(w.mirror.streamID, w.count)
	}

	if owned != nil {
		record, err := s.streamRepo.GetByID(ctx, owned.streamID)
		if err != nil {
			s.logger.Warnw("failed to load stream record on publisher disconnect",
				"stream_id", owned.streamID,
				"error", err,
			)
			return
		}
		if err := s.endStream(ctx, record); err != nil {
			s.logger.Warnw("failed to end stream on publisher disconnect",
				"stream_id", owned.streamID,
				"error", err,
			)
		}
	}
}

// RunReaper expires livestream records whose publisher stopped heartbeating.
func (s *livestreamService) RunReaper(ctx context.Context, interval, heartbeatTimeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.reap(ctx, heartbeatTimeout)
		}
	}
}

func (s *livestreamService) reap(ctx context.Context, heartbeatTimeout time.Duration) {
	stale, err := s.streamRepo.ListStale(ctx, time.Now().Add(-heartbeatTimeout))
	if err != nil {
		s.logger.Warnw("reaper failed to list stale streams", "error", err)
		return
	}

	for _, record := range stale {
		s.logger.Infow("reaping stale livestream",
			"stream_id", record.ID,
			"streamer_id", record.StreamerID,
			"last_heartbeat", record.LastHeartbeat,
		)
		if err := s.endStream(ctx, record); err != nil {
			s.logger.Warnw("failed to reap stream", "stream_id", record.ID, "error", err)
		}
	}
}

// ListActive exposes the authoritative active records, for the REST surface.
func (s *livestreamService) ListActive(ctx context.Context) ([]*domain.Livestream, error) {
	return s.streamRepo.ListActive(ctx)
}

func (s *livestreamService) endStream(ctx context.Context, record *domain.Livestream) error {
	if err := s.streamRepo.MarkEnded(ctx, record.ID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	s.mu.Lock()
	mirror, exists := s.mirrors[record.ID]
	if exists {
		mirror.status = domain.StatusEnded
		delete(s.mirrors, record.ID)
	}
	s.mu.Unlock()

	ended := domain.LivestreamEndedEvent{
		StreamID:   record.ID,
		StreamerID: record.StreamerID,
		Scope:      record.Scope,
	}
	if exists {
		s.announce(mirror, ended)
	} else if record.Scope == domain.ScopeRoom {
		s.broadcaster.BroadcastRoom(record.RoomID, ended)
	} else {
		s.broadcaster.BroadcastAll(ended)
	}

	s.metrics.RecordStreamEnded(record.Scope)
	s.metrics.SetViewerCount(record.ID, 0)
	s.logger.Infow("livestream ended", "stream_id", record.ID, "streamer_id", record.StreamerID)
	return nil
}

// failStream transitions connecting -> failed and releases the authoritative
// record so the streamer can retry a start.
func (s *livestreamService) failStream(ctx context.Context, streamID domain.StreamID) {
	s.mu.Lock()
	if mirror, exists := s.mirrors[streamID]; exists && mirror.status == domain.StatusConnecting {
		mirror.status = domain.StatusFailed
		delete(s.mirrors, streamID)
	}
	s.mu.Unlock()

	if err := s.streamRepo.MarkEnded(ctx, streamID); err != nil {
		s.logger.Warnw("failed to release record for failed stream",
			"stream_id", streamID,
			"error", err,
		)
	}
}

// announce fans an event out to the stream's audience: the streamer's room
// for the embedded variant, every attached connection for the personal one.
func (s *livestreamService) announce(mirror *streamMirror, event domain.Event, exclude ...domain.ConnectionID) {
	if mirror.scope == domain.ScopeRoom {
		s.broadcaster.BroadcastRoom(mirror.roomID, event, exclude...)
		return
	}
	s.broadcaster.BroadcastAll(event, exclude...)
}

// SessionStatus reports the mirror's lifecycle state for a stream, or idle
// when no mirror exists.
func (s *livestreamService) SessionStatus(streamID domain.StreamID) domain.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mirror, exists := s.mirrors[streamID]; exists {
		return mirror.status
	}
	return domain.StatusIdle
}

// ViewerCount reports the mirror's current viewer count.
func (s *livestreamService) ViewerCount(streamID domain.StreamID) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mirror, exists := s.mirrors[streamID]; exists {
		return len(mirror.viewers)
	}
	return 0
}

func (s *livestreamService) issueToken(ctx context.Context, channel string, uid domain.UserID, role domain.MediaRole) (string, error) {
	type result struct {
		token string
		err   error
	}
	ch := make(chan result, 1)
	go func() {
		token, err := s.tokens.Issue(channel, uid, role)
		ch <- result{token, err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		return res.token, res.err
	}
}
