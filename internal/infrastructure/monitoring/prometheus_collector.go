package monitoring

import (
	"huddle/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements the metrics hooks of the gateway and the
// coordinator services on a shared set of collectors.
type PrometheusCollector struct {
	connectionsActive prometheus.Gauge
	connectionsTotal  prometheus.Counter

	roomJoinsTotal  *prometheus.CounterVec
	roomLeavesTotal *prometheus.CounterVec

	messagesBroadcastTotal *prometheus.CounterVec

	streamsActive       *prometheus.GaugeVec
	streamsStartedTotal *prometheus.CounterVec
	streamViewerCount   *prometheus.GaugeVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "huddle_connections_active",
			Help: "Number of currently attached realtime connections",
		}),

		connectionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "huddle_connections_total",
			Help: "Total number of realtime connections accepted",
		}),

		roomJoinsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_room_joins_total",
			Help: "Total number of room joins",
		}, []string{"room_id"}),

		roomLeavesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_room_leaves_total",
			Help: "Total number of room leaves, explicit and implicit",
		}, []string{"room_id"}),

		messagesBroadcastTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_messages_broadcast_total",
			Help: "Total number of chat messages persisted and broadcast",
		}, []string{"room_id"}),

		streamsActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "huddle_streams_active",
			Help: "Number of currently live streams",
		}, []string{"scope"}),

		streamsStartedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "huddle_streams_started_total",
			Help: "Total number of streams that reached the connected state",
		}, []string{"scope"}),

		streamViewerCount: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "huddle_stream_viewer_count",
			Help: "Number of viewers per live stream",
		}, []string{"stream_id"}),
	}
}

func (p *PrometheusCollector) RecordConnectionOpened() {
	p.connectionsActive.Inc()
	p.connectionsTotal.Inc()
}

func (p *PrometheusCollector) RecordConnectionClosed() {
	p.connectionsActive.Dec()
}

func (p *PrometheusCollector) RecordRoomJoin(roomID domain.RoomID) {
	p.roomJoinsTotal.WithLabelValues(string(roomID)).Inc()
}

func (p *PrometheusCollector) RecordRoomLeave(roomID domain.RoomID) {
	p.roomLeavesTotal.WithLabelValues(string(roomID)).Inc()
}

func (p *PrometheusCollector) RecordMessageBroadcast(roomID domain.RoomID) {
	p.messagesBroadcastTotal.WithLabelValues(string(roomID)).Inc()
}

func (p *PrometheusCollector) RecordStreamStarted(scope domain.StreamScope) {
	p.streamsActive.WithLabelValues(string(scope)).Inc()
	p.streamsStartedTotal.WithLabelValues(string(scope)).Inc()
}

func (p *PrometheusCollector) RecordStreamEnded(scope domain.StreamScope) {
	p.streamsActive.WithLabelValues(string(scope)).Dec()
}

func (p *PrometheusCollector) SetViewerCount(streamID domain.StreamID, count int) {
	if count <= 0 {
		p.streamViewerCount.DeleteLabelValues(string(streamID))
		return
	}
	p.streamViewerCount.WithLabelValues(string(streamID)).Set(float64(count))
}
