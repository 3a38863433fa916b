package websocket

import (
	"sync"

	"github.com/dennisdiepolder/monti/agentdesk/internal/sdk"
	"github.com/dennisdiepolder/monti/agentdesk/internal/tracker"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Message types sent to panels
const (
	TypeMetrics = "metrics"
	TypeStatus  = "status"
	TypeReady   = "ready"
)

// MetricsSource is the tracker side of the stream
type MetricsSource interface {
	Subscribe(fn tracker.Listener) func()
}

// EventSource is the SDK manager side of the stream
type EventSource interface {
	Subscribe(topic string, fn func(sdk.Event)) func()
}

// StreamMetrics broadcasts tracker notifications in Seq order. A copy older
// than one already sent is dropped so it cannot become the replayed latest.
// The returned function stops the stream.
func (h *Hub) StreamMetrics(src MetricsSource) func() {
	var (
		mu      sync.Mutex
		lastSeq uint64
	)
	return src.Subscribe(func(m types.Metrics) {
		mu.Lock()
		defer mu.Unlock()
		if m.Seq != 0 && m.Seq <= lastSeq {
			h.logger.Debug().Uint64("seq", m.Seq).Uint64("last_seq", lastSeq).Msg("dropping stale metrics")
			return
		}
		lastSeq = m.Seq
		if err := h.BroadcastJSON(TypeMetrics, m); err != nil {
			h.logger.Error().Err(err).Msg("failed to marshal metrics")
		}
	})
}

// StreamStatus broadcasts the manager's status text and readiness
func (h *Hub) StreamStatus(src EventSource) func() {
	unsubStatus := src.Subscribe(sdk.TopicStatus, func(ev sdk.Event) {
		h.BroadcastJSON(TypeStatus, ev.Data)
	})
	unsubReady := src.Subscribe(sdk.TopicReady, func(ev sdk.Event) {
		h.BroadcastJSON(TypeReady, ev.Data)
	})
	return func() {
		unsubStatus()
		unsubReady()
	}
}
