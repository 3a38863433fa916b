package ingestion

import (
	"context"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// CallTracker receives the contact lifecycle (tracker.Tracker)
type CallTracker interface {
	StartCall(ctx context.Context, contact types.ContactDescriptor)
	EndCall(ctx context.Context, contact types.ContactDescriptor, status types.CallStatus) error
	AddACWTime(ctx context.Context, d time.Duration)
	AbandonActiveCalls(ctx context.Context) int
	GetMetrics() types.Metrics
}

// Recorder counts ingested events (metrics.Metrics)
type Recorder interface {
	RecordWorkspaceEvent(topic string)
	RecordCallEnded(status string)
	SetActiveCalls(n int)
	SetWorkspaceReady(ready bool)
}
