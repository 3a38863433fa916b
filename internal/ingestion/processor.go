package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/alerts"
	"github.com/dennisdiepolder/monti/agentdesk/internal/sdk"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
	"github.com/rs/zerolog"
)

// Processor feeds workspace events into the metrics tracker and keeps the
// agent session used for alerts.
type Processor struct {
	ctx     context.Context
	tracker CallTracker
	rec     Recorder
	rules   alerts.Rules
	logger  zerolog.Logger
	now     func() time.Time

	mu      sync.Mutex
	session types.Session
}

// NewProcessor creates a processor. ctx bounds tracker persistence.
func NewProcessor(ctx context.Context, tracker CallTracker, rec Recorder, logger zerolog.Logger) *Processor {
	return &Processor{
		ctx:     ctx,
		tracker: tracker,
		rec:     rec,
		rules:   alerts.DefaultRules,
		logger:  logger.With().Str("component", "ingestion").Logger(),
		now:     time.Now,
	}
}

// SetRules replaces the alert thresholds
func (p *Processor) SetRules(r alerts.Rules) {
	p.mu.Lock()
	p.rules = r
	p.mu.Unlock()
}

// Callbacks returns the manager callbacks served by p
func (p *Processor) Callbacks() sdk.Callbacks {
	return sdk.Callbacks{
		OnReady:            p.Ready,
		OnAgentStateChange: p.AgentStateChanged,
		OnContactConnected: p.ContactConnected,
		OnContactCleared:   p.ContactCleared,
		OnContactMissed:    p.ContactMissed,
		OnStartingACW:      p.StartingACW,
	}
}

// Ready tracks the workspace session. Losing it drops the session view and
// abandons the calls still connected, since no clear event will arrive for them.
func (p *Processor) Ready(ready bool) {
	p.rec.SetWorkspaceReady(ready)

	p.mu.Lock()
	if ready {
		p.session.Ready = true
	} else {
		p.session = types.Session{}
	}
	p.mu.Unlock()

	if ready {
		return
	}
	if n := p.tracker.AbandonActiveCalls(p.ctx); n > 0 {
		for i := 0; i < n; i++ {
			p.rec.RecordCallEnded(string(types.CallStatusAbandoned))
		}
		p.logger.Warn().Int("calls", n).Msg("workspace session lost, active calls abandoned")
	}
	p.syncActive()
}

func (p *Processor) ContactConnected(d types.ContactDescriptor) {
	p.rec.RecordWorkspaceEvent(sdk.TopicContactConnected)

	now := p.now()
	p.mu.Lock()
	cp := d
	p.session.Contact = &cp
	p.session.ContactStart = &now
	p.session.ACWStart = nil
	p.mu.Unlock()

	p.tracker.StartCall(p.ctx, d)
	p.syncActive()

	p.logger.Debug().Str("contact_id", d.ContactID).Msg("contact connected")
}

func (p *Processor) ContactCleared(d types.ContactDescriptor) {
	p.rec.RecordWorkspaceEvent(sdk.TopicContactCleared)
	p.endCall(d, types.CallStatusCompleted)
}

func (p *Processor) ContactMissed(d types.ContactDescriptor) {
	p.rec.RecordWorkspaceEvent(sdk.TopicContactMissed)
	p.endCall(d, types.CallStatusMissed)
}

// StartingACW marks the start of after-contact work
func (p *Processor) StartingACW(d types.ContactDescriptor) {
	p.rec.RecordWorkspaceEvent(sdk.TopicStartingACW)

	now := p.now()
	p.mu.Lock()
	p.session.ACWStart = &now
	p.mu.Unlock()

	p.logger.Debug().Str("contact_id", d.ContactID).Msg("after contact work started")
}

// AgentStateChanged records the agent state. Leaving AfterContactWork adds
// the elapsed ACW time to the tracker.
func (p *Processor) AgentStateChanged(ch workspace.AgentStateChange) {
	p.rec.RecordWorkspaceEvent(sdk.TopicAgentStateChanged)

	now := p.now()
	start := ch.State.StartTimestamp
	if start.IsZero() {
		start = now
	}

	p.mu.Lock()
	st := ch.State
	p.session.AgentState = &st
	p.session.StateStart = start

	var acw time.Duration
	if p.session.ACWStart != nil && st.Name != types.StateAfterContactWork {
		acw = now.Sub(*p.session.ACWStart)
		p.session.ACWStart = nil
	}
	if st.Name == types.StateAfterContactWork && p.session.ACWStart == nil {
		p.session.ACWStart = &start
	}
	p.mu.Unlock()

	if acw > 0 {
		p.tracker.AddACWTime(p.ctx, acw)
	}

	p.logger.Debug().Str("state", st.Name).Msg("agent state changed")
}

func (p *Processor) endCall(d types.ContactDescriptor, status types.CallStatus) {
	p.mu.Lock()
	if p.session.Contact != nil && (d.ContactID == "" || p.session.Contact.ContactID == d.ContactID) {
		if d.Queue == nil && d.QueueName == "" {
			d.Queue = p.session.Contact.Queue
			d.QueueName = p.session.Contact.QueueName
		}
		if d.CustomerNumber == "" && d.PhoneNumber == "" {
			d.CustomerNumber = p.session.Contact.CustomerNumber
			d.PhoneNumber = p.session.Contact.PhoneNumber
		}
		if d.Type == "" {
			d.Type = p.session.Contact.Type
		}
		p.session.Contact = nil
		p.session.ContactStart = nil
	}
	p.mu.Unlock()

	if err := p.tracker.EndCall(p.ctx, d, status); err != nil {
		p.logger.Error().Err(err).Str("contact_id", d.ContactID).Msg("failed to end call")
		return
	}
	p.rec.RecordCallEnded(string(status))
	p.syncActive()
}

func (p *Processor) syncActive() {
	p.rec.SetActiveCalls(p.tracker.GetMetrics().Calls.Active)
}

// Session returns the agent session with alerts evaluated now
func (p *Processor) Session() types.Session {
	p.mu.Lock()
	s := p.session
	rules := p.rules
	p.mu.Unlock()

	if s.AgentState != nil {
		st := *s.AgentState
		s.AgentState = &st
	}
	if s.Contact != nil {
		c := *s.Contact
		s.Contact = &c
	}
	s.Alerts = alerts.Check(s, p.now(), rules)
	return s
}
