// Package hostsim simulates an agent-workspace host for local development.
// It speaks the bridge protocol on /ws and keeps one agent and at most one
// current contact in memory.
package hostsim

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace/bridge"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

var (
	ErrNoContact    = errors.New("no such contact")
	ErrUnknownState = errors.New("unknown agent state")
)

// Config configures the simulated host
type Config struct {
	AppInstanceID string
	Features      []string
	// CreateDelay postpones the create message. A negative delay never
	// sends it, which looks like running outside the workspace.
	CreateDelay time.Duration
	// NoResult makes agent state changes fail with noResult
	NoResult bool
}

// DefaultFeatures is every feature the simulator can serve
var DefaultFeatures = []string{
	bridge.FeatureAgent, bridge.FeatureContact, bridge.FeatureVoice, bridge.FeatureEmail,
	bridge.FeatureFile, bridge.FeatureTemplate, bridge.FeatureQuickResponses, bridge.FeatureSettings,
}

// Contact is the simulated current contact
type Contact struct {
	types.ContactDescriptor
	Attributes     map[string]string `json:"attributes,omitempty"`
	QueueTimestamp time.Time         `json:"queueTimestamp"`
	StateStart     time.Time         `json:"stateStart"`
}

// Status is the simulator state exposed on the control API
type Status struct {
	Sessions int              `json:"sessions"`
	Agent    types.AgentState `json:"agent"`
	Contact  *Contact         `json:"contact,omitempty"`
	Dialed   []string         `json:"dialed"`
	Drafts   int              `json:"drafts"`
	Errors   []string         `json:"appErrors"`
}

// Host is the simulated workspace host
type Host struct {
	cfg      Config
	logger   zerolog.Logger
	upgrader websocket.Upgrader

	mu         sync.Mutex
	sessions   map[*session]bool
	agent      agentProfile
	contact    *Contact
	dialed     []string
	drafts     map[string]types.DraftEmail
	files      map[string]types.AttachedFile
	templates  []types.Template
	responses  []types.QuickResponse
	appErrors  []string
	permission bool
	language   string
}

type agentProfile struct {
	arn         string
	name        string
	extension   string
	state       types.AgentState
	states      []types.AvailabilityState
	profile     types.RoutingProfile
	quick       []types.QuickConnect
	countries   []types.DialableCountry
	concurrency map[string]int
}

// New creates a host with a default agent
func New(cfg Config, logger zerolog.Logger) *Host {
	if cfg.AppInstanceID == "" {
		cfg.AppInstanceID = uuid.NewString()
	}
	if cfg.Features == nil {
		cfg.Features = DefaultFeatures
	}

	states := []types.AvailabilityState{
		{StateARN: "arn:aws:connect:sim:agent-state/available", Name: types.StateAvailable, Type: "routable"},
		{StateARN: "arn:aws:connect:sim:agent-state/break", Name: "Break", Type: "not_routable"},
		{StateARN: "arn:aws:connect:sim:agent-state/lunch", Name: "Lunch", Type: "not_routable"},
		{StateARN: "arn:aws:connect:sim:agent-state/offline", Name: types.StateOffline, Type: "offline"},
	}
	queue := types.Queue{Name: "General", QueueARN: "arn:aws:connect:sim:queue/general", QueueID: "general"}

	return &Host{
		cfg:    cfg,
		logger: logger.With().Str("component", "hostsim").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		sessions: make(map[*session]bool),
		agent: agentProfile{
			arn:       "arn:aws:connect:sim:agent/sim-agent",
			name:      "Sim Agent",
			extension: "1001",
			state:     types.AgentState{Name: types.StateOffline, Type: "offline", ARN: states[3].StateARN, StartTimestamp: time.Now().UTC()},
			states:    states,
			profile: types.RoutingProfile{
				Name:              "Basic Routing Profile",
				RoutingProfileARN: "arn:aws:connect:sim:routing-profile/basic",
				Queues:            []types.Queue{queue},
				DefaultOutbound:   &queue,
			},
			quick: []types.QuickConnect{
				{ARN: "arn:aws:connect:sim:transfer-destination/supervisor", Name: "Supervisor", Type: "agent"},
				{ARN: "arn:aws:connect:sim:transfer-destination/billing", Name: "Billing", Type: "queue"},
			},
			countries: []types.DialableCountry{
				{ISOCode: "US", CountryCode: "1", Name: "United States"},
				{ISOCode: "DE", CountryCode: "49", Name: "Germany"},
			},
			concurrency: map[string]int{"VOICE": 1, "CHAT": 3, "TASK": 1, "EMAIL": 1},
		},
		drafts: make(map[string]types.DraftEmail),
		files:  make(map[string]types.AttachedFile),
		templates: []types.Template{
			{ID: "tpl-greeting", Name: "Greeting", Content: "Hello, thanks for contacting us.", Channel: "EMAIL"},
			{ID: "tpl-followup", Name: "Follow-up", Content: "Just following up on your request.", Channel: "EMAIL"},
		},
		responses: []types.QuickResponse{
			{ID: "qr-hold", Name: "Hold", Content: "Please hold while I look into this.", Shortcut: "hold"},
			{ID: "qr-thanks", Name: "Thanks", Content: "Thank you for your patience.", Shortcut: "thx"},
		},
		permission: true,
		language:   "en_US",
	}
}

// SetOutboundPermission toggles the agent's outbound call permission
func (h *Host) SetOutboundPermission(allowed bool) {
	h.mu.Lock()
	h.permission = allowed
	h.mu.Unlock()
}

// Status returns a copy of the simulator state
func (h *Host) Status() Status {
	h.mu.Lock()
	defer h.mu.Unlock()

	st := Status{
		Sessions: len(h.sessions),
		Agent:    h.agent.state,
		Dialed:   append([]string{}, h.dialed...),
		Drafts:   len(h.drafts),
		Errors:   append([]string{}, h.appErrors...),
	}
	if h.contact != nil {
		c := *h.contact
		st.Contact = &c
	}
	return st
}

// ConnectContact makes c the current contact and publishes contact.connected
func (h *Host) ConnectContact(c Contact) Contact {
	now := time.Now().UTC()
	if c.ContactID == "" {
		c.ContactID = uuid.NewString()
	}
	if c.Channel == "" {
		c.Channel = types.ChannelVoice
	}
	if c.Type == "" {
		c.Type = types.CallInbound
	}
	if c.Queue == nil && c.QueueName == "" {
		c.Queue = &types.Queue{Name: "General"}
	}
	if c.QueueTimestamp.IsZero() {
		c.QueueTimestamp = now
	}
	c.StateStart = now

	h.mu.Lock()
	cp := c
	h.contact = &cp
	h.mu.Unlock()

	h.logger.Info().Str("contact_id", c.ContactID).Str("channel", string(c.Channel)).Msg("contact connected")
	h.publish(bridge.TopicContactConnected, c.ContactDescriptor)
	return c
}

func (h *Host) takeContact(id string) (*Contact, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.contact == nil || (id != "" && h.contact.ContactID != id) {
		return nil, fmt.Errorf("%w: %s", ErrNoContact, id)
	}
	c := h.contact
	h.contact = nil
	return c, nil
}

// ClearContact ends the current contact and publishes contact.cleared
func (h *Host) ClearContact(id string) error {
	c, err := h.takeContact(id)
	if err != nil {
		return err
	}
	h.logger.Info().Str("contact_id", c.ContactID).Msg("contact cleared")
	h.publish(bridge.TopicContactCleared, c.ContactDescriptor)
	return nil
}

// MissContact drops the current contact and publishes contact.missed
func (h *Host) MissContact(id string) error {
	c, err := h.takeContact(id)
	if err != nil {
		return err
	}
	h.logger.Info().Str("contact_id", c.ContactID).Msg("contact missed")
	h.publish(bridge.TopicContactMissed, c.ContactDescriptor)
	return nil
}

// StartACW moves the agent to AfterContactWork for the current contact
func (h *Host) StartACW(id string) error {
	h.mu.Lock()
	if h.contact == nil || (id != "" && h.contact.ContactID != id) {
		h.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoContact, id)
	}
	c := h.contact.ContactDescriptor
	h.mu.Unlock()

	h.publish(bridge.TopicContactStartingACW, c)
	h.changeState(types.AgentState{Name: types.StateAfterContactWork, Type: "not_routable"})
	return nil
}

// SetAgentState changes the agent state by name and publishes agent.stateChanged
func (h *Host) SetAgentState(name string) error {
	st, ok := h.lookupState(func(s types.AvailabilityState) bool { return strings.EqualFold(s.Name, name) })
	if !ok {
		if name != types.StateAfterContactWork {
			return fmt.Errorf("%w: %s", ErrUnknownState, name)
		}
		st = types.AvailabilityState{Name: types.StateAfterContactWork, Type: "not_routable"}
	}
	h.changeState(types.AgentState{Name: st.Name, Type: st.Type, ARN: st.StateARN})
	return nil
}

// SetLanguage changes the workspace language and publishes settings.languageChanged
func (h *Host) SetLanguage(lang string) {
	h.mu.Lock()
	prev := h.language
	h.language = lang
	h.mu.Unlock()
	h.publish(bridge.TopicLanguageChanged, workspace.LanguageChange{Language: lang, Previous: prev})
}

// Destroy tells every connected app it is being destroyed
func (h *Host) Destroy() {
	h.broadcast(bridge.LifecycleMsg{Type: bridge.TypeLifecycle, Stage: bridge.StageDestroy})
}

// SendHostError reports a connection error to every connected app
func (h *Host) SendHostError(key, message string) {
	h.broadcast(bridge.ErrorMsg{Type: bridge.TypeError, Key: key, Message: message})
}

// Disconnect drops every app connection without a destroy message
func (h *Host) Disconnect() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		s.conn.Close()
	}
}

func (h *Host) lookupState(match func(types.AvailabilityState) bool) (types.AvailabilityState, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.agent.states {
		if match(s) {
			return s, true
		}
	}
	return types.AvailabilityState{}, false
}

func (h *Host) changeState(next types.AgentState) {
	next.StartTimestamp = time.Now().UTC()

	h.mu.Lock()
	prev := h.agent.state
	h.agent.state = next
	h.mu.Unlock()

	h.logger.Info().Str("from", prev.Name).Str("to", next.Name).Msg("agent state changed")
	h.publish(bridge.TopicAgentStateChanged, workspace.AgentStateChange{State: next, Previous: &prev})
}

// publish sends an event to every session subscribed to topic
func (h *Host) publish(topic string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("failed to marshal event")
		return
	}
	msg, err := json.Marshal(bridge.EventMsg{Type: bridge.TypeEvent, Topic: topic, Data: raw})
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		if s.subscribed(topic) {
			s.enqueue(msg)
		}
	}
}

func (h *Host) broadcast(v interface{}) {
	msg, err := json.Marshal(v)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		s.enqueue(msg)
	}
}

// ServeWS upgrades the request and runs one app session
func (h *Host) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	s := newSession(h, conn)
	h.mu.Lock()
	h.sessions[s] = true
	h.mu.Unlock()

	h.logger.Info().Str("remote_addr", r.RemoteAddr).Msg("app connected")

	go s.writePump()
	go s.readPump()

	switch {
	case h.cfg.CreateDelay < 0:
		// never create
	case h.cfg.CreateDelay == 0:
		s.sendCreate()
	default:
		time.AfterFunc(h.cfg.CreateDelay, s.sendCreate)
	}
}

func (h *Host) removeSession(s *session) {
	h.mu.Lock()
	delete(h.sessions, s)
	h.mu.Unlock()
	h.logger.Info().Msg("app disconnected")
}
