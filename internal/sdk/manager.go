// Package sdk is the desk's single point of contact with the agent
// workspace. It drives the host handshake, keeps the agent session
// (agent state, current contact) and wraps every host capability with
// not-initialized and no-contact handling.
package sdk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
	"github.com/rs/zerolog"
)

// Status texts reported through OnStatusChange
const (
	StatusConnecting      = "Connecting to Amazon Connect..."
	StatusReady           = "Ready - All features available"
	StatusIdle            = "Ready"
	StatusNotInWorkspace  = "Not connected - Must run inside Agent Workspace"
	connectionErrorPrefix = "Connection error: "
	initErrorPrefix       = "Error: "
)

const (
	DefaultStatusRevertDelay = 3 * time.Second

	minBackoff = 1 * time.Second
	maxBackoff = 30 * time.Second
)

// State is the manager lifecycle state
type State int

const (
	StateUninitialized State = iota
	StateConnecting
	StateReady
	StateConnectionError
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateConnectionError:
		return "connection_error"
	default:
		return "unknown"
	}
}

// Callbacks receive session changes. Nil fields are skipped.
type Callbacks struct {
	OnStatusChange      func(status string)
	OnReady             func(ready bool)
	OnAgentStateChange  func(workspace.AgentStateChange)
	OnContactConnected  func(types.ContactDescriptor)
	OnContactCleared    func(types.ContactDescriptor)
	OnContactMissed     func(types.ContactDescriptor)
	OnStartingACW       func(types.ContactDescriptor)
	OnEmailAccepted     func(workspace.EmailEvent)
	OnDraftEmailCreated func(workspace.EmailEvent)
	OnLanguageChanged   func(workspace.LanguageChange)
}

// merge copies every non-nil callback of o into c
func (c *Callbacks) merge(o Callbacks) {
	if o.OnStatusChange != nil {
		c.OnStatusChange = o.OnStatusChange
	}
	if o.OnReady != nil {
		c.OnReady = o.OnReady
	}
	if o.OnAgentStateChange != nil {
		c.OnAgentStateChange = o.OnAgentStateChange
	}
	if o.OnContactConnected != nil {
		c.OnContactConnected = o.OnContactConnected
	}
	if o.OnContactCleared != nil {
		c.OnContactCleared = o.OnContactCleared
	}
	if o.OnContactMissed != nil {
		c.OnContactMissed = o.OnContactMissed
	}
	if o.OnStartingACW != nil {
		c.OnStartingACW = o.OnStartingACW
	}
	if o.OnEmailAccepted != nil {
		c.OnEmailAccepted = o.OnEmailAccepted
	}
	if o.OnDraftEmailCreated != nil {
		c.OnDraftEmailCreated = o.OnDraftEmailCreated
	}
	if o.OnLanguageChanged != nil {
		c.OnLanguageChanged = o.OnLanguageChanged
	}
}

// Option configures a Manager
type Option func(*Manager)

// WithStatusRevertDelay sets how long a transient status stays before "Ready"
func WithStatusRevertDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.revertDelay = d
		}
	}
}

// WithBackoff bounds the KeepConnected retry delay
func WithBackoff(min, max time.Duration) Option {
	return func(m *Manager) {
		if min > 0 && max >= min {
			m.minBackoff, m.maxBackoff = min, max
		}
	}
}

// Manager owns the workspace session
type Manager struct {
	provider    workspace.Provider
	logger      zerolog.Logger
	bus         *bus
	revertDelay time.Duration
	minBackoff  time.Duration
	maxBackoff  time.Duration

	mu            sync.Mutex
	state         State
	changed       chan struct{}
	callbacks     Callbacks
	clients       workspace.ClientSet
	caps          workspace.Capabilities
	appInstanceID string
	agentState    *types.AgentState
	contact       *types.ContactDescriptor
	status        string
	statusGen     uint64
	revert        *time.Timer
}

// NewManager creates a manager for provider. Nothing is sent until Init.
func NewManager(provider workspace.Provider, logger zerolog.Logger, opts ...Option) *Manager {
	l := logger.With().Str("component", "sdk_manager").Logger()
	m := &Manager{
		provider:    provider,
		logger:      l,
		bus:         newBus(l),
		revertDelay: DefaultStatusRevertDelay,
		minBackoff:  minBackoff,
		maxBackoff:  maxBackoff,
		changed:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// SetCallbacks merges cb into the registered callbacks
func (m *Manager) SetCallbacks(cb Callbacks) {
	m.mu.Lock()
	m.callbacks.merge(cb)
	m.mu.Unlock()
}

// Subscribe registers fn for topic, or for every topic when topic is empty.
// The returned func unsubscribes.
func (m *Manager) Subscribe(topic string, fn func(Event)) func() {
	return m.bus.subscribe(topic, fn)
}

// State returns the lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the last reported status text
func (m *Manager) Status() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsInitialized reports whether the host created the app
func (m *Manager) IsInitialized() bool {
	return m.State() == StateReady
}

// AppInstanceID returns the id the host assigned on create
func (m *Manager) AppInstanceID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appInstanceID
}

// Capabilities returns the feature negotiation result of the last create
func (m *Manager) Capabilities() workspace.Capabilities {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps
}

// AgentState returns the last agent state seen on a state change event
func (m *Manager) AgentState() *types.AgentState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.agentState == nil {
		return nil
	}
	st := *m.agentState
	return &st
}

// HasActiveContact reports whether a contact is connected
func (m *Manager) HasActiveContact() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.contact != nil
}

// CurrentContact returns the connected contact or nil
func (m *Manager) CurrentContact() *types.ContactDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.contact == nil {
		return nil
	}
	c := *m.contact
	return &c
}

// setState moves to next and wakes waiters. Caller holds mu.
func (m *Manager) setState(next State) {
	if m.state == next {
		return
	}
	m.logger.Debug().Str("from", m.state.String()).Str("to", next.String()).Msg("state changed")
	m.state = next
	close(m.changed)
	m.changed = make(chan struct{})
}

// Init starts the host handshake. It returns once the transport is up; the
// handshake result arrives through OnStatusChange and OnReady.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateReady:
		m.mu.Unlock()
		m.logger.Debug().Msg("already initialized")
		m.emitStatus(StatusIdle)
		m.emitReady(true)
		return nil
	case StateConnecting:
		m.mu.Unlock()
		return ErrInitInProgress
	case StateConnectionError:
		m.mu.Unlock()
		return ErrConnectionFailed
	}
	m.setState(StateConnecting)
	m.mu.Unlock()

	m.logger.Info().Msg("connecting to workspace")
	m.emitStatus(StatusConnecting)

	err := m.provider.Connect(ctx, workspace.Handlers{
		OnCreate:  m.handleCreate,
		OnDestroy: m.handleDestroy,
		OnError:   m.handleError,
	})
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to initialize sdk")
		m.mu.Lock()
		if m.state == StateConnecting {
			m.setState(StateUninitialized)
		}
		m.mu.Unlock()
		m.emitStatus(initErrorPrefix + err.Error())
		m.emitReady(false)
		return err
	}
	return nil
}

// Destroy closes the host connection and clears the session so a later
// Init starts clean.
func (m *Manager) Destroy() {
	if err := m.provider.Close(); err != nil {
		m.logger.Warn().Err(err).Msg("failed to close workspace provider")
	}
	if m.cleanup() {
		m.emitReady(false)
	}
	m.logger.Info().Msg("sdk manager destroyed")
}

// cleanup drops clients and session state. It reports whether the manager
// was ready before.
func (m *Manager) cleanup() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	wasReady := m.state == StateReady
	m.clients = workspace.ClientSet{}
	m.caps = workspace.Capabilities{}
	m.appInstanceID = ""
	m.agentState = nil
	m.contact = nil
	m.statusGen++
	if m.revert != nil {
		m.revert.Stop()
		m.revert = nil
	}
	m.setState(StateUninitialized)
	return wasReady
}

// KeepConnected runs Init until ctx is done, reconnecting after the host
// destroys the app or the connection fails.
func (m *Manager) KeepConnected(ctx context.Context) {
	backoff := m.minBackoff
	for {
		err := m.Init(ctx)
		switch {
		case err == nil:
			state := m.waitWhile(ctx, func(s State) bool { return s == StateConnecting })
			if state == StateReady {
				backoff = m.minBackoff
				m.waitWhile(ctx, func(s State) bool { return s == StateReady })
			}
		case errors.Is(err, ErrConnectionFailed):
			m.Destroy()
		case errors.Is(err, ErrInitInProgress):
			m.waitWhile(ctx, func(s State) bool { return s == StateConnecting })
			continue
		}

		if ctx.Err() != nil {
			return
		}

		if m.State() == StateConnectionError {
			m.Destroy()
		}

		m.logger.Info().Dur("backoff", backoff).Msg("reconnecting to workspace")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > m.maxBackoff {
			backoff = m.maxBackoff
		}
	}
}

// waitWhile blocks while cond holds for the current state and returns the
// state that ended the wait.
func (m *Manager) waitWhile(ctx context.Context, cond func(State) bool) State {
	for {
		m.mu.Lock()
		state, changed := m.state, m.changed
		m.mu.Unlock()
		if !cond(state) {
			return state
		}
		select {
		case <-ctx.Done():
			return state
		case <-changed:
		}
	}
}

func (m *Manager) handleCreate(ev workspace.CreateEvent) {
	clients := m.provider.Clients()

	m.mu.Lock()
	if m.state == StateUninitialized {
		m.mu.Unlock()
		m.logger.Warn().Msg("create received after destroy, ignoring")
		return
	}
	m.clients = clients
	m.caps = clients.Capabilities()
	m.appInstanceID = ev.AppInstanceID
	m.setState(StateReady)
	m.mu.Unlock()

	m.subscribeClients(clients)

	m.logger.Info().
		Str("app_instance_id", ev.AppInstanceID).
		Interface("capabilities", clients.Capabilities()).
		Msg("connected to workspace")
	m.emitStatus(StatusReady)
	m.emitReady(true)
}

func (m *Manager) handleDestroy() {
	m.logger.Info().Msg("app being destroyed")
	if err := m.provider.Close(); err != nil {
		m.logger.Debug().Err(err).Msg("failed to close workspace provider")
	}
	if m.cleanup() {
		m.emitReady(false)
	}
}

func (m *Manager) handleError(e *workspace.Error) {
	m.logger.Error().Str("key", e.Key).Str("message", e.Message).Msg("workspace connection error")

	m.mu.Lock()
	if m.state == StateConnecting {
		m.setState(StateConnectionError)
	}
	m.mu.Unlock()

	if e.Key == workspace.ErrKeyConnectTimeout {
		m.emitStatus(StatusNotInWorkspace)
	} else {
		m.emitStatus(connectionErrorPrefix + e.Key)
	}
	m.emitReady(false)
}

// subscribeClients wires host events into the session and callbacks
func (m *Manager) subscribeClients(c workspace.ClientSet) {
	if c.Agent != nil {
		c.Agent.OnStateChanged(func(ch workspace.AgentStateChange) {
			m.mu.Lock()
			st := ch.State
			m.agentState = &st
			cb := m.callbacks.OnAgentStateChange
			m.mu.Unlock()
			if cb != nil {
				cb(ch)
			}
			m.bus.publish(TopicAgentStateChanged, ch)
		})
	}

	if c.Contact != nil {
		c.Contact.OnConnected(func(d types.ContactDescriptor) {
			m.mu.Lock()
			cp := d
			m.contact = &cp
			cb := m.callbacks.OnContactConnected
			m.mu.Unlock()
			if cb != nil {
				cb(d)
			}
			m.bus.publish(TopicContactConnected, d)
		})
		c.Contact.OnCleared(func(d types.ContactDescriptor) {
			m.mu.Lock()
			m.contact = nil
			cb := m.callbacks.OnContactCleared
			m.mu.Unlock()
			if cb != nil {
				cb(d)
			}
			m.bus.publish(TopicContactCleared, d)
		})
		c.Contact.OnMissed(func(d types.ContactDescriptor) {
			m.mu.Lock()
			m.contact = nil
			cb := m.callbacks.OnContactMissed
			m.mu.Unlock()
			if cb != nil {
				cb(d)
			}
			m.bus.publish(TopicContactMissed, d)
		})
		c.Contact.OnStartingACW(func(d types.ContactDescriptor) {
			m.mu.Lock()
			cb := m.callbacks.OnStartingACW
			m.mu.Unlock()
			if cb != nil {
				cb(d)
			}
			m.bus.publish(TopicStartingACW, d)
		})
	}

	if c.Email != nil {
		c.Email.OnAcceptedEmail(func(ev workspace.EmailEvent) {
			m.mu.Lock()
			cb := m.callbacks.OnEmailAccepted
			m.mu.Unlock()
			if cb != nil {
				cb(ev)
			}
			m.bus.publish(TopicEmailAccepted, ev)
		})
		c.Email.OnDraftEmailCreated(func(ev workspace.EmailEvent) {
			m.mu.Lock()
			cb := m.callbacks.OnDraftEmailCreated
			m.mu.Unlock()
			if cb != nil {
				cb(ev)
			}
			m.bus.publish(TopicDraftEmailCreated, ev)
		})
	}

	if c.Settings != nil {
		c.Settings.OnLanguageChanged(func(ch workspace.LanguageChange) {
			m.mu.Lock()
			cb := m.callbacks.OnLanguageChanged
			m.mu.Unlock()
			if cb != nil {
				cb(ch)
			}
			m.bus.publish(TopicLanguageChanged, ch)
		})
	}
}

// emitStatus reports a status and cancels any pending revert
func (m *Manager) emitStatus(status string) {
	m.mu.Lock()
	m.statusGen++
	if m.revert != nil {
		m.revert.Stop()
		m.revert = nil
	}
	m.status = status
	cb := m.callbacks.OnStatusChange
	m.mu.Unlock()

	if cb != nil {
		cb(status)
	}
	m.bus.publish(TopicStatus, status)
}

// emitTransient reports status and reverts to "Ready" after the revert
// delay unless a newer status arrives first.
func (m *Manager) emitTransient(status string) {
	m.emitStatus(status)

	m.mu.Lock()
	gen := m.statusGen
	m.revert = time.AfterFunc(m.revertDelay, func() {
		m.mu.Lock()
		current := m.statusGen == gen
		m.mu.Unlock()
		if current {
			m.emitStatus(StatusIdle)
		}
	})
	m.mu.Unlock()
}

func (m *Manager) emitReady(ready bool) {
	m.mu.Lock()
	cb := m.callbacks.OnReady
	m.mu.Unlock()
	if cb != nil {
		cb(ready)
	}
	m.bus.publish(TopicReady, ready)
}

// SendError reports a recoverable app error to the host
func (m *Manager) SendError(ctx context.Context, message string) {
	m.sendError(ctx, message, false)
}

// SendFatalError reports an unrecoverable app error to the host
func (m *Manager) SendFatalError(ctx context.Context, message string) {
	m.sendError(ctx, message, true)
}

func (m *Manager) sendError(ctx context.Context, message string, fatal bool) {
	if !m.IsInitialized() {
		m.logger.Error().Str("message", message).Bool("fatal", fatal).Msg("cannot send error, sdk not initialized")
		return
	}
	if err := m.provider.SendError(ctx, message, fatal); err != nil {
		m.logger.Error().Err(err).Bool("fatal", fatal).Msg("failed to send error to workspace")
	}
}
