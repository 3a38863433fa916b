package sdk

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

// fakeProvider hands its handlers to the test, which drives the lifecycle
type fakeProvider struct {
	mu         sync.Mutex
	handlers   workspace.Handlers
	clients    workspace.ClientSet
	connectErr error
	connects   int
	closes     int
	appErrors  []string
}

func (p *fakeProvider) Connect(ctx context.Context, h workspace.Handlers) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.connects++
	if p.connectErr != nil {
		return p.connectErr
	}
	p.handlers = h
	return nil
}

func (p *fakeProvider) Clients() workspace.ClientSet {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clients
}

func (p *fakeProvider) SendError(ctx context.Context, message string, fatal bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.appErrors = append(p.appErrors, message)
	return nil
}

func (p *fakeProvider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	return nil
}

func (p *fakeProvider) create(id string) {
	p.mu.Lock()
	h := p.handlers
	p.mu.Unlock()
	h.OnCreate(workspace.CreateEvent{AppInstanceID: id})
}

func (p *fakeProvider) destroy() {
	p.mu.Lock()
	h := p.handlers
	p.mu.Unlock()
	h.OnDestroy()
}

func (p *fakeProvider) fail(key string) {
	p.mu.Lock()
	h := p.handlers
	p.mu.Unlock()
	h.OnError(&workspace.Error{Key: key})
}

type fakeAgent struct {
	mu       sync.Mutex
	state    types.AgentState
	stateErr error
	setErr   error
	setARNs  []string
	onState  func(workspace.AgentStateChange)
}

func (a *fakeAgent) GetARN(ctx context.Context) (string, error)       { return "arn:agent", nil }
func (a *fakeAgent) GetName(ctx context.Context) (string, error)      { return "Test Agent", nil }
func (a *fakeAgent) GetExtension(ctx context.Context) (string, error) { return "1001", nil }

func (a *fakeAgent) GetState(ctx context.Context) (types.AgentState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state, a.stateErr
}

func (a *fakeAgent) GetChannelConcurrency(ctx context.Context) (map[string]int, error) {
	return map[string]int{"VOICE": 1}, nil
}

func (a *fakeAgent) GetRoutingProfile(ctx context.Context) (types.RoutingProfile, error) {
	return types.RoutingProfile{Name: "Basic"}, nil
}

func (a *fakeAgent) ListAvailabilityStates(ctx context.Context) ([]types.AvailabilityState, error) {
	return []types.AvailabilityState{{StateARN: "arn:available", Name: types.StateAvailable, Type: "routable"}}, nil
}

func (a *fakeAgent) ListQuickConnects(ctx context.Context, queueARN string) ([]types.QuickConnect, error) {
	return nil, nil
}

func (a *fakeAgent) SetAvailabilityState(ctx context.Context, stateARN string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.setARNs = append(a.setARNs, stateARN)
	return a.setErr
}

func (a *fakeAgent) SetAvailabilityStateByName(ctx context.Context, name string) error {
	return a.setErr
}

func (a *fakeAgent) SetOffline(ctx context.Context) error { return a.setErr }

func (a *fakeAgent) OnStateChanged(fn func(workspace.AgentStateChange)) { a.onState = fn }

type fakeContact struct {
	attrs       map[string]string
	channel     types.ChannelType
	calls       int
	err         error
	onConnected func(types.ContactDescriptor)
	onCleared   func(types.ContactDescriptor)
	onMissed    func(types.ContactDescriptor)
	onACW       func(types.ContactDescriptor)
}

func (c *fakeContact) Accept(ctx context.Context) error { return nil }
func (c *fakeContact) Clear(ctx context.Context) error  { return nil }

func (c *fakeContact) Transfer(ctx context.Context, details types.TransferDetails) error {
	return nil
}

func (c *fakeContact) AddParticipant(ctx context.Context, details types.TransferDetails) error {
	return nil
}

func (c *fakeContact) GetAttribute(ctx context.Context, name string) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	v, ok := c.attrs[name]
	if !ok {
		return "", errors.New("attribute not found")
	}
	return v, nil
}

func (c *fakeContact) GetAttributes(ctx context.Context) (map[string]string, error) {
	c.calls++
	return c.attrs, c.err
}

func (c *fakeContact) GetChannelType(ctx context.Context) (types.ChannelType, error) {
	return c.channel, c.err
}

func (c *fakeContact) GetInitialContactID(ctx context.Context) (string, error) { return "c-1", c.err }

func (c *fakeContact) GetQueue(ctx context.Context) (types.Queue, error) {
	return types.Queue{Name: "Sales"}, c.err
}

func (c *fakeContact) GetQueueTimestamp(ctx context.Context) (time.Time, error) {
	return time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC), c.err
}

func (c *fakeContact) GetStateDuration(ctx context.Context) (time.Duration, error) {
	return 42 * time.Second, c.err
}

func (c *fakeContact) OnConnected(fn func(types.ContactDescriptor))   { c.onConnected = fn }
func (c *fakeContact) OnCleared(fn func(types.ContactDescriptor))     { c.onCleared = fn }
func (c *fakeContact) OnMissed(fn func(types.ContactDescriptor))      { c.onMissed = fn }
func (c *fakeContact) OnStartingACW(fn func(types.ContactDescriptor)) { c.onACW = fn }

type fakeVoice struct {
	mu         sync.Mutex
	permission bool
	dialErr    error
	dialed     []string
}

func (v *fakeVoice) CreateOutboundCall(ctx context.Context, phoneNumber string, opts types.OutboundCallOptions) (types.OutboundCallResult, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.dialErr != nil {
		return types.OutboundCallResult{}, v.dialErr
	}
	v.dialed = append(v.dialed, phoneNumber)
	return types.OutboundCallResult{ContactID: "out-1"}, nil
}

func (v *fakeVoice) GetOutboundCallPermission(ctx context.Context) (bool, error) {
	return v.permission, nil
}

func (v *fakeVoice) GetInitialCustomerPhoneNumber(ctx context.Context) (string, error) {
	return "+14155551234", nil
}

func (v *fakeVoice) ListDialableCountries(ctx context.Context) ([]types.DialableCountry, error) {
	return nil, nil
}

func (v *fakeVoice) dialedNumbers() []string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]string{}, v.dialed...)
}

type fakeEmail struct {
	drafts     []types.DraftEmail
	onAccepted func(workspace.EmailEvent)
	onDraft    func(workspace.EmailEvent)
}

func (e *fakeEmail) CreateDraftEmail(ctx context.Context, draft types.DraftEmail) (string, error) {
	e.drafts = append(e.drafts, draft)
	return "draft-1", nil
}

func (e *fakeEmail) SendEmail(ctx context.Context, draft types.DraftEmail) error { return nil }

func (e *fakeEmail) GetEmailThread(ctx context.Context, contactID string) ([]types.EmailMessage, error) {
	return []types.EmailMessage{{ID: contactID + "-1"}}, nil
}

func (e *fakeEmail) OnAcceptedEmail(fn func(workspace.EmailEvent))     { e.onAccepted = fn }
func (e *fakeEmail) OnDraftEmailCreated(fn func(workspace.EmailEvent)) { e.onDraft = fn }

type fakeSettings struct {
	onLanguage func(workspace.LanguageChange)
}

func (s *fakeSettings) GetLanguage(ctx context.Context) (string, error)     { return "de_DE", nil }
func (s *fakeSettings) OnLanguageChanged(fn func(workspace.LanguageChange)) { s.onLanguage = fn }

// fakeWorkspace bundles a provider with core clients
type fakeWorkspace struct {
	provider *fakeProvider
	agent    *fakeAgent
	contact  *fakeContact
	voice    *fakeVoice
	email    *fakeEmail
	settings *fakeSettings
}

func newFakeWorkspace() *fakeWorkspace {
	w := &fakeWorkspace{
		agent:    &fakeAgent{state: types.AgentState{Name: types.StateAvailable, Type: "routable"}},
		contact:  &fakeContact{attrs: map[string]string{"customerName": "Ada"}, channel: types.ChannelVoice},
		voice:    &fakeVoice{permission: true},
		email:    &fakeEmail{},
		settings: &fakeSettings{},
	}
	w.provider = &fakeProvider{clients: workspace.ClientSet{
		Agent:    w.agent,
		Contact:  w.contact,
		Voice:    w.voice,
		Email:    w.email,
		Settings: w.settings,
	}}
	return w
}
