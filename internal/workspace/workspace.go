// Package workspace describes the agent-workspace host the desktop runs in.
// The host exposes agent, contact, voice and email capabilities plus a few
// optional ones; implementations live in subpackages.
package workspace

import (
	"context"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// AgentClient covers the agent's own state and routing
type AgentClient interface {
	GetARN(ctx context.Context) (string, error)
	GetName(ctx context.Context) (string, error)
	GetExtension(ctx context.Context) (string, error)
	GetState(ctx context.Context) (types.AgentState, error)
	GetChannelConcurrency(ctx context.Context) (map[string]int, error)
	GetRoutingProfile(ctx context.Context) (types.RoutingProfile, error)
	ListAvailabilityStates(ctx context.Context) ([]types.AvailabilityState, error)
	ListQuickConnects(ctx context.Context, queueARN string) ([]types.QuickConnect, error)
	SetAvailabilityState(ctx context.Context, stateARN string) error
	SetAvailabilityStateByName(ctx context.Context, name string) error
	SetOffline(ctx context.Context) error

	OnStateChanged(fn func(AgentStateChange))
}

// ContactClient acts on the current contact. Event handlers are scoped to
// the current contact id.
type ContactClient interface {
	Accept(ctx context.Context) error
	Clear(ctx context.Context) error
	Transfer(ctx context.Context, details types.TransferDetails) error
	AddParticipant(ctx context.Context, details types.TransferDetails) error
	GetAttribute(ctx context.Context, name string) (string, error)
	GetAttributes(ctx context.Context) (map[string]string, error)
	GetChannelType(ctx context.Context) (types.ChannelType, error)
	GetInitialContactID(ctx context.Context) (string, error)
	GetQueue(ctx context.Context) (types.Queue, error)
	GetQueueTimestamp(ctx context.Context) (time.Time, error)
	GetStateDuration(ctx context.Context) (time.Duration, error)

	OnConnected(fn func(types.ContactDescriptor))
	OnCleared(fn func(types.ContactDescriptor))
	OnMissed(fn func(types.ContactDescriptor))
	OnStartingACW(fn func(types.ContactDescriptor))
}

type VoiceClient interface {
	CreateOutboundCall(ctx context.Context, phoneNumber string, opts types.OutboundCallOptions) (types.OutboundCallResult, error)
	GetOutboundCallPermission(ctx context.Context) (bool, error)
	GetInitialCustomerPhoneNumber(ctx context.Context) (string, error)
	ListDialableCountries(ctx context.Context) ([]types.DialableCountry, error)
}

type EmailClient interface {
	CreateDraftEmail(ctx context.Context, draft types.DraftEmail) (string, error)
	SendEmail(ctx context.Context, draft types.DraftEmail) error
	GetEmailThread(ctx context.Context, contactID string) ([]types.EmailMessage, error)

	OnAcceptedEmail(fn func(EmailEvent))
	OnDraftEmailCreated(fn func(EmailEvent))
}

type FileClient interface {
	StartAttachedFileUpload(ctx context.Context, upload types.FileUpload) (types.AttachedFile, error)
	CompleteAttachedFileUpload(ctx context.Context, file types.AttachedFile) error
	GetAttachedFileURL(ctx context.Context, fileID string) (string, error)
	BatchGetAttachedFileMetadata(ctx context.Context, fileIDs []string) ([]types.AttachedFile, error)
	DeleteAttachedFile(ctx context.Context, fileID string) error
}

type TemplateClient interface {
	IsEnabled(ctx context.Context) (bool, error)
	SearchMessageTemplates(ctx context.Context, query string) ([]types.Template, error)
	GetContent(ctx context.Context, templateID string) (types.Template, error)
}

type QuickResponsesClient interface {
	IsEnabled(ctx context.Context) (bool, error)
	SearchQuickResponses(ctx context.Context, query string) ([]types.QuickResponse, error)
}

type SettingsClient interface {
	GetLanguage(ctx context.Context) (string, error)
	OnLanguageChanged(fn func(LanguageChange))
}

// ClientSet holds the clients the host provided. Optional clients are nil
// when the host lacks the feature.
type ClientSet struct {
	Agent          AgentClient
	Contact        ContactClient
	Voice          VoiceClient
	Email          EmailClient
	File           FileClient
	Template       TemplateClient
	QuickResponses QuickResponsesClient
	Settings       SettingsClient
}

// Capabilities is the feature negotiation result, computed once after create
type Capabilities struct {
	Agent          bool `json:"agent"`
	Contact        bool `json:"contact"`
	Voice          bool `json:"voice"`
	Email          bool `json:"email"`
	File           bool `json:"file"`
	Template       bool `json:"messageTemplate"`
	QuickResponses bool `json:"quickResponses"`
	Settings       bool `json:"settings"`
}

// Capabilities reports which clients are present
func (c ClientSet) Capabilities() Capabilities {
	return Capabilities{
		Agent:          c.Agent != nil,
		Contact:        c.Contact != nil,
		Voice:          c.Voice != nil,
		Email:          c.Email != nil,
		File:           c.File != nil,
		Template:       c.Template != nil,
		QuickResponses: c.QuickResponses != nil,
		Settings:       c.Settings != nil,
	}
}

// CreateEvent is delivered once the host accepted the app
type CreateEvent struct {
	AppInstanceID string   `json:"appInstanceId"`
	Features      []string `json:"features"`
}

// Handlers receive the host lifecycle. They run on the provider's event
// goroutine, one at a time.
type Handlers struct {
	OnCreate  func(CreateEvent)
	OnDestroy func()
	OnError   func(*Error)
}

// Provider connects to a workspace host
type Provider interface {
	// Connect starts the handshake and returns once the transport is up.
	// The outcome arrives through h.
	Connect(ctx context.Context, h Handlers) error
	// Clients is valid after OnCreate
	Clients() ClientSet
	SendError(ctx context.Context, message string, fatal bool) error
	Close() error
}

// AgentStateChange is published when the agent's state changes
type AgentStateChange struct {
	State    types.AgentState  `json:"state"`
	Previous *types.AgentState `json:"previous,omitempty"`
}

// EmailEvent is published for accepted emails and created drafts
type EmailEvent struct {
	ContactID        string `json:"contactId"`
	InitialContactID string `json:"initialContactId,omitempty"`
}

type LanguageChange struct {
	Language string `json:"language"`
	Previous string `json:"previous,omitempty"`
}
