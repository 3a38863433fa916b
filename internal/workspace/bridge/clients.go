package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

// on subscribes fn to topic, decoding the event data into T
func on[T any](b *Bridge, topic string, fn func(T)) {
	b.subscribe(topic, func(raw json.RawMessage) {
		var v T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v); err != nil {
				b.logger.Warn().Err(err).Str("topic", topic).Msg("failed to decode event")
				return
			}
		}
		fn(v)
	})
}

type agentClient struct{ b *Bridge }

func (c *agentClient) GetARN(ctx context.Context) (string, error) {
	var out string
	err := c.b.call(ctx, MethodAgentGetARN, nil, &out)
	return out, err
}

func (c *agentClient) GetName(ctx context.Context) (string, error) {
	var out string
	err := c.b.call(ctx, MethodAgentGetName, nil, &out)
	return out, err
}

func (c *agentClient) GetExtension(ctx context.Context) (string, error) {
	var out string
	err := c.b.call(ctx, MethodAgentGetExtension, nil, &out)
	return out, err
}

func (c *agentClient) GetState(ctx context.Context) (types.AgentState, error) {
	var out types.AgentState
	err := c.b.call(ctx, MethodAgentGetState, nil, &out)
	return out, err
}

func (c *agentClient) GetChannelConcurrency(ctx context.Context) (map[string]int, error) {
	out := map[string]int{}
	err := c.b.call(ctx, MethodAgentGetChannelConcurrency, nil, &out)
	return out, err
}

func (c *agentClient) GetRoutingProfile(ctx context.Context) (types.RoutingProfile, error) {
	var out types.RoutingProfile
	err := c.b.call(ctx, MethodAgentGetRoutingProfile, nil, &out)
	return out, err
}

func (c *agentClient) ListAvailabilityStates(ctx context.Context) ([]types.AvailabilityState, error) {
	var out []types.AvailabilityState
	err := c.b.call(ctx, MethodAgentListAvailabilityStates, nil, &out)
	return out, err
}

func (c *agentClient) ListQuickConnects(ctx context.Context, queueARN string) ([]types.QuickConnect, error) {
	var out []types.QuickConnect
	err := c.b.call(ctx, MethodAgentListQuickConnects, QueueARNParams{QueueARN: queueARN}, &out)
	return out, err
}

func (c *agentClient) SetAvailabilityState(ctx context.Context, stateARN string) error {
	return c.b.call(ctx, MethodAgentSetAvailabilityState, StateARNParams{StateARN: stateARN}, nil)
}

func (c *agentClient) SetAvailabilityStateByName(ctx context.Context, name string) error {
	return c.b.call(ctx, MethodAgentSetStateByName, StateNameParams{Name: name}, nil)
}

func (c *agentClient) SetOffline(ctx context.Context) error {
	return c.b.call(ctx, MethodAgentSetOffline, nil, nil)
}

func (c *agentClient) OnStateChanged(fn func(workspace.AgentStateChange)) {
	on(c.b, TopicAgentStateChanged, fn)
}

type contactClient struct{ b *Bridge }

func (c *contactClient) Accept(ctx context.Context) error {
	return c.b.call(ctx, MethodContactAccept, nil, nil)
}

func (c *contactClient) Clear(ctx context.Context) error {
	return c.b.call(ctx, MethodContactClear, nil, nil)
}

func (c *contactClient) Transfer(ctx context.Context, details types.TransferDetails) error {
	return c.b.call(ctx, MethodContactTransfer, details, nil)
}

func (c *contactClient) AddParticipant(ctx context.Context, details types.TransferDetails) error {
	return c.b.call(ctx, MethodContactAddParticipant, details, nil)
}

func (c *contactClient) GetAttribute(ctx context.Context, name string) (string, error) {
	var out string
	err := c.b.call(ctx, MethodContactGetAttribute, AttributeParams{Name: name}, &out)
	return out, err
}

func (c *contactClient) GetAttributes(ctx context.Context) (map[string]string, error) {
	out := map[string]string{}
	err := c.b.call(ctx, MethodContactGetAttributes, nil, &out)
	return out, err
}

func (c *contactClient) GetChannelType(ctx context.Context) (types.ChannelType, error) {
	var out types.ChannelType
	err := c.b.call(ctx, MethodContactGetChannelType, nil, &out)
	return out, err
}

func (c *contactClient) GetInitialContactID(ctx context.Context) (string, error) {
	var out string
	err := c.b.call(ctx, MethodContactGetInitialID, nil, &out)
	return out, err
}

func (c *contactClient) GetQueue(ctx context.Context) (types.Queue, error) {
	var out types.Queue
	err := c.b.call(ctx, MethodContactGetQueue, nil, &out)
	return out, err
}

func (c *contactClient) GetQueueTimestamp(ctx context.Context) (time.Time, error) {
	var out time.Time
	err := c.b.call(ctx, MethodContactGetQueueTimestamp, nil, &out)
	return out, err
}

// GetStateDuration is reported by the host in milliseconds
func (c *contactClient) GetStateDuration(ctx context.Context) (time.Duration, error) {
	var ms int64
	err := c.b.call(ctx, MethodContactGetStateDuration, nil, &ms)
	return time.Duration(ms) * time.Millisecond, err
}

func (c *contactClient) OnConnected(fn func(types.ContactDescriptor)) {
	on(c.b, TopicContactConnected, fn)
}

func (c *contactClient) OnCleared(fn func(types.ContactDescriptor)) {
	on(c.b, TopicContactCleared, fn)
}

func (c *contactClient) OnMissed(fn func(types.ContactDescriptor)) {
	on(c.b, TopicContactMissed, fn)
}

func (c *contactClient) OnStartingACW(fn func(types.ContactDescriptor)) {
	on(c.b, TopicContactStartingACW, fn)
}

type voiceClient struct{ b *Bridge }

func (c *voiceClient) CreateOutboundCall(ctx context.Context, phoneNumber string, opts types.OutboundCallOptions) (types.OutboundCallResult, error) {
	var out types.OutboundCallResult
	params := OutboundCallParams{
		PhoneNumber:      phoneNumber,
		QueueARN:         opts.QueueARN,
		RelatedContactID: opts.RelatedContactID,
	}
	err := c.b.call(ctx, MethodVoiceCreateOutboundCall, params, &out)
	return out, err
}

func (c *voiceClient) GetOutboundCallPermission(ctx context.Context) (bool, error) {
	var out bool
	err := c.b.call(ctx, MethodVoiceGetOutboundPermission, nil, &out)
	return out, err
}

func (c *voiceClient) GetInitialCustomerPhoneNumber(ctx context.Context) (string, error) {
	var out string
	err := c.b.call(ctx, MethodVoiceGetInitialCustomerNum, nil, &out)
	return out, err
}

func (c *voiceClient) ListDialableCountries(ctx context.Context) ([]types.DialableCountry, error) {
	var out []types.DialableCountry
	err := c.b.call(ctx, MethodVoiceListDialableCountries, nil, &out)
	return out, err
}

type emailClient struct{ b *Bridge }

func (c *emailClient) CreateDraftEmail(ctx context.Context, draft types.DraftEmail) (string, error) {
	var out ContactIDParams
	err := c.b.call(ctx, MethodEmailCreateDraft, draft, &out)
	return out.ContactID, err
}

func (c *emailClient) SendEmail(ctx context.Context, draft types.DraftEmail) error {
	return c.b.call(ctx, MethodEmailSend, draft, nil)
}

func (c *emailClient) GetEmailThread(ctx context.Context, contactID string) ([]types.EmailMessage, error) {
	var out []types.EmailMessage
	err := c.b.call(ctx, MethodEmailGetThread, ContactIDParams{ContactID: contactID}, &out)
	return out, err
}

func (c *emailClient) OnAcceptedEmail(fn func(workspace.EmailEvent)) {
	on(c.b, TopicEmailAccepted, fn)
}

func (c *emailClient) OnDraftEmailCreated(fn func(workspace.EmailEvent)) {
	on(c.b, TopicEmailDraftCreated, fn)
}

type fileClient struct{ b *Bridge }

func (c *fileClient) StartAttachedFileUpload(ctx context.Context, upload types.FileUpload) (types.AttachedFile, error) {
	var out types.AttachedFile
	err := c.b.call(ctx, MethodFileStartUpload, upload, &out)
	return out, err
}

func (c *fileClient) CompleteAttachedFileUpload(ctx context.Context, file types.AttachedFile) error {
	return c.b.call(ctx, MethodFileCompleteUpload, file, nil)
}

func (c *fileClient) GetAttachedFileURL(ctx context.Context, fileID string) (string, error) {
	var out types.AttachedFile
	err := c.b.call(ctx, MethodFileGetURL, FileIDParams{FileID: fileID}, &out)
	return out.URL, err
}

func (c *fileClient) BatchGetAttachedFileMetadata(ctx context.Context, fileIDs []string) ([]types.AttachedFile, error) {
	var out []types.AttachedFile
	err := c.b.call(ctx, MethodFileBatchMetadata, FileIDsParams{FileIDs: fileIDs}, &out)
	return out, err
}

func (c *fileClient) DeleteAttachedFile(ctx context.Context, fileID string) error {
	return c.b.call(ctx, MethodFileDelete, FileIDParams{FileID: fileID}, nil)
}

type templateClient struct{ b *Bridge }

func (c *templateClient) IsEnabled(ctx context.Context) (bool, error) {
	var out bool
	err := c.b.call(ctx, MethodTemplateIsEnabled, nil, &out)
	return out, err
}

func (c *templateClient) SearchMessageTemplates(ctx context.Context, query string) ([]types.Template, error) {
	var out []types.Template
	err := c.b.call(ctx, MethodTemplateSearch, SearchParams{Query: query}, &out)
	return out, err
}

func (c *templateClient) GetContent(ctx context.Context, templateID string) (types.Template, error) {
	var out types.Template
	err := c.b.call(ctx, MethodTemplateGetContent, TemplateIDParams{TemplateID: templateID}, &out)
	return out, err
}

type quickResponsesClient struct{ b *Bridge }

func (c *quickResponsesClient) IsEnabled(ctx context.Context) (bool, error) {
	var out bool
	err := c.b.call(ctx, MethodQuickResponsesIsEnabled, nil, &out)
	return out, err
}

func (c *quickResponsesClient) SearchQuickResponses(ctx context.Context, query string) ([]types.QuickResponse, error) {
	var out []types.QuickResponse
	err := c.b.call(ctx, MethodQuickResponsesSearch, SearchParams{Query: query}, &out)
	return out, err
}

type settingsClient struct{ b *Bridge }

func (c *settingsClient) GetLanguage(ctx context.Context) (string, error) {
	var out string
	err := c.b.call(ctx, MethodSettingsGetLanguage, nil, &out)
	return out, err
}

func (c *settingsClient) OnLanguageChanged(fn func(workspace.LanguageChange)) {
	on(c.b, TopicLanguageChanged, fn)
}

var (
	_ workspace.Provider             = (*Bridge)(nil)
	_ workspace.AgentClient          = (*agentClient)(nil)
	_ workspace.ContactClient        = (*contactClient)(nil)
	_ workspace.VoiceClient          = (*voiceClient)(nil)
	_ workspace.EmailClient          = (*emailClient)(nil)
	_ workspace.FileClient           = (*fileClient)(nil)
	_ workspace.TemplateClient       = (*templateClient)(nil)
	_ workspace.QuickResponsesClient = (*quickResponsesClient)(nil)
	_ workspace.SettingsClient       = (*settingsClient)(nil)
)
