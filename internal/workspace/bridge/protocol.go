package bridge

import (
	"encoding/json"

	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

// Message types
const (
	// host -> desk
	TypeLifecycle = "lifecycle"
	TypeError     = "error"
	TypeEvent     = "event"
	TypeResponse  = "response"

	// desk -> host
	TypeRequest   = "request"
	TypeSubscribe = "subscribe"
	TypeAppError  = "app_error"
)

// Lifecycle stages
const (
	StageCreate  = "create"
	StageDestroy = "destroy"
)

// Feature names announced in the create message
const (
	FeatureAgent          = "agent"
	FeatureContact        = "contact"
	FeatureVoice          = "voice"
	FeatureEmail          = "email"
	FeatureFile           = "file"
	FeatureTemplate       = "messageTemplate"
	FeatureQuickResponses = "quickResponses"
	FeatureSettings       = "settings"
)

// Event topics
const (
	TopicAgentStateChanged  = "agent.stateChanged"
	TopicContactConnected   = "contact.connected"
	TopicContactCleared     = "contact.cleared"
	TopicContactMissed      = "contact.missed"
	TopicContactStartingACW = "contact.startingAcw"
	TopicEmailAccepted      = "email.accepted"
	TopicEmailDraftCreated  = "email.draftCreated"
	TopicLanguageChanged    = "settings.languageChanged"
)

// Request methods
const (
	MethodAgentGetARN                 = "agent.getARN"
	MethodAgentGetName                = "agent.getName"
	MethodAgentGetExtension           = "agent.getExtension"
	MethodAgentGetState               = "agent.getState"
	MethodAgentGetChannelConcurrency  = "agent.getChannelConcurrency"
	MethodAgentGetRoutingProfile      = "agent.getRoutingProfile"
	MethodAgentListAvailabilityStates = "agent.listAvailabilityStates"
	MethodAgentListQuickConnects      = "agent.listQuickConnects"
	MethodAgentSetAvailabilityState   = "agent.setAvailabilityState"
	MethodAgentSetStateByName         = "agent.setAvailabilityStateByName"
	MethodAgentSetOffline             = "agent.setOffline"

	MethodContactAccept            = "contact.accept"
	MethodContactClear             = "contact.clear"
	MethodContactTransfer          = "contact.transfer"
	MethodContactAddParticipant    = "contact.addParticipant"
	MethodContactGetAttribute      = "contact.getAttribute"
	MethodContactGetAttributes     = "contact.getAttributes"
	MethodContactGetChannelType    = "contact.getChannelType"
	MethodContactGetInitialID      = "contact.getInitialContactId"
	MethodContactGetQueue          = "contact.getQueue"
	MethodContactGetQueueTimestamp = "contact.getQueueTimestamp"
	MethodContactGetStateDuration  = "contact.getStateDuration"

	MethodVoiceCreateOutboundCall    = "voice.createOutboundCall"
	MethodVoiceGetOutboundPermission = "voice.getOutboundCallPermission"
	MethodVoiceGetInitialCustomerNum = "voice.getInitialCustomerPhoneNumber"
	MethodVoiceListDialableCountries = "voice.listDialableCountries"

	MethodEmailCreateDraft = "email.createDraftEmail"
	MethodEmailSend        = "email.sendEmail"
	MethodEmailGetThread   = "email.getEmailThread"

	MethodFileStartUpload    = "file.startAttachedFileUpload"
	MethodFileCompleteUpload = "file.completeAttachedFileUpload"
	MethodFileGetURL         = "file.getAttachedFileUrl"
	MethodFileBatchMetadata  = "file.batchGetAttachedFileMetadata"
	MethodFileDelete         = "file.deleteAttachedFile"

	MethodTemplateIsEnabled  = "messageTemplate.isEnabled"
	MethodTemplateSearch     = "messageTemplate.searchMessageTemplates"
	MethodTemplateGetContent = "messageTemplate.getContent"

	MethodQuickResponsesIsEnabled = "quickResponses.isEnabled"
	MethodQuickResponsesSearch    = "quickResponses.searchQuickResponses"

	MethodSettingsGetLanguage = "settings.getLanguage"
)

// Envelope is the common header of every frame
type Envelope struct {
	Type string `json:"type"`
}

// LifecycleMsg is sent by the host on create and destroy
type LifecycleMsg struct {
	Type          string   `json:"type"`
	Stage         string   `json:"stage"`
	AppInstanceID string   `json:"appInstanceId,omitempty"`
	Features      []string `json:"features,omitempty"`
}

// ErrorMsg carries a host connection error
type ErrorMsg struct {
	Type    string `json:"type"`
	Key     string `json:"key"`
	Message string `json:"message,omitempty"`
}

// EventMsg carries a subscribed topic event
type EventMsg struct {
	Type  string          `json:"type"`
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RequestMsg is a capability call from the desk
type RequestMsg struct {
	Type   string          `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// ResponseMsg answers a RequestMsg with the same id
type ResponseMsg struct {
	Type   string           `json:"type"`
	ID     string           `json:"id"`
	Result json.RawMessage  `json:"result,omitempty"`
	Error  *workspace.Error `json:"error,omitempty"`
}

// SubscribeMsg asks the host to publish a topic
type SubscribeMsg struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// AppErrorMsg reports an app error to the host
type AppErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// Request params

type StateARNParams struct {
	StateARN string `json:"agentStateARN"`
}

type StateNameParams struct {
	Name string `json:"name"`
}

type QueueARNParams struct {
	QueueARN string `json:"queueARN,omitempty"`
}

type AttributeParams struct {
	Name string `json:"attribute"`
}

type OutboundCallParams struct {
	PhoneNumber      string `json:"phoneNumber"`
	QueueARN         string `json:"queueARN,omitempty"`
	RelatedContactID string `json:"relatedContactId,omitempty"`
}

type ContactIDParams struct {
	ContactID string `json:"contactId"`
}

type FileIDParams struct {
	FileID string `json:"fileId"`
}

type FileIDsParams struct {
	FileIDs []string `json:"fileIds"`
}

type SearchParams struct {
	Query string `json:"query"`
}

type TemplateIDParams struct {
	TemplateID string `json:"templateId"`
}
