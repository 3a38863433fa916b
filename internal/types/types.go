package types

import "time"

// Agent availability state names as reported by the workspace
const (
	StateAvailable        = "Available"
	StateAfterContactWork = "AfterContactWork"
	StateOffline          = "Offline"
)

// OutboundEligibleStates are the agent states from which an outbound call may be placed
var OutboundEligibleStates = []string{StateAvailable, StateAfterContactWork}

// AgentState is the agent's current state in the workspace
type AgentState struct {
	Name           string    `json:"name"`
	Type           string    `json:"type"` // routable, not_routable, offline
	ARN            string    `json:"agentStateARN,omitempty"`
	StartTimestamp time.Time `json:"startTimestamp,omitempty"`
}

// AvailabilityState is a publishable agent state
type AvailabilityState struct {
	StateARN string `json:"agentStateARN"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

// RoutingProfile describes the agent's routing profile
type RoutingProfile struct {
	Name              string         `json:"name"`
	RoutingProfileARN string         `json:"routingProfileId"`
	Queues            []Queue        `json:"queues,omitempty"`
	DefaultOutbound   *Queue         `json:"defaultOutboundQueue,omitempty"`
	Concurrency       map[string]int `json:"channelConcurrency,omitempty"`
}

// QuickConnect is a transfer destination
type QuickConnect struct {
	ARN  string `json:"endpointARN"`
	Name string `json:"name"`
	Type string `json:"type"` // agent, queue, phone_number
}

// DialableCountry is one country the agent may call
type DialableCountry struct {
	ISOCode     string `json:"isoCode"`
	CountryCode string `json:"countryCode"`
	Name        string `json:"name"`
}

// OutboundCallOptions carries optional settings for an outbound dial
type OutboundCallOptions struct {
	QueueARN         string `json:"queueARN,omitempty"`
	RelatedContactID string `json:"relatedContactId,omitempty"`
}

// OutboundCallResult is returned by the workspace after a successful dial
type OutboundCallResult struct {
	ContactID string `json:"contactId"`
}

// OutboundEligibility is the result of checking whether the agent may dial
type OutboundEligibility struct {
	CanCall bool   `json:"canCall"`
	Reason  string `json:"reason,omitempty"`
}

// Transfer / participant targets
type TransferDetails struct {
	QuickConnect string `json:"quickConnect"`
	ContactID    string `json:"contactId,omitempty"`
}
