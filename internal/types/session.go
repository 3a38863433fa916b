package types

import "time"

// Severity of an agent alert
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// AgentAlert is a rule violation for the signed-in agent
type AgentAlert struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Session is the desk's view of the agent's current work: their state,
// the connected contact and any after-contact work in progress.
type Session struct {
	Ready        bool               `json:"ready"`
	AgentState   *AgentState        `json:"agentState,omitempty"`
	StateStart   time.Time          `json:"stateStart"`
	Contact      *ContactDescriptor `json:"contact,omitempty"`
	ContactStart *time.Time         `json:"contactStart,omitempty"`
	ACWStart     *time.Time         `json:"acwStart,omitempty"`
	Alerts       []AgentAlert       `json:"alerts"`
}
