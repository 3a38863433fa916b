package sdk

import (
	"context"
	"fmt"
	"strings"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

func (m *Manager) voiceClient() (workspace.VoiceClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.Voice == nil {
		return nil, &NotInitializedError{Client: "VoiceClient"}
	}
	return m.clients.Voice, nil
}

// CreateOutboundCall dials phoneNumber after normalizing it to E.164 and
// re-checking that the agent may place outbound calls.
func (m *Manager) CreateOutboundCall(ctx context.Context, phoneNumber string, opts types.OutboundCallOptions) (types.OutboundCallResult, error) {
	c, err := m.voiceClient()
	if err != nil {
		return types.OutboundCallResult{}, err
	}

	number := FormatPhoneNumber(phoneNumber)
	if !IsValidPhoneNumber(number) {
		return types.OutboundCallResult{}, &ValidationError{
			Field:   "phoneNumber",
			Message: fmt.Sprintf("invalid phone number format: %s", phoneNumber),
		}
	}

	elig := m.CanMakeOutboundCall(ctx)
	if !elig.CanCall {
		reason := elig.Reason
		if reason == "" {
			reason = "Agent is not available to make outbound calls"
		}
		return types.OutboundCallResult{}, fmt.Errorf("%w: %s", ErrOutboundNotAllowed, reason)
	}

	m.emitStatus(fmt.Sprintf("Dialing %s...", number))
	res, err := c.CreateOutboundCall(ctx, number, opts)
	if err != nil {
		m.logger.Error().Err(err).Str("phone_number", number).Msg("outbound call failed")
		m.emitTransient(fmt.Sprintf("Call to %s failed", number))
		return types.OutboundCallResult{}, err
	}

	m.logger.Info().Str("phone_number", number).Str("contact_id", res.ContactID).Msg("outbound call initiated")
	m.emitTransient(fmt.Sprintf("Call initiated to %s", number))
	return res, nil
}

// CanMakeOutboundCall checks outbound permission and agent state
func (m *Manager) CanMakeOutboundCall(ctx context.Context) types.OutboundEligibility {
	m.mu.Lock()
	voice, agent := m.clients.Voice, m.clients.Agent
	m.mu.Unlock()
	if voice == nil || agent == nil {
		return types.OutboundEligibility{Reason: "Clients not initialized"}
	}

	permission, err := voice.GetOutboundCallPermission(ctx)
	if err != nil {
		return types.OutboundEligibility{Reason: "Permission check failed: " + err.Error()}
	}
	state, err := agent.GetState(ctx)
	if err != nil {
		return types.OutboundEligibility{Reason: "Permission check failed: " + err.Error()}
	}

	if !permission {
		return types.OutboundEligibility{Reason: "Agent does not have outbound call permission"}
	}
	for _, s := range types.OutboundEligibleStates {
		if state.Name == s {
			return types.OutboundEligibility{CanCall: true}
		}
	}
	return types.OutboundEligibility{
		Reason: fmt.Sprintf("Agent state is %q. Must be %s", state.Name, strings.Join(types.OutboundEligibleStates, " or ")),
	}
}

func (m *Manager) GetOutboundCallPermission(ctx context.Context) (bool, error) {
	c, err := m.voiceClient()
	if err != nil {
		return false, err
	}
	return c.GetOutboundCallPermission(ctx)
}

func (m *Manager) GetInitialCustomerPhoneNumber(ctx context.Context) (string, error) {
	c, err := m.voiceClient()
	if err != nil {
		return "", err
	}
	return c.GetInitialCustomerPhoneNumber(ctx)
}

func (m *Manager) ListDialableCountries(ctx context.Context) ([]types.DialableCountry, error) {
	c, err := m.voiceClient()
	if err != nil {
		return nil, err
	}
	return c.ListDialableCountries(ctx)
}
