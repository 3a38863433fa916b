package sdk

import (
	"context"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

func (m *Manager) agentClient() (workspace.AgentClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.Agent == nil {
		return nil, &NotInitializedError{Client: "AgentClient"}
	}
	return m.clients.Agent, nil
}

func (m *Manager) GetAgentARN(ctx context.Context) (string, error) {
	c, err := m.agentClient()
	if err != nil {
		return "", err
	}
	return c.GetARN(ctx)
}

func (m *Manager) GetAgentName(ctx context.Context) (string, error) {
	c, err := m.agentClient()
	if err != nil {
		return "", err
	}
	return c.GetName(ctx)
}

func (m *Manager) GetAgentExtension(ctx context.Context) (string, error) {
	c, err := m.agentClient()
	if err != nil {
		return "", err
	}
	return c.GetExtension(ctx)
}

func (m *Manager) GetAgentState(ctx context.Context) (types.AgentState, error) {
	c, err := m.agentClient()
	if err != nil {
		return types.AgentState{}, err
	}
	return c.GetState(ctx)
}

func (m *Manager) GetChannelConcurrency(ctx context.Context) (map[string]int, error) {
	c, err := m.agentClient()
	if err != nil {
		return nil, err
	}
	return c.GetChannelConcurrency(ctx)
}

func (m *Manager) GetRoutingProfile(ctx context.Context) (types.RoutingProfile, error) {
	c, err := m.agentClient()
	if err != nil {
		return types.RoutingProfile{}, err
	}
	return c.GetRoutingProfile(ctx)
}

func (m *Manager) ListAvailabilityStates(ctx context.Context) ([]types.AvailabilityState, error) {
	c, err := m.agentClient()
	if err != nil {
		return nil, err
	}
	states, err := c.ListAvailabilityStates(ctx)
	if err != nil {
		return nil, err
	}
	for _, s := range states {
		m.logger.Debug().Str("name", s.Name).Str("type", s.Type).Str("arn", s.StateARN).Msg("availability state")
	}
	return states, nil
}

func (m *Manager) ListQuickConnects(ctx context.Context, queueARN string) ([]types.QuickConnect, error) {
	c, err := m.agentClient()
	if err != nil {
		return nil, err
	}
	return c.ListQuickConnects(ctx, queueARN)
}

// SetAvailabilityState changes the agent state by ARN
func (m *Manager) SetAvailabilityState(ctx context.Context, stateARN string) error {
	c, err := m.agentClient()
	if err != nil {
		return err
	}
	if stateARN == "" {
		return &ValidationError{Field: "stateArn", Message: "required"}
	}
	m.logger.Info().Str("state_arn", stateARN).Msg("setting availability state")
	return m.stateChangeError(c.SetAvailabilityState(ctx, stateARN))
}

// SetAvailabilityStateByName changes the agent state by display name
func (m *Manager) SetAvailabilityStateByName(ctx context.Context, name string) error {
	c, err := m.agentClient()
	if err != nil {
		return err
	}
	if name == "" {
		return &ValidationError{Field: "stateName", Message: "required"}
	}
	return m.stateChangeError(c.SetAvailabilityStateByName(ctx, name))
}

// SetOffline moves the agent to Offline
func (m *Manager) SetOffline(ctx context.Context) error {
	c, err := m.agentClient()
	if err != nil {
		return err
	}
	m.logger.Info().Msg("setting agent offline")
	return m.stateChangeError(c.SetOffline(ctx))
}

func (m *Manager) stateChangeError(err error) error {
	if err == nil {
		return nil
	}
	m.logger.Error().Err(err).Msg("agent state change failed")
	if workspace.IsNoResult(err) {
		return ErrNotInWorkspace
	}
	return err
}
