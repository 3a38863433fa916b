package sdk

import (
	"context"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

func (m *Manager) contactClient() (workspace.ContactClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.Contact == nil {
		return nil, &NotInitializedError{Client: "ContactClient"}
	}
	return m.clients.Contact, nil
}

// scopedContactClient is contactClient plus whether a contact is connected
func (m *Manager) scopedContactClient() (workspace.ContactClient, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.Contact == nil {
		return nil, false, &NotInitializedError{Client: "ContactClient"}
	}
	return m.clients.Contact, m.contact != nil, nil
}

func (m *Manager) AcceptContact(ctx context.Context) error {
	c, err := m.contactClient()
	if err != nil {
		return err
	}
	return c.Accept(ctx)
}

func (m *Manager) ClearContact(ctx context.Context) error {
	c, err := m.contactClient()
	if err != nil {
		return err
	}
	return c.Clear(ctx)
}

func (m *Manager) TransferContact(ctx context.Context, details types.TransferDetails) error {
	c, err := m.contactClient()
	if err != nil {
		return err
	}
	return c.Transfer(ctx, details)
}

func (m *Manager) AddParticipant(ctx context.Context, details types.TransferDetails) error {
	c, err := m.contactClient()
	if err != nil {
		return err
	}
	return c.AddParticipant(ctx, details)
}

// GetContactAttribute returns "" when the host has no such attribute or no contact
func (m *Manager) GetContactAttribute(ctx context.Context, name string) (string, error) {
	c, err := m.contactClient()
	if err != nil {
		return "", err
	}
	v, err := c.GetAttribute(ctx, name)
	if err != nil {
		m.logger.Warn().Err(err).Str("attribute", name).Msg("failed to get contact attribute")
		return "", nil
	}
	return v, nil
}

// GetContactAttributes returns an empty map while no contact is connected
func (m *Manager) GetContactAttributes(ctx context.Context) (map[string]string, error) {
	c, active, err := m.scopedContactClient()
	if err != nil {
		return nil, err
	}
	if !active {
		m.logger.Warn().Msg("no active contact tracked")
		return map[string]string{}, nil
	}
	attrs, err := c.GetAttributes(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to get contact attributes")
		return map[string]string{}, nil
	}
	if attrs == nil {
		attrs = map[string]string{}
	}
	return attrs, nil
}

// GetChannelType returns "" while no contact is connected
func (m *Manager) GetChannelType(ctx context.Context) (types.ChannelType, error) {
	c, active, err := m.scopedContactClient()
	if err != nil || !active {
		return "", err
	}
	ch, err := c.GetChannelType(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to get channel type")
		return "", nil
	}
	return ch, nil
}

// GetInitialContactID returns "" while no contact is connected
func (m *Manager) GetInitialContactID(ctx context.Context) (string, error) {
	c, active, err := m.scopedContactClient()
	if err != nil || !active {
		return "", err
	}
	id, err := c.GetInitialContactID(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to get contact id")
		return "", nil
	}
	return id, nil
}

// GetQueue returns nil while no contact is connected
func (m *Manager) GetQueue(ctx context.Context) (*types.Queue, error) {
	c, active, err := m.scopedContactClient()
	if err != nil || !active {
		return nil, err
	}
	q, err := c.GetQueue(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to get queue")
		return nil, nil
	}
	return &q, nil
}

// GetQueueTimestamp returns the zero time while no contact is connected
func (m *Manager) GetQueueTimestamp(ctx context.Context) (time.Time, error) {
	c, active, err := m.scopedContactClient()
	if err != nil || !active {
		return time.Time{}, err
	}
	ts, err := c.GetQueueTimestamp(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to get queue timestamp")
		return time.Time{}, nil
	}
	return ts, nil
}

// GetStateDuration returns 0 when the host cannot answer
func (m *Manager) GetStateDuration(ctx context.Context) (time.Duration, error) {
	c, err := m.contactClient()
	if err != nil {
		return 0, err
	}
	d, err := c.GetStateDuration(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("failed to get state duration")
		return 0, nil
	}
	return d, nil
}
