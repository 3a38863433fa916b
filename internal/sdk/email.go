package sdk

import (
	"context"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

func (m *Manager) emailClient() (workspace.EmailClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.Email == nil {
		return nil, &NotInitializedError{Client: "EmailClient"}
	}
	return m.clients.Email, nil
}

// IsEmailEnabled reports whether the connected contact is an email
func (m *Manager) IsEmailEnabled(ctx context.Context) bool {
	ch, err := m.GetChannelType(ctx)
	return err == nil && ch == types.ChannelEmail
}

// CreateDraftEmail creates an outbound email contact and returns its id
func (m *Manager) CreateDraftEmail(ctx context.Context, draft types.DraftEmail) (string, error) {
	c, err := m.emailClient()
	if err != nil {
		return "", err
	}
	if !hasRecipient(draft.To) {
		return "", &ValidationError{Field: "to", Message: "at least one recipient is required"}
	}
	id, err := c.CreateDraftEmail(ctx, draft)
	if err != nil {
		m.logger.Error().Err(err).Msg("failed to create email draft")
		return "", err
	}
	return id, nil
}

// SendEmail sends a draft created by CreateDraftEmail
func (m *Manager) SendEmail(ctx context.Context, draft types.DraftEmail) error {
	c, err := m.emailClient()
	if err != nil {
		return err
	}
	if draft.ContactID == "" {
		return &ValidationError{Field: "contactId", Message: "draft contact id is required"}
	}
	if err := c.SendEmail(ctx, draft); err != nil {
		m.logger.Error().Err(err).Str("contact_id", draft.ContactID).Msg("failed to send email")
		return err
	}
	return nil
}

func (m *Manager) GetEmailThread(ctx context.Context, contactID string) ([]types.EmailMessage, error) {
	c, err := m.emailClient()
	if err != nil {
		return nil, err
	}
	return c.GetEmailThread(ctx, contactID)
}

// GetEmailData reads the email view of the connected contact from its
// attributes. It returns nil unless the contact is on the EMAIL channel.
func (m *Manager) GetEmailData(ctx context.Context) (*types.EmailData, error) {
	ch, err := m.GetChannelType(ctx)
	if err != nil {
		return nil, err
	}
	if ch != types.ChannelEmail {
		return nil, nil
	}

	attrs, err := m.GetContactAttributes(ctx)
	if err != nil {
		return nil, err
	}
	id, err := m.GetInitialContactID(ctx)
	if err != nil {
		return nil, err
	}

	return &types.EmailData{
		ContactID:    id,
		FromAddress:  firstAttr(attrs, "fromAddress", "customerEmail"),
		ToAddress:    firstAttr(attrs, "toAddress", "agentEmail"),
		Subject:      firstAttr(attrs, "subject", "emailSubject"),
		Body:         firstAttr(attrs, "body", "emailBody"),
		Status:       "active",
		ReceivedTime: orDefault(attrs["receivedTime"], time.Now().UTC().Format(time.RFC3339)),
		InReplyTo:    attrs["inReplyTo"],
		ThreadID:     attrs["threadId"],
	}, nil
}

func hasRecipient(to []types.EmailAddress) bool {
	for _, a := range to {
		if strings.TrimSpace(a.EmailAddress) != "" {
			return true
		}
	}
	return false
}

func firstAttr(attrs map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := attrs[k]; v != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
