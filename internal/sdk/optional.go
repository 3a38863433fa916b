package sdk

import (
	"context"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

// Clients below exist only when the host announced the feature on create.

func (m *Manager) fileClient() (workspace.FileClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.File == nil {
		return nil, &NotInitializedError{Client: "FileClient"}
	}
	return m.clients.File, nil
}

func (m *Manager) templateClient() (workspace.TemplateClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.Template == nil {
		return nil, &NotInitializedError{Client: "MessageTemplateClient"}
	}
	return m.clients.Template, nil
}

func (m *Manager) quickResponsesClient() (workspace.QuickResponsesClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.QuickResponses == nil {
		return nil, &NotInitializedError{Client: "QuickResponsesClient"}
	}
	return m.clients.QuickResponses, nil
}

func (m *Manager) settingsClient() (workspace.SettingsClient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.clients.Settings == nil {
		return nil, &NotInitializedError{Client: "SettingsClient"}
	}
	return m.clients.Settings, nil
}

func (m *Manager) StartAttachedFileUpload(ctx context.Context, upload types.FileUpload) (types.AttachedFile, error) {
	c, err := m.fileClient()
	if err != nil {
		return types.AttachedFile{}, err
	}
	if upload.FileName == "" {
		return types.AttachedFile{}, &ValidationError{Field: "fileName", Message: "required"}
	}
	return c.StartAttachedFileUpload(ctx, upload)
}

func (m *Manager) CompleteAttachedFileUpload(ctx context.Context, file types.AttachedFile) error {
	c, err := m.fileClient()
	if err != nil {
		return err
	}
	return c.CompleteAttachedFileUpload(ctx, file)
}

func (m *Manager) GetAttachedFileURL(ctx context.Context, fileID string) (string, error) {
	c, err := m.fileClient()
	if err != nil {
		return "", err
	}
	return c.GetAttachedFileURL(ctx, fileID)
}

func (m *Manager) BatchGetAttachedFileMetadata(ctx context.Context, fileIDs []string) ([]types.AttachedFile, error) {
	c, err := m.fileClient()
	if err != nil {
		return nil, err
	}
	return c.BatchGetAttachedFileMetadata(ctx, fileIDs)
}

func (m *Manager) DeleteAttachedFile(ctx context.Context, fileID string) error {
	c, err := m.fileClient()
	if err != nil {
		return err
	}
	return c.DeleteAttachedFile(ctx, fileID)
}

func (m *Manager) IsMessageTemplateEnabled(ctx context.Context) (bool, error) {
	c, err := m.templateClient()
	if err != nil {
		return false, err
	}
	return c.IsEnabled(ctx)
}

func (m *Manager) SearchMessageTemplates(ctx context.Context, query string) ([]types.Template, error) {
	c, err := m.templateClient()
	if err != nil {
		return nil, err
	}
	return c.SearchMessageTemplates(ctx, query)
}

func (m *Manager) GetTemplateContent(ctx context.Context, templateID string) (types.Template, error) {
	c, err := m.templateClient()
	if err != nil {
		return types.Template{}, err
	}
	return c.GetContent(ctx, templateID)
}

func (m *Manager) IsQuickResponsesEnabled(ctx context.Context) (bool, error) {
	c, err := m.quickResponsesClient()
	if err != nil {
		return false, err
	}
	return c.IsEnabled(ctx)
}

func (m *Manager) SearchQuickResponses(ctx context.Context, query string) ([]types.QuickResponse, error) {
	c, err := m.quickResponsesClient()
	if err != nil {
		return nil, err
	}
	return c.SearchQuickResponses(ctx, query)
}

func (m *Manager) GetLanguage(ctx context.Context) (string, error) {
	c, err := m.settingsClient()
	if err != nil {
		return "", err
	}
	return c.GetLanguage(ctx)
}
