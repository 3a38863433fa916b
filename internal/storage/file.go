package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/rs/zerolog"
)

// FileStore keeps the snapshot as a JSON document on local disk, one file per key
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// NewFileStore creates the directory if needed and returns a store for key
func NewFileStore(dir, key string, logger zerolog.Logger) (*FileStore, error) {
	if key == "" {
		return nil, errors.New("storage key is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create metrics dir: %w", err)
	}

	s := &FileStore{
		path:   filepath.Join(dir, key+".json"),
		logger: logger.With().Str("component", "file_store").Logger(),
	}
	s.logger.Info().Str("path", s.path).Msg("file store initialized")
	return s, nil
}

func (s *FileStore) Load(_ context.Context) (*types.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics file: %w", err)
	}

	var snapshot types.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode metrics file: %w", err)
	}
	return &snapshot, nil
}

// Save writes through a temp file so a crash never leaves a torn document
func (s *FileStore) Save(_ context.Context, snapshot types.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode metrics: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metrics file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace metrics file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove metrics file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
