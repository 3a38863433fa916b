package cache

import (
	"context"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/agentservice"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/rs/zerolog"
)

// AgentLister fetches the full agent directory
type AgentLister interface {
	ListAllAgents(ctx context.Context) ([]types.DirectoryAgent, error)
}

// AgentDirectory caches the agent directory for a fixed TTL
type AgentDirectory struct {
	source AgentLister
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time

	mu        sync.RWMutex
	agents    []types.DirectoryAgent
	fetchedAt time.Time
}

// NewAgentDirectory creates a directory cache over source
func NewAgentDirectory(source AgentLister, ttl time.Duration, logger zerolog.Logger) *AgentDirectory {
	return &AgentDirectory{
		source: source,
		ttl:    ttl,
		logger: logger.With().Str("component", "agent_directory").Logger(),
		now:    time.Now,
	}
}

// fresh reports whether the cached list may be served. Callers hold mu.
func (d *AgentDirectory) fresh() bool {
	return d.agents != nil && d.now().Sub(d.fetchedAt) < d.ttl
}

// List returns all agents, fetching when the cache is empty or expired.
// A failed refresh serves the previous list if there is one.
func (d *AgentDirectory) List(ctx context.Context) ([]types.DirectoryAgent, error) {
	d.mu.RLock()
	if d.fresh() {
		agents := append([]types.DirectoryAgent{}, d.agents...)
		d.mu.RUnlock()
		return agents, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Another caller may have refreshed while we waited
	if d.fresh() {
		return append([]types.DirectoryAgent{}, d.agents...), nil
	}

	agents, err := d.source.ListAllAgents(ctx)
	if err != nil {
		if d.agents != nil {
			d.logger.Warn().Err(err).Msg("directory refresh failed, serving stale list")
			return append([]types.DirectoryAgent{}, d.agents...), nil
		}
		return nil, err
	}

	d.agents = agents
	d.fetchedAt = d.now()
	d.logger.Debug().Int("agents", len(agents)).Msg("directory refreshed")
	return append([]types.DirectoryAgent{}, agents...), nil
}

// Get returns one agent by id
func (d *AgentDirectory) Get(ctx context.Context, id string) (types.DirectoryAgent, error) {
	agents, err := d.List(ctx)
	if err != nil {
		return types.DirectoryAgent{}, err
	}
	return agentservice.FindAgent(agents, id)
}

// Search returns agents whose username contains term, ignoring case
func (d *AgentDirectory) Search(ctx context.Context, term string) ([]types.DirectoryAgent, error) {
	agents, err := d.List(ctx)
	if err != nil {
		return nil, err
	}
	return agentservice.FilterByUsername(agents, term), nil
}

// Invalidate drops the cached list
func (d *AgentDirectory) Invalidate() {
	d.mu.Lock()
	d.agents = nil
	d.fetchedAt = time.Time{}
	d.mu.Unlock()
}

// Count returns the number of cached agents
func (d *AgentDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.agents)
}
