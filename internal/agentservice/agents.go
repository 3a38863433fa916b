package agentservice

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// ListAllAgents returns every user in the directory
func (c *Client) ListAllAgents(ctx context.Context) ([]types.DirectoryAgent, error) {
	env, err := c.call(ctx, "list_agents", http.MethodGet, "/agents", true, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[types.DirectoryAgent](env)
}

// GetAgentByID returns the agent with id or ErrNotFound
func (c *Client) GetAgentByID(ctx context.Context, id string) (types.DirectoryAgent, error) {
	agents, err := c.ListAllAgents(ctx)
	if err != nil {
		return types.DirectoryAgent{}, err
	}
	return FindAgent(agents, id)
}

// SearchAgents returns agents whose username contains term, ignoring case
func (c *Client) SearchAgents(ctx context.Context, term string) ([]types.DirectoryAgent, error) {
	agents, err := c.ListAllAgents(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByUsername(agents, term), nil
}

// FindAgent looks id up in agents
func FindAgent(agents []types.DirectoryAgent, id string) (types.DirectoryAgent, error) {
	for _, a := range agents {
		if a.ID == id {
			return a, nil
		}
	}
	return types.DirectoryAgent{}, fmt.Errorf("agent with ID %s: %w", id, ErrNotFound)
}

// FilterByUsername keeps the agents whose username contains term
func FilterByUsername(agents []types.DirectoryAgent, term string) []types.DirectoryAgent {
	needle := strings.ToLower(term)
	out := []types.DirectoryAgent{}
	for _, a := range agents {
		if strings.Contains(strings.ToLower(a.Username), needle) {
			out = append(out, a)
		}
	}
	return out
}

// GetAllRoutingProfiles returns the instance's routing profiles as sent by the API
func (c *Client) GetAllRoutingProfiles(ctx context.Context) ([]json.RawMessage, error) {
	env, err := c.call(ctx, "list_routing_profiles", http.MethodGet, "/routing-profiles", true, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[json.RawMessage](env)
}

// GetAllSecurityProfiles returns the instance's security profiles
func (c *Client) GetAllSecurityProfiles(ctx context.Context) ([]json.RawMessage, error) {
	env, err := c.call(ctx, "list_security_profiles", http.MethodGet, "/security-profiles", true, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[json.RawMessage](env)
}

// GetAllQueues returns the instance's queues
func (c *Client) GetAllQueues(ctx context.Context) ([]json.RawMessage, error) {
	env, err := c.call(ctx, "list_queues", http.MethodGet, "/queues", true, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[json.RawMessage](env)
}

type myQueuesRequest struct {
	InstanceID     string `json:"instanceId"`
	UserID         string `json:"userId"`
	IncludeMetrics bool   `json:"includeMetrics"`
}

// GetMyQueues returns the queues of userID's routing profile, optionally
// with live queue metrics
func (c *Client) GetMyQueues(ctx context.Context, userID string, includeMetrics bool) (json.RawMessage, error) {
	if userID == "" {
		return nil, invalid("userId is required")
	}
	env, err := c.call(ctx, "my_queues", http.MethodPost, "/agents/my-queues", false, myQueuesRequest{
		InstanceID:     c.cfg.InstanceID,
		UserID:         userID,
		IncludeMetrics: includeMetrics,
	})
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
