package agentservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Recorder receives one measurement per gateway call
type Recorder interface {
	RecordAgentAPICall(operation string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordAgentAPICall(string, error) {}

// Config configures the gateway endpoints
type Config struct {
	BaseURL    string // agent directory and metrics API
	EmailURL   string // full URL of the send-email endpoint
	SMSURL     string // full URL of the send-sms endpoint
	InstanceID string
	RateLimit  float64 // requests per second across all endpoints
	Timeout    time.Duration
}

// Client talks to the contact center REST gateways
type Client struct {
	cfg      Config
	http     *http.Client
	limiter  *rate.Limiter
	recorder Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

// New creates a Client. rec may be nil.
func New(cfg Config, rec Recorder, logger zerolog.Logger) *Client {
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		recorder: rec,
		logger:   logger.With().Str("component", "agent_service").Logger(),
		now:      time.Now,
	}
}

// envelope is the directory API response wrapper
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`

	DataSnapshotTime string           `json:"dataSnapshotTime,omitempty"`
	TimeRangeUsed    *types.TimeRange `json:"timeRangeUsed,omitempty"`
	QueuesIncluded   int              `json:"queuesIncluded,omitempty"`
	GroupedBy        []string         `json:"groupedBy,omitempty"`
}

func (c *Client) directoryURL(path string, withInstance bool) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", fmt.Errorf("agent API: %w", ErrNotConfigured)
	}
	u := strings.TrimRight(c.cfg.BaseURL, "/") + path
	if withInstance {
		u += "?instanceId=" + url.QueryEscape(c.cfg.InstanceID)
	}
	return u, nil
}

// send performs one rate limited request and returns status and body
func (c *Client) send(ctx context.Context, method, target string, body interface{}) (int, []byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// call performs a directory API request and unwraps the envelope
func (c *Client) call(ctx context.Context, op, method, path string, withInstance bool, body interface{}) (env *envelope, err error) {
	start := time.Now()
	defer func() {
		c.recorder.RecordAgentAPICall(op, err)
		event := c.logger.Debug()
		if err != nil {
			event = c.logger.Warn().Err(err)
		}
		event.Str("operation", op).Dur("duration", time.Since(start)).Msg("agent API call")
	}()

	target, err := c.directoryURL(path, withInstance)
	if err != nil {
		return nil, err
	}
	status, data, err := c.send(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	env = &envelope{}
	decodeErr := json.Unmarshal(data, env)
	if status >= http.StatusBadRequest {
		msg := http.StatusText(status)
		if decodeErr == nil && env.Message != "" {
			msg = env.Message
		}
		return nil, &APIError{Status: status, Message: msg}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: invalid response: %w", op, decodeErr)
	}
	if !env.Success {
		msg := env.Message
		if msg == "" {
			msg = op + " failed"
		}
		return nil, &APIError{Status: status, Message: msg}
	}
	return env, nil
}

func decodeList[T any](env *envelope) ([]T, error) {
	out := []T{}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return nil, fmt.Errorf("invalid data: %w", err)
	}
	return out, nil
}
