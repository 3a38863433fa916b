package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dennisdiepolder/monti/agentdesk/internal/agentservice"
	"github.com/dennisdiepolder/monti/agentdesk/internal/sdk"
	"github.com/dennisdiepolder/monti/agentdesk/internal/tracker"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Desk is the SDK manager surface the panels use
type Desk interface {
	State() sdk.State
	Status() string
	AppInstanceID() string
	Capabilities() workspace.Capabilities
	CurrentContact() *types.ContactDescriptor

	GetAgentState(ctx context.Context) (types.AgentState, error)
	ListAvailabilityStates(ctx context.Context) ([]types.AvailabilityState, error)
	SetAvailabilityState(ctx context.Context, stateARN string) error
	SetAvailabilityStateByName(ctx context.Context, name string) error
	SetOffline(ctx context.Context) error

	CanMakeOutboundCall(ctx context.Context) types.OutboundEligibility
	CreateOutboundCall(ctx context.Context, phoneNumber string, opts types.OutboundCallOptions) (types.OutboundCallResult, error)

	GetContactAttributes(ctx context.Context) (map[string]string, error)
	GetEmailData(ctx context.Context) (*types.EmailData, error)
	CreateDraftEmail(ctx context.Context, draft types.DraftEmail) (string, error)
	SendEmail(ctx context.Context, draft types.DraftEmail) error
}

// MetricsTracker is the tracker surface the desk panel uses
type MetricsTracker interface {
	GetMetrics() types.Metrics
	Reset(ctx context.Context)
	UpdateSatisfactionScore(ctx context.Context, score float64) error
}

// SessionSource reports the current agent session
type SessionSource interface {
	Session() types.Session
}

// Directory serves the cached agent directory
type Directory interface {
	List(ctx context.Context) ([]types.DirectoryAgent, error)
	Get(ctx context.Context, id string) (types.DirectoryAgent, error)
	Search(ctx context.Context, term string) ([]types.DirectoryAgent, error)
}

// Gateway is the REST backend for metrics and messaging
type Gateway interface {
	GetCurrentAgentMetrics(ctx context.Context, metrics, channels []string) (types.CurrentMetrics, error)
	GetHistoricalAgentMetrics(ctx context.Context, hoursBack int, metrics, channels []string) (types.HistoricalMetrics, error)
	GetAllRoutingProfiles(ctx context.Context) ([]json.RawMessage, error)
	GetAllSecurityProfiles(ctx context.Context) ([]json.RawMessage, error)
	GetAllQueues(ctx context.Context) ([]json.RawMessage, error)
	GetMyQueues(ctx context.Context, userID string, includeMetrics bool) (json.RawMessage, error)
	SendEmail(ctx context.Context, req types.EmailRequest) (types.EmailResult, error)
	SendSMS(ctx context.Context, req types.SMSRequest) (types.SMSResult, error)
}

// Handler serves the desktop panel endpoints
type Handler struct {
	desk      Desk
	tracker   MetricsTracker
	session   SessionSource
	directory Directory
	gateway   Gateway
	logger    zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(desk Desk, tr MetricsTracker, session SessionSource, dir Directory, gw Gateway, logger zerolog.Logger) *Handler {
	return &Handler{
		desk:      desk,
		tracker:   tr,
		session:   session,
		directory: dir,
		gateway:   gw,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers every panel endpoint under /api
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/desk/metrics", h.GetMetrics)
		r.Post("/desk/metrics/reset", h.ResetMetrics)
		r.Post("/desk/metrics/satisfaction", h.UpdateSatisfaction)
		r.Get("/desk/status", h.GetStatus)

		r.Get("/agent/state", h.GetAgentState)
		r.Put("/agent/state", h.SetAgentState)
		r.Post("/agent/offline", h.SetOffline)
		r.Get("/agent/availability-states", h.ListAvailabilityStates)

		r.Get("/voice/outbound", h.CanMakeOutboundCall)
		r.Post("/voice/outbound", h.CreateOutboundCall)

		r.Get("/contact/attributes", h.GetContactAttributes)
		r.Get("/contact/email", h.GetEmailData)

		r.Post("/email/draft", h.CreateDraftEmail)
		r.Post("/email/send", h.SendDraftEmail)
		r.Post("/email/ses", h.SendGatewayEmail)
		r.Post("/sms", h.SendSMS)

		r.Get("/agents", h.ListAgents)
		r.Get("/agents/search", h.SearchAgents)
		r.Post("/agents/metrics/current", h.CurrentAgentMetrics)
		r.Post("/agents/metrics/historical", h.HistoricalAgentMetrics)
		r.Post("/agents/my-queues", h.MyQueues)
		r.Get("/agents/{agentId}", h.GetAgent)

		r.Get("/routing-profiles", h.RoutingProfiles)
		r.Get("/security-profiles", h.SecurityProfiles)
		r.Get("/queues", h.Queues)
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var apiErr *agentservice.APIError
	switch {
	case sdk.IsValidation(err),
		errors.Is(err, agentservice.ErrInvalidInput),
		errors.Is(err, tracker.ErrInvalidScore):
		return http.StatusBadRequest
	case sdk.IsNotInitialized(err),
		errors.Is(err, sdk.ErrNotInWorkspace),
		errors.Is(err, agentservice.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, agentservice.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, sdk.ErrOutboundNotAllowed):
		return http.StatusConflict
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound:
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	event := h.logger.Warn()
	if status == http.StatusBadGateway {
		event = h.logger.Error()
	}
	event.Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request failed")
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// decode reads a JSON body into v, answering 400 on failure
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return false
	}
	return true
}
