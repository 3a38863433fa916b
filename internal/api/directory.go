package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/go-chi/chi/v5"
)

// ListAgents handles GET /api/agents
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.directory.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// SearchAgents handles GET /api/agents/search?q=
func (h *Handler) SearchAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.directory.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// GetAgent handles GET /api/agents/{agentId}
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.directory.Get(r.Context(), chi.URLParam(r, "agentId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

type metricsRequest struct {
	HoursBack int      `json:"hoursBack"`
	Metrics   []string `json:"metrics"`
	Channels  []string `json:"channels"`
}

// decodeOptional accepts an empty body as the zero value
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
	return false
}

// CurrentAgentMetrics handles POST /api/agents/metrics/current
func (h *Handler) CurrentAgentMetrics(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	m, err := h.gateway.GetCurrentAgentMetrics(r.Context(), req.Metrics, req.Channels)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// HistoricalAgentMetrics handles POST /api/agents/metrics/historical
func (h *Handler) HistoricalAgentMetrics(w http.ResponseWriter, r *http.Request) {
	var req metricsRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	if req.HoursBack < 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "hoursBack must not be negative"})
		return
	}
	m, err := h.gateway.GetHistoricalAgentMetrics(r.Context(), req.HoursBack, req.Metrics, req.Channels)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type myQueuesRequest struct {
	UserID         string `json:"userId"`
	IncludeMetrics bool   `json:"includeMetrics"`
}

// MyQueues handles POST /api/agents/my-queues
func (h *Handler) MyQueues(w http.ResponseWriter, r *http.Request) {
	var req myQueuesRequest
	if !decode(w, r, &req) {
		return
	}
	data, err := h.gateway.GetMyQueues(r.Context(), req.UserID, req.IncludeMetrics)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) passThrough(w http.ResponseWriter, r *http.Request, fetch func(context.Context) ([]json.RawMessage, error)) {
	items, err := fetch(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// RoutingProfiles handles GET /api/routing-profiles
func (h *Handler) RoutingProfiles(w http.ResponseWriter, r *http.Request) {
	h.passThrough(w, r, h.gateway.GetAllRoutingProfiles)
}

// SecurityProfiles handles GET /api/security-profiles
func (h *Handler) SecurityProfiles(w http.ResponseWriter, r *http.Request) {
	h.passThrough(w, r, h.gateway.GetAllSecurityProfiles)
}

// Queues handles GET /api/queues
func (h *Handler) Queues(w http.ResponseWriter, r *http.Request) {
	h.passThrough(w, r, h.gateway.GetAllQueues)
}

// SendGatewayEmail handles POST /api/email/ses
func (h *Handler) SendGatewayEmail(w http.ResponseWriter, r *http.Request) {
	var req types.EmailRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.gateway.SendEmail(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SendSMS handles POST /api/sms
func (h *Handler) SendSMS(w http.ResponseWriter, r *http.Request) {
	var req types.SMSRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.gateway.SendSMS(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
