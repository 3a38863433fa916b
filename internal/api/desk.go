package api

import (
	"net/http"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

// GetMetrics handles GET /api/desk/metrics
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.GetMetrics())
}

// ResetMetrics handles POST /api/desk/metrics/reset
func (h *Handler) ResetMetrics(w http.ResponseWriter, r *http.Request) {
	h.tracker.Reset(r.Context())
	writeJSON(w, http.StatusOK, h.tracker.GetMetrics())
}

type satisfactionRequest struct {
	Score *float64 `json:"score"`
}

// UpdateSatisfaction handles POST /api/desk/metrics/satisfaction
func (h *Handler) UpdateSatisfaction(w http.ResponseWriter, r *http.Request) {
	var req satisfactionRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Score == nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "score is required"})
		return
	}
	if err := h.tracker.UpdateSatisfactionScore(r.Context(), *req.Score); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.tracker.GetMetrics().AgentStats)
}

type statusResponse struct {
	State         string                   `json:"state"`
	Status        string                   `json:"status"`
	AppInstanceID string                   `json:"appInstanceId,omitempty"`
	Capabilities  workspace.Capabilities   `json:"capabilities"`
	Contact       *types.ContactDescriptor `json:"contact"`
	Session       types.Session            `json:"session"`
}

// GetStatus handles GET /api/desk/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		State:         h.desk.State().String(),
		Status:        h.desk.Status(),
		AppInstanceID: h.desk.AppInstanceID(),
		Capabilities:  h.desk.Capabilities(),
		Contact:       h.desk.CurrentContact(),
		Session:       h.session.Session(),
	})
}
