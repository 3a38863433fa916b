package api

import (
	"net/http"
)

// GetAgentState handles GET /api/agent/state
func (h *Handler) GetAgentState(w http.ResponseWriter, r *http.Request) {
	state, err := h.desk.GetAgentState(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type setStateRequest struct {
	StateARN  string `json:"stateArn"`
	StateName string `json:"stateName"`
}

// SetAgentState handles PUT /api/agent/state. The ARN wins when both are given.
func (h *Handler) SetAgentState(w http.ResponseWriter, r *http.Request) {
	var req setStateRequest
	if !decode(w, r, &req) {
		return
	}

	var err error
	switch {
	case req.StateARN != "":
		err = h.desk.SetAvailabilityState(r.Context(), req.StateARN)
	case req.StateName != "":
		err = h.desk.SetAvailabilityStateByName(r.Context(), req.StateName)
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "stateArn or stateName is required"})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.logger.Info().Str("state_arn", req.StateARN).Str("state_name", req.StateName).Msg("agent state changed via API")
	w.WriteHeader(http.StatusNoContent)
}

// SetOffline handles POST /api/agent/offline
func (h *Handler) SetOffline(w http.ResponseWriter, r *http.Request) {
	if err := h.desk.SetOffline(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListAvailabilityStates handles GET /api/agent/availability-states
func (h *Handler) ListAvailabilityStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.desk.ListAvailabilityStates(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}
