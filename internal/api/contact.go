package api

import (
	"net/http"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// CanMakeOutboundCall handles GET /api/voice/outbound
func (h *Handler) CanMakeOutboundCall(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.desk.CanMakeOutboundCall(r.Context()))
}

type outboundRequest struct {
	PhoneNumber      string `json:"phoneNumber"`
	QueueARN         string `json:"queueArn"`
	RelatedContactID string `json:"relatedContactId"`
}

// CreateOutboundCall handles POST /api/voice/outbound
func (h *Handler) CreateOutboundCall(w http.ResponseWriter, r *http.Request) {
	var req outboundRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.desk.CreateOutboundCall(r.Context(), req.PhoneNumber, types.OutboundCallOptions{
		QueueARN:         req.QueueARN,
		RelatedContactID: req.RelatedContactID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetContactAttributes handles GET /api/contact/attributes
func (h *Handler) GetContactAttributes(w http.ResponseWriter, r *http.Request) {
	attrs, err := h.desk.GetContactAttributes(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if attrs == nil {
		attrs = map[string]string{}
	}
	writeJSON(w, http.StatusOK, attrs)
}

// GetEmailData handles GET /api/contact/email. A non-email contact
// answers 204.
func (h *Handler) GetEmailData(w http.ResponseWriter, r *http.Request) {
	data, err := h.desk.GetEmailData(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if data == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

type draftResponse struct {
	ContactID string `json:"contactId"`
}

// CreateDraftEmail handles POST /api/email/draft
func (h *Handler) CreateDraftEmail(w http.ResponseWriter, r *http.Request) {
	var draft types.DraftEmail
	if !decode(w, r, &draft) {
		return
	}
	id, err := h.desk.CreateDraftEmail(r.Context(), draft)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, draftResponse{ContactID: id})
}

// SendDraftEmail handles POST /api/email/send
func (h *Handler) SendDraftEmail(w http.ResponseWriter, r *http.Request) {
	var draft types.DraftEmail
	if !decode(w, r, &draft) {
		return
	}
	if err := h.desk.SendEmail(r.Context(), draft); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
