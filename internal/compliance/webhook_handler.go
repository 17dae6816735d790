package compliance

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/guardline/payroll-engine/internal/transport"
)

// DocumentAttacher is the orchestrator slice the render webhook needs.
type DocumentAttacher interface {
	AttachObligationDocument(obligationID, documentRef string) (*Obligation, error)
}

// WebhookHandler receives the render service's callback once a queued
// document has been produced. It is unauthenticated transport-wise; the
// render service is inside the perimeter.
type WebhookHandler struct {
	*transport.BaseHandler
	attacher DocumentAttacher
	logger   *slog.Logger
}

func NewWebhookHandler(attacher DocumentAttacher, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: transport.NewBaseHandler(nil),
		attacher:    attacher,
		logger:      logger,
	}
}

type RenderCallbackRequest struct {
	ObligationID  string `json:"obligation_id"`
	StatutoryType string `json:"statutory_type"`
	Period        string `json:"period"`
	DocumentRef   string `json:"document_ref"`
	FailureReason string `json:"failure_reason,omitempty"`
}

type RenderCallbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (h *WebhookHandler) HandleRenderCallback(w http.ResponseWriter, r *http.Request) {
	var req RenderCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("invalid render callback request", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.Info("received render callback",
		"obligation_id", req.ObligationID,
		"statutory_type", req.StatutoryType,
		"document_ref", req.DocumentRef)

	if req.ObligationID == "" {
		h.WriteError(w, http.StatusBadRequest, "obligation_id is required")
		return
	}

	if req.FailureReason != "" {
		// A failed render leaves the obligation untouched; the failure is
		// logged and the filing clerk retries from the UI.
		h.logger.Error("document render failed",
			"obligation_id", req.ObligationID,
			"failure_reason", req.FailureReason)
		h.WriteJSON(w, http.StatusOK, RenderCallbackResponse{
			Status:  "acknowledged",
			Message: "render failure recorded",
		})
		return
	}

	if _, err := h.attacher.AttachObligationDocument(req.ObligationID, req.DocumentRef); err != nil {
		h.logger.Error("failed to attach rendered document",
			"error", err, "obligation_id", req.ObligationID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, RenderCallbackResponse{
		Status:  "success",
		Message: "document attached",
	})
}
