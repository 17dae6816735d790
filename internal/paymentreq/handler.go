package paymentreq

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/transport"
)

type OrchestratorAPI interface {
	BuildPaymentRequest(dto BuildDTO, actor internal.Actor) (*PaymentRequest, error)
	SubmitPaymentRequest(requestID string, actor internal.Actor) (*PaymentRequest, error)
	DecidePaymentRequest(requestID string, dto DecideDTO, actor internal.Actor) (*PaymentRequest, error)
	AcknowledgeRejection(requestID string, actor internal.Actor) (*PaymentRequest, error)
	MarkPaymentRequestPaid(requestID string, dto MarkPaidDTO, actor internal.Actor) (*PaymentRequest, error)
	GetPaymentRequest(requestID string) (*PaymentRequest, error)
	ListPaymentRequests(filter Filter) ([]*PaymentRequest, error)
}

type Handler struct {
	*transport.BaseHandler
	Orchestrator OrchestratorAPI
}

func NewHandler(orchestrator OrchestratorAPI) *Handler {
	return &Handler{
		BaseHandler:  transport.NewBaseHandler(nil),
		Orchestrator: orchestrator,
	}
}

func (h *Handler) Build(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto BuildDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Build: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pr, err := h.Orchestrator.BuildPaymentRequest(dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, pr)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	pr, err := h.Orchestrator.SubmitPaymentRequest(chi.URLParam(r, "id"), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, pr)
}

func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto DecideDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Decide: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pr, err := h.Orchestrator.DecidePaymentRequest(chi.URLParam(r, "id"), dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, pr)
}

func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	pr, err := h.Orchestrator.AcknowledgeRejection(chi.URLParam(r, "id"), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, pr)
}

func (h *Handler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto MarkPaidDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("MarkPaid: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pr, err := h.Orchestrator.MarkPaymentRequestPaid(chi.URLParam(r, "id"), dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, pr)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	pr, err := h.Orchestrator.GetPaymentRequest(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, pr)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := Filter{
		Department: r.URL.Query().Get("department"),
		Status:     r.URL.Query().Get("status"),
	}
	if raw := r.URL.Query().Get("period"); raw != "" {
		p, err := period.Parse(raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "period must be YYYY-MM")
			return
		}
		filter.Period = &p
	}

	requests, err := h.Orchestrator.ListPaymentRequests(filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, requests)
}
