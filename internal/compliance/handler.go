package compliance

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/transport"
)

type OrchestratorAPI interface {
	EnsureObligation(dto EnsureDTO, actor internal.Actor) (*Obligation, error)
	GenerateObligationDocument(obligationID string, actor internal.Actor) (*Obligation, error)
	QueueObligationDocument(obligationID string, actor internal.Actor) (*Obligation, error)
	FileObligationReturn(obligationID string, dto FileDTO, actor internal.Actor) (*Obligation, error)
	VerifyObligation(obligationID string, actor internal.Actor) (*Obligation, error)
	GetObligation(obligationID string, asOf time.Time) (ObligationView, error)
	ListObligations(p period.Period, asOf time.Time) ([]ObligationView, error)
	ListOverdueObligations(asOf time.Time) ([]ObligationView, error)
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

func (h *Handler) Ensure(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto EnsureDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Ensure: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.Orchestrator.EnsureObligation(dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, o)
}

func (h *Handler) GenerateDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	o, err := h.Orchestrator.GenerateObligationDocument(chi.URLParam(r, "id"), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) QueueDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	o, err := h.Orchestrator.QueueObligationDocument(chi.URLParam(r, "id"), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusAccepted, o)
}

func (h *Handler) FileReturn(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto FileDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("FileReturn: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.Orchestrator.FileObligationReturn(chi.URLParam(r, "id"), dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	o, err := h.Orchestrator.VerifyObligation(chi.URLParam(r, "id"), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, o)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Orchestrator.GetObligation(chi.URLParam(r, "id"), time.Now())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) ListForPeriod(w http.ResponseWriter, r *http.Request) {
	p, err := period.Parse(chi.URLParam(r, "period"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "period must be YYYY-MM")
		return
	}

	views, err := h.Orchestrator.ListObligations(p, time.Now())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, views)
}

func (h *Handler) ListOverdue(w http.ResponseWriter, r *http.Request) {
	views, err := h.Orchestrator.ListOverdueObligations(time.Now())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, views)
}
