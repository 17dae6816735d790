package salary

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/transport"
)

type OrchestratorAPI interface {
	ComputeSalary(dto ComputeDTO, actor internal.Actor) (*Record, error)
	ComputeSalaryBatch(dto ComputeBatchDTO, actor internal.Actor) ([]*Record, []BatchFailure, error)
	HoldSalary(employeeID string, p period.Period, dto HoldDTO, actor internal.Actor) (*Record, error)
	ReleaseSalary(employeeID string, p period.Period, actor internal.Actor) (*Record, error)
	GetSalary(employeeID string, p period.Period) (*Record, error)
	ListSalaries(p period.Period) ([]*Record, error)
	SalaryTotals(p period.Period) (Totals, error)
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

func (h *Handler) Compute(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto ComputeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Compute: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Orchestrator.ComputeSalary(dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) ComputeBatch(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto ComputeBatchDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("ComputeBatch: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	records, failures, err := h.Orchestrator.ComputeSalaryBatch(dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records":  records,
		"failures": failures,
	})
}

func (h *Handler) Hold(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	p, err := period.Parse(chi.URLParam(r, "period"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "period must be YYYY-MM")
		return
	}

	var dto HoldDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Hold: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.Orchestrator.HoldSalary(chi.URLParam(r, "employeeID"), p, dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) Release(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	p, err := period.Parse(chi.URLParam(r, "period"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "period must be YYYY-MM")
		return
	}

	rec, err := h.Orchestrator.ReleaseSalary(chi.URLParam(r, "employeeID"), p, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) GetRecord(w http.ResponseWriter, r *http.Request) {
	p, err := period.Parse(chi.URLParam(r, "period"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "period must be YYYY-MM")
		return
	}

	rec, err := h.Orchestrator.GetSalary(chi.URLParam(r, "employeeID"), p)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	p, err := period.Parse(chi.URLParam(r, "period"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "period must be YYYY-MM")
		return
	}

	records, err := h.Orchestrator.ListSalaries(p)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) Totals(w http.ResponseWriter, r *http.Request) {
	p, err := period.Parse(chi.URLParam(r, "period"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "period must be YYYY-MM")
		return
	}

	totals, err := h.Orchestrator.SalaryTotals(p)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, totals)
}
