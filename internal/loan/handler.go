package loan

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/core/period"
	"github.com/guardline/payroll-engine/internal/transport"
)

// The orchestrator fronts every loan command so state-machine calls go
// through its per-entity locks; the handler is a thin decode/encode shell.
type OrchestratorAPI interface {
	RequestLoan(dto RequestLoanDTO, actor internal.Actor) (*Loan, error)
	SendLoanToAccounts(loanID string, actor internal.Actor) (*Loan, error)
	DecideLoanAccounts(loanID string, dto DecideLoanDTO, actor internal.Actor) (*Loan, error)
	ActivateLoan(loanID string, dto ActivateLoanDTO, actor internal.Actor) (*Loan, error)
	RecordInstallmentPayment(installmentID string, paidOn time.Time, actor internal.Actor) (*Loan, error)
	SweepOverdueInstallments(asOf time.Time) (int, error)
	GetLoan(loanID string) (*Loan, error)
	LoanSchedule(loanID string) ([]*Installment, error)
	ListLoans(limit, offset int) ([]*Loan, error)
	ListEmployeeLoans(employeeID string) ([]*Loan, error)
	LoanChargesForPeriod(employeeID string, p period.Period) ([]InstallmentCharge, error)
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

func (h *Handler) RequestLoan(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto RequestLoanDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("RequestLoan: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.Orchestrator.RequestLoan(dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, l)
}

func (h *Handler) SendToAccounts(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	l, err := h.Orchestrator.SendLoanToAccounts(chi.URLParam(r, "id"), actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto DecideLoanDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("Decide: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.Orchestrator.DecideLoanAccounts(chi.URLParam(r, "id"), dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) Activate(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto ActivateLoanDTO
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
			h.Logger.Error("Activate: invalid request body", "error", err)
			h.WriteError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	l, err := h.Orchestrator.ActivateLoan(chi.URLParam(r, "id"), dto, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := internal.ActorFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "actor identity required")
		return
	}

	var dto RecordPaymentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("RecordPayment: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	paidOn := time.Now()
	if dto.PaidOn != "" {
		parsed, err := time.Parse("2006-01-02", dto.PaidOn)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "paid_on must be YYYY-MM-DD")
			return
		}
		paidOn = parsed
	}

	l, err := h.Orchestrator.RecordInstallmentPayment(chi.URLParam(r, "installmentID"), paidOn, actor)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	count, err := h.Orchestrator.SweepOverdueInstallments(time.Now())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]int{"marked_overdue": count})
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	l, err := h.Orchestrator.GetLoan(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, l)
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := h.Orchestrator.LoanSchedule(chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, schedule)
}

func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	if employeeID := r.URL.Query().Get("employee_id"); employeeID != "" {
		loans, err := h.Orchestrator.ListEmployeeLoans(employeeID)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, loans)
		return
	}

	limit := 20
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	loans, err := h.Orchestrator.ListLoans(limit, offset)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, loans)
}
