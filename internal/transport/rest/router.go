package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/guardline/payroll-engine/internal/compliance"
	"github.com/guardline/payroll-engine/internal/loan"
	"github.com/guardline/payroll-engine/internal/paymentreq"
	"github.com/guardline/payroll-engine/internal/salary"
	"github.com/guardline/payroll-engine/internal/transport/middleware"
	"github.com/guardline/payroll-engine/internal/transport/swagger"
)

// RegisterAllRoutes wires every handler into the router. All payroll routes
// sit behind the actor middleware so commands always carry who acted; health
// and docs stay open for probes and browsers.
func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	loanHandler *loan.Handler,
	salaryHandler *salary.Handler,
	requestHandler *paymentreq.Handler,
	complianceHandler *compliance.Handler,
	renderWebhookHandler *compliance.WebhookHandler,
	actorSecret string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if renderWebhookHandler != nil {
			r.Post("/documents/callback", renderWebhookHandler.HandleRenderCallback)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Actor(actorSecret, logger))

			if loanHandler != nil {
				pr.Route("/loans", func(lr chi.Router) {
					lr.Post("/", loanHandler.RequestLoan)
					lr.Get("/", loanHandler.ListLoans)
					lr.Post("/sweep-overdue", loanHandler.SweepOverdue)
					lr.Get("/{id}", loanHandler.GetLoan)
					lr.Get("/{id}/schedule", loanHandler.GetSchedule)
					lr.Patch("/{id}/send", loanHandler.SendToAccounts)
					lr.Patch("/{id}/decide", loanHandler.Decide)
					lr.Patch("/{id}/activate", loanHandler.Activate)
				})
				pr.Patch("/installments/{installmentID}/pay", loanHandler.RecordPayment)
			}

			if salaryHandler != nil {
				pr.Route("/salaries", func(sr chi.Router) {
					sr.Post("/compute", salaryHandler.Compute)
					sr.Post("/compute-batch", salaryHandler.ComputeBatch)
					sr.Get("/{period}", salaryHandler.ListRecords)
					sr.Get("/{period}/totals", salaryHandler.Totals)
					sr.Get("/{period}/{employeeID}", salaryHandler.GetRecord)
					sr.Patch("/{period}/{employeeID}/hold", salaryHandler.Hold)
					sr.Patch("/{period}/{employeeID}/release", salaryHandler.Release)
				})
			}

			if requestHandler != nil {
				pr.Route("/payment-requests", func(qr chi.Router) {
					qr.Post("/", requestHandler.Build)
					qr.Get("/", requestHandler.List)
					qr.Get("/{id}", requestHandler.Get)
					qr.Patch("/{id}/submit", requestHandler.Submit)
					qr.Patch("/{id}/decide", requestHandler.Decide)
					qr.Patch("/{id}/acknowledge", requestHandler.Acknowledge)
					qr.Patch("/{id}/mark-paid", requestHandler.MarkPaid)
				})
			}

			if complianceHandler != nil {
				pr.Route("/compliance", func(cr chi.Router) {
					cr.Post("/obligations", complianceHandler.Ensure)
					cr.Get("/obligations/overdue", complianceHandler.ListOverdue)
					cr.Get("/obligations/{id}", complianceHandler.Get)
					cr.Post("/obligations/{id}/document", complianceHandler.GenerateDocument)
					cr.Post("/obligations/{id}/document/queue", complianceHandler.QueueDocument)
					cr.Patch("/obligations/{id}/file", complianceHandler.FileReturn)
					cr.Patch("/obligations/{id}/verify", complianceHandler.Verify)
					cr.Get("/periods/{period}/obligations", complianceHandler.ListForPeriod)
				})
			}
		})
	})
}
