package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guardline/payroll-engine/internal/core/events"
	"github.com/guardline/payroll-engine/internal/docgen"
	"github.com/guardline/payroll-engine/internal/loan"
	loanPostgres "github.com/guardline/payroll-engine/internal/loan/postgres"
	"github.com/guardline/payroll-engine/pkg/logger"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start worker pools for various services",
	Long:  `Start and manage background workers: document rendering, overdue sweeps, event bus.`,
}

// Document rendering worker command
var docgenWorkerCmd = &cobra.Command{
	Use:   "docgen",
	Short: "Start document rendering worker pool",
	Long:  `Start the worker pool that renders statutory filing documents`,
	Run: func(cmd *cobra.Command, args []string) {
		startDocgenWorker()
	},
}

// Overdue sweep worker command
var sweepWorkerCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the overdue installment sweep",
	Long:  `Mark every unpaid loan installment past its due date as OVERDUE`,
	Run: func(cmd *cobra.Command, args []string) {
		runOverdueSweep()
	},
}

// Event Bus worker command
var eventWorkerCmd = &cobra.Command{
	Use:   "events",
	Short: "Start event bus worker",
	Long:  `Start the event bus `,
	Run: func(cmd *cobra.Command, args []string) {
		startEventWorker()
	},
}

var (
	maxWorkers   int
	jobQueueSize int
	renderURL    string
	renderAPIKey string
	callbackURL  string
)

func startDocgenWorker() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.LoggerWrapper()

	docgenConfig := docgen.Config{
		RenderURL:     getStringFlag(renderURL, config.Docgen.APIURL),
		APIKey:        getStringFlag(renderAPIKey, config.Docgen.APIKey),
		CallbackURL:   getStringFlag(callbackURL, config.Server.BaseURL+"/api/v1/documents/callback"),
		RenderTimeout: config.Docgen.RequestTimeout,
		MaxWorkers:    getIntFlag(maxWorkers, config.Docgen.MaxWorkers),
		JobQueueSize:  getIntFlag(jobQueueSize, config.Docgen.JobQueueSize),
	}

	log.Info("starting docgen worker",
		"max_workers", docgenConfig.MaxWorkers,
		"job_queue_size", docgenConfig.JobQueueSize,
		"render_url", docgenConfig.RenderURL,
		"callback_url", docgenConfig.CallbackURL)

	client := docgen.NewClient(docgenConfig, log)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("docgen worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	log.Info("received signal, shutting down docgen worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	shutdownDone := make(chan struct{})
	go func() {
		client.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		log.Info("docgen worker pool shutdown complete")
	case <-ctx.Done():
		log.Warn("shutdown timeout reached, forcing exit")
	}
}

// Intended to run from cron shortly after midnight so the ledger reflects
// missed installments before anyone pulls a schedule.
func runOverdueSweep() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.LoggerWrapper()

	gormDB, err := gorm.Open(gormPostgres.Open(config.Database.Source), &gorm.Config{})
	if err != nil {
		log.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	loanService := loan.NewService(loanPostgres.NewLoanRepository(gormDB), config.Payroll.DeductionCap(), log)

	count, err := loanService.MarkOverdue(time.Now())
	if err != nil {
		log.Error("overdue sweep failed", "error", err)
		os.Exit(1)
	}

	log.Info("overdue sweep complete", "installments_marked", count)
}

func startEventWorker() {
	_, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.LoggerWrapper()

	eventBus := events.NewEventBus(log)

	eventBus.Subscribe("test.event", func(ctx context.Context, event events.Event) error {
		log.Info("received test event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	log.Info("event bus worker started. Waiting for events...")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("event bus is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	log.Info("received signal, shutting down event bus", "signal", sig)
	log.Info("event bus shutdown complete")
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	docgenWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	docgenWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")
	docgenWorkerCmd.Flags().StringVar(&renderURL, "render-url", "", "Document render service URL (overrides config)")
	docgenWorkerCmd.Flags().StringVar(&renderAPIKey, "api-key", "", "Document render service API key (overrides config)")
	docgenWorkerCmd.Flags().StringVar(&callbackURL, "callback-url", "", "Webhook callback URL (overrides config)")

	workerCmd.AddCommand(docgenWorkerCmd)
	workerCmd.AddCommand(sweepWorkerCmd)
	workerCmd.AddCommand(eventWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
