package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guardline/payroll-engine/internal"
	"github.com/guardline/payroll-engine/internal/compliance"
	compliancePostgres "github.com/guardline/payroll-engine/internal/compliance/postgres"
	"github.com/guardline/payroll-engine/internal/core/events"
	"github.com/guardline/payroll-engine/internal/docgen"
	"github.com/guardline/payroll-engine/internal/loan"
	loanPostgres "github.com/guardline/payroll-engine/internal/loan/postgres"
	"github.com/guardline/payroll-engine/internal/notification"
	"github.com/guardline/payroll-engine/internal/orchestrator"
	"github.com/guardline/payroll-engine/internal/paymentreq"
	paymentreqPostgres "github.com/guardline/payroll-engine/internal/paymentreq/postgres"
	"github.com/guardline/payroll-engine/internal/salary"
	salaryPostgres "github.com/guardline/payroll-engine/internal/salary/postgres"
	"github.com/guardline/payroll-engine/internal/statutory"
	"github.com/guardline/payroll-engine/internal/transport/rest"
	"github.com/guardline/payroll-engine/internal/transport/swagger"
	"github.com/guardline/payroll-engine/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config       *internal.Config
	DB           *sqlx.DB
	Router       *chi.Mux
	DocgenClient *docgen.Client
	EventBus     *events.EventBus
	Logger       *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.DocgenClient.Shutdown()
		if err := deps.EventBus.Drain(ctx); err != nil {
			deps.Logger.Warn("event handlers still running at shutdown", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// gorm rides the same pgx connection pool sqlx opened.
	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	if err := swagger.ValidateSpec("./api/openapi.yml"); err != nil {
		log.Warn("openapi spec validation failed, swagger UI may be broken", "error", err)
	}

	rates := statutory.DefaultRegistry()

	loanRepo := loanPostgres.NewLoanRepository(gormDB)
	loanService := loan.NewService(loanRepo, config.Payroll.DeductionCap(), log)

	salaryRepo := salaryPostgres.NewSalaryRepository(gormDB)
	salaryService := salary.NewService(salaryRepo, rates, loanService, config.Payroll, log)

	requestRepo := paymentreqPostgres.NewPaymentRequestRepository(gormDB)
	requestService := paymentreq.NewService(requestRepo, salaryService, log)

	docgenClient := docgen.NewClient(docgen.Config{
		RenderURL:     config.Docgen.APIURL,
		APIKey:        config.Docgen.APIKey,
		CallbackURL:   config.Server.BaseURL + "/api/v1/documents/callback",
		RenderTimeout: config.Docgen.RequestTimeout,
		MaxWorkers:    config.Docgen.MaxWorkers,
		JobQueueSize:  config.Docgen.JobQueueSize,
	}, log)

	obligationRepo := compliancePostgres.NewObligationRepository(gormDB)
	complianceService := compliance.NewService(obligationRepo, docgenClient, salaryService, log)

	bus := events.NewEventBus(log)
	notifier := notification.New(notification.Config{
		WebhookURL: config.Notification.WebhookURL,
		Timeout:    config.Notification.Timeout,
	}, log)
	notifier.Register(bus)

	orch := orchestrator.New(loanService, salaryService, requestService, complianceService, bus, log)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(
		router,
		db.DB,
		loan.NewHandler(orch),
		salary.NewHandler(orch),
		paymentreq.NewHandler(orch),
		compliance.NewHandler(orch),
		compliance.NewWebhookHandler(orch, log),
		config.Security.ActorTokenSecret,
		log,
	)

	return &Dependencies{
		Config:       config,
		Logger:       log,
		DB:           db,
		Router:       router,
		DocgenClient: docgenClient,
		EventBus:     bus,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
