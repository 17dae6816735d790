package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Payroll       PayrollConfig       `mapstructure:"payroll"`
	Docgen        DocgenConfig        `mapstructure:"docgen"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Security      SecurityConfig      `mapstructure:"security"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

// PayrollConfig carries the tunable payroll policy knobs. Statutory rates
// live in the jurisdiction rate tables, not here.
type PayrollConfig struct {
	// DeductionCapPct is the legal wage-protection cap: a loan's monthly
	// installment may not exceed this fraction of the employee's salary.
	DeductionCapPct     float64 `mapstructure:"deduction_cap_pct"`
	DefaultJurisdiction string  `mapstructure:"default_jurisdiction"`
	// Salary structure split, as fractions of base salary.
	BasicPct     float64 `mapstructure:"basic_pct"`
	HRAPct       float64 `mapstructure:"hra_pct"`
	AllowancePct float64 `mapstructure:"allowance_pct"`
}

func (c PayrollConfig) DeductionCap() decimal.Decimal {
	return decimal.NewFromFloat(c.DeductionCapPct)
}

type DocgenConfig struct {
	APIURL         string        `mapstructure:"api_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxWorkers     int           `mapstructure:"max_workers"`
	JobQueueSize   int           `mapstructure:"job_queue_size"`
	WorkerPoolSize int           `mapstructure:"worker_pool_size"`
}

type NotificationConfig struct {
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SecurityConfig holds only what the actor middleware needs: the HMAC key
// used to read the identity token issued by the staff console. There is no
// authorization here; permissions are the console's problem.
type SecurityConfig struct {
	ActorTokenSecret string `mapstructure:"actor_token_secret"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- ENV FALLBACK -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// LoadConfigFromEnv builds a Config purely from environment variables, used
// for container deployments where no config file is mounted.
func LoadConfigFromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("SERVER_PORT", 8080),
			BaseURL:           getEnv("SERVER_BASE_URL", "http://localhost:8080"),
			AllowedOrigins:    getEnv("SERVER_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		Database: DatabaseConfig{
			Source:          getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvAsInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Payroll: PayrollConfig{
			DeductionCapPct:     getEnvAsFloat("PAYROLL_DEDUCTION_CAP_PCT", 0.50),
			DefaultJurisdiction: getEnv("PAYROLL_DEFAULT_JURISDICTION", "IN-KA"),
			BasicPct:            getEnvAsFloat("PAYROLL_BASIC_PCT", 0.60),
			HRAPct:              getEnvAsFloat("PAYROLL_HRA_PCT", 0.30),
			AllowancePct:        getEnvAsFloat("PAYROLL_ALLOWANCE_PCT", 0.10),
		},
		Docgen: DocgenConfig{
			APIURL:         getEnv("DOCGEN_API_URL", ""),
			APIKey:         getEnv("DOCGEN_API_KEY", ""),
			RequestTimeout: 10 * time.Second,
			MaxWorkers:     getEnvAsInt("DOCGEN_MAX_WORKERS", 5),
			JobQueueSize:   getEnvAsInt("DOCGEN_JOB_QUEUE_SIZE", 50),
			WorkerPoolSize: getEnvAsInt("DOCGEN_WORKER_POOL_SIZE", 5),
		},
		Notification: NotificationConfig{
			WebhookURL: getEnv("NOTIFICATION_WEBHOOK_URL", ""),
			Timeout:    5 * time.Second,
		},
		Security: SecurityConfig{
			ActorTokenSecret: getEnv("ACTOR_TOKEN_SECRET", ""),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Payroll.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("payroll config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *PayrollConfig) Validate() error {
	if c.DeductionCapPct <= 0 || c.DeductionCapPct > 1 {
		return errors.New("deduction_cap_pct must be in (0, 1]")
	}
	split := c.BasicPct + c.HRAPct + c.AllowancePct
	if split < 0.999 || split > 1.001 {
		return fmt.Errorf("salary structure must sum to 1.0, got %.3f", split)
	}
	if c.DefaultJurisdiction == "" {
		return errors.New("default_jurisdiction is required")
	}
	return nil
}
