package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Inventory sources.
const (
	SourcePostgres = "postgres"
	SourceSheets   = "sheets"
	SourceCSV      = "csv"
)

// Audit sinks.
const (
	SinkPostgres = "postgres"
	SinkMongoDB  = "mongodb"
	SinkSheets   = "sheets"
	SinkNone     = "none"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Inventory InventoryConfig
	Audit     AuditConfig
	Postgres  PostgresConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	Reorder   ReorderConfig
	WhatsApp  WhatsAppConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// InventoryConfig selects where the inventory snapshot is read from.
type InventoryConfig struct {
	Source  string
	CSVPath string
}

// AuditConfig selects where allocation decisions are appended.
type AuditConfig struct {
	Sink string
}

// PostgresConfig holds the connection settings of the inventory database.
type PostgresConfig struct {
	URL         string
	AutoMigrate bool
}

// MongoDBConfig holds settings for MongoDB.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// SheetsConfig contains configuration required to interact with Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
	InventoryRange  string
	AuditRange      string
}

// ReorderConfig holds the scheduled weekly run settings.
type ReorderConfig struct {
	WeeklyBudget     decimal.Decimal
	CronSchedule     string
	Timezone         string
	SchedulerEnabled bool
	ReportDir        string
}

// WhatsAppConfig contains credentials for the optional Meta WhatsApp Cloud API channel.
type WhatsAppConfig struct {
	AccessToken     string
	PhoneNumberID   string
	VerifyToken     string
	BaseURL         string
	APIVersion      string
	ReportRecipient string
	// AppSecret signs webhook deliveries (X-Hub-Signature-256).
	AppSecret string
	// AllowedSenders may issue chat commands. The report recipient is always allowed.
	AllowedSenders []string
}

// Enabled reports whether enough credentials are present to talk to WhatsApp.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != ""
}

// SenderAllowed reports whether a WhatsApp number may issue commands.
func (c WhatsAppConfig) SenderAllowed(from string) bool {
	from = normalizeNumber(from)
	if from == "" {
		return false
	}
	if normalizeNumber(c.ReportRecipient) == from {
		return true
	}
	for _, allowed := range c.AllowedSenders {
		if normalizeNumber(allowed) == from {
			return true
		}
	}
	return false
}

func normalizeNumber(n string) string {
	n = strings.TrimPrefix(strings.TrimSpace(n), "+")
	return strings.ReplaceAll(n, " ", "")
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// missing .env files are fine when the environment is set directly
		_ = godotenv.Load()
	}

	budget, err := decimal.NewFromString(getenvWithDefault("WEEKLY_BUDGET", "0"))
	if err != nil {
		return nil, fmt.Errorf("WEEKLY_BUDGET must be a decimal: %w", err)
	}

	schedulerEnabled, err := strconv.ParseBool(getenvWithDefault("SCHEDULER_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("SCHEDULER_ENABLED must be a boolean: %w", err)
	}

	autoMigrate, err := strconv.ParseBool(getenvWithDefault("DATABASE_AUTO_MIGRATE", "false"))
	if err != nil {
		return nil, fmt.Errorf("DATABASE_AUTO_MIGRATE must be a boolean: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		Inventory: InventoryConfig{
			Source:  strings.ToLower(getenvWithDefault("INVENTORY_SOURCE", SourcePostgres)),
			CSVPath: os.Getenv("INVENTORY_CSV_PATH"),
		},
		Audit: AuditConfig{
			Sink: strings.ToLower(getenvWithDefault("AUDIT_SINK", SinkPostgres)),
		},
		Postgres: PostgresConfig{
			URL:         os.Getenv("DATABASE_URL"),
			AutoMigrate: autoMigrate,
		},
		MongoDB: MongoDBConfig{
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "psoe"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
			InventoryRange:  getenvWithDefault("SHEETS_INVENTORY_RANGE", "Inventory!A:G"),
			AuditRange:      getenvWithDefault("SHEETS_AUDIT_RANGE", "Audit!A:J"),
		},
		Reorder: ReorderConfig{
			WeeklyBudget:     budget,
			CronSchedule:     getenvWithDefault("REORDER_CRON_SCHEDULE", "0 6 * * 1"),
			Timezone:         getenvWithDefault("TIMEZONE", "UTC"),
			SchedulerEnabled: schedulerEnabled,
			ReportDir:        getenvWithDefault("REPORT_DIR", "reports"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:     os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:   os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			VerifyToken:     os.Getenv("META_VERIFY_TOKEN"),
			BaseURL:         getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:      getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			ReportRecipient: os.Getenv("WHATSAPP_REPORT_RECIPIENT"),
			AppSecret:       os.Getenv("WHATSAPP_APP_SECRET"),
			AllowedSenders:  splitList(os.Getenv("WHATSAPP_ALLOWED_SENDERS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that the fields required by the selected source and sink are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Inventory.Source {
	case SourcePostgres:
		if c.Postgres.URL == "" {
			return errors.New("DATABASE_URL must be provided for the postgres inventory source")
		}
	case SourceSheets:
		if err := c.Sheets.validate(); err != nil {
			return err
		}
	case SourceCSV:
		if c.Inventory.CSVPath == "" {
			return errors.New("INVENTORY_CSV_PATH must be provided for the csv inventory source")
		}
	default:
		return fmt.Errorf("INVENTORY_SOURCE %q is not supported", c.Inventory.Source)
	}

	switch c.Audit.Sink {
	case SinkPostgres:
		if c.Postgres.URL == "" {
			return errors.New("DATABASE_URL must be provided for the postgres audit sink")
		}
	case SinkMongoDB:
		if c.MongoDB.URI == "" || c.MongoDB.DBName == "" {
			return errors.New("MONGODB_URI and MONGODB_DB_NAME must be provided for the mongodb audit sink")
		}
	case SinkSheets:
		if err := c.Sheets.validate(); err != nil {
			return err
		}
	case SinkNone:
	default:
		return fmt.Errorf("AUDIT_SINK %q is not supported", c.Audit.Sink)
	}

	if c.Reorder.WeeklyBudget.IsNegative() {
		return errors.New("WEEKLY_BUDGET must not be negative")
	}

	if c.Reorder.SchedulerEnabled {
		if c.Reorder.CronSchedule == "" {
			return errors.New("REORDER_CRON_SCHEDULE must be provided")
		}
		if c.Reorder.Timezone == "" {
			return errors.New("TIMEZONE must be provided")
		}
	}

	if c.WhatsApp.Enabled() {
		if c.WhatsApp.BaseURL == "" {
			return errors.New("WHATSAPP_BASE_URL must not be empty")
		}
		if c.WhatsApp.APIVersion == "" {
			return errors.New("WHATSAPP_API_VERSION must not be empty")
		}
		if c.WhatsApp.AppSecret == "" {
			return errors.New("WHATSAPP_APP_SECRET must be provided to verify webhook signatures")
		}
		if len(c.WhatsApp.AllowedSenders) == 0 && c.WhatsApp.ReportRecipient == "" {
			return errors.New("WHATSAPP_ALLOWED_SENDERS or WHATSAPP_REPORT_RECIPIENT must be provided")
		}
	}

	return nil
}

func (s SheetsConfig) validate() error {
	if s.CredentialsPath == "" {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH must be provided")
	}
	if s.SpreadsheetID == "" {
		return errors.New("GOOGLE_SHEET_DATABASE_ID must be provided")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
