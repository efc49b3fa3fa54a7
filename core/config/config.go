package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coredatabase "github.com/m3rciful/surveybot/core/database"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"TELEGRAM_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// StorageConfig wraps database connection settings together with the
// response table name. The table name is interpolated into SQL, so it is
// validated against a strict identifier allow-list at startup.
type StorageConfig struct {
	Database coredatabase.Config `yaml:"database"`
	Table    string              `yaml:"table" envconfig:"TABLE_NAME"`
}

// SurveyConfig points at the question catalog.
type SurveyConfig struct {
	CatalogPath string `yaml:"catalog_path" envconfig:"SURVEY_CATALOG_PATH"`
}

// SessionConfig controls conversation session lifecycle.
type SessionConfig struct {
	IdleTimeoutMinutes int `yaml:"idle_timeout_minutes" envconfig:"SESSION_IDLE_TIMEOUT_MINUTES"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Dir    string `yaml:"dir"`
	File   string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const defaultIdleTimeoutMinutes = 30

// Config aggregates the full bot configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Storage  StorageConfig  `yaml:"storage"`
	Survey   SurveyConfig   `yaml:"survey"`
	Session  SessionConfig  `yaml:"session"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// storeSuffixes lists the recognized store-file suffixes for sqlite paths.
var storeSuffixes = []string{".db", ".sqlite", ".sqlite3"}

// IsSafeIdentifier reports whether s may be interpolated into SQL as an
// identifier: alphanumeric/underscore, not starting with a digit.
func IsSafeIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// HasStoreSuffix reports whether path ends with a recognized store-file suffix.
func HasStoreSuffix(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range storeSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if err := normalizeStorage(&cfg.Storage); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.Survey.CatalogPath) == "" {
		cfg.Survey.CatalogPath = "questions.json"
	}

	if cfg.Session.IdleTimeoutMinutes < 0 {
		return fmt.Errorf("session.idle_timeout_minutes must be >= 0")
	}
	if cfg.Session.IdleTimeoutMinutes == 0 {
		cfg.Session.IdleTimeoutMinutes = defaultIdleTimeoutMinutes
	}

	return nil
}

func normalizeStorage(st *StorageConfig) error {
	driver := strings.ToLower(strings.TrimSpace(st.Database.Driver))
	if driver == "" {
		driver = coredatabase.DriverSQLite
	}
	switch driver {
	case coredatabase.DriverSQLite:
		path := strings.TrimSpace(st.Database.Path)
		if path == "" {
			return fmt.Errorf("storage.database.path is required for the sqlite driver")
		}
		if !HasStoreSuffix(path) {
			return fmt.Errorf("storage.database.path %q must end with one of: %s",
				path, strings.Join(storeSuffixes, ", "))
		}
		st.Database.Path = path
	case coredatabase.DriverPostgres:
		if strings.TrimSpace(st.Database.Host) == "" {
			return fmt.Errorf("storage.database.host is required for the postgres driver")
		}
		if strings.TrimSpace(st.Database.Name) == "" {
			return fmt.Errorf("storage.database.name is required for the postgres driver")
		}
		if strings.TrimSpace(st.Database.Port) == "" {
			st.Database.Port = "5432"
		}
		if strings.TrimSpace(st.Database.SSLMode) == "" {
			st.Database.SSLMode = "disable"
		}
	default:
		return fmt.Errorf("invalid storage.database.driver %q; allowed: sqlite, postgres", st.Database.Driver)
	}
	st.Database.Driver = driver

	if st.Database.MaxConnections <= 0 {
		st.Database.MaxConnections = 4
	}

	table := strings.TrimSpace(st.Table)
	if table == "" {
		return fmt.Errorf("storage.table is required")
	}
	if !IsSafeIdentifier(table) {
		return fmt.Errorf("storage.table %q is not a safe identifier", table)
	}
	st.Table = table

	return nil
}
