package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"GrantScanner/internal/domain"
)

const (
	defaultTimezone = "UTC"
	configPathEnv   = "GRANT_SCANNER_CONFIG"
	dotenvFile      = ".env"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database      DatabaseConfig     `yaml:"database"`
	Storage       StorageConfig      `yaml:"storage"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	GitHub        GitHubConfig       `yaml:"github"`
	Sources       []SourceConfig     `yaml:"sources"`
	Notifications NotificationConfig `yaml:"notifications"`
	Engine        EngineConfig       `yaml:"engine"`
	Rubric        RubricConfig       `yaml:"rubric"`
	Logging       LoggingConfig      `yaml:"logging"`
	Telemetry     TelemetryConfig    `yaml:"telemetry"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

// StorageConfig selects the repository backend.
type StorageConfig struct {
	Driver string `yaml:"driver" env:"GRANT_SCANNER_STORAGE"`
}

// SchedulerConfig defines when the refresh should run.
type SchedulerConfig struct {
	CronExpression string         `yaml:"cronExpression" env:"GRANT_SCANNER_CRON"`
	Timezone       string         `yaml:"timezone" env:"GRANT_SCANNER_TIMEZONE"`
	RunOnStart     bool           `yaml:"runOnStart"`
	location       *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// GitHubConfig tunes the GitHub pulls scanner.
type GitHubConfig struct {
	APIURL        string        `yaml:"apiUrl" env:"GITHUB_API_URL"`
	Token         string        `yaml:"token" env:"GITHUB_TOKEN"`
	PerPage       int           `yaml:"perPage"`
	MaxPages      int           `yaml:"maxPages"`
	RequestDelay  time.Duration `yaml:"requestDelay"`
	RateLimitWait time.Duration `yaml:"rateLimitWait"`
}

// SourceConfig describes one grant repository and the scanner that reads it.
type SourceConfig struct {
	Name    string            `yaml:"name"`
	Scanner string            `yaml:"scanner"`
	Options map[string]string `yaml:"options"`
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken" env:"TELEGRAM_BOT_TOKEN"`
	ChatID   string `yaml:"chatId" env:"TELEGRAM_CHAT_ID"`
	APIURL   string `yaml:"apiUrl"`
}

// EngineConfig carries the classification and extraction knobs.
type EngineConfig struct {
	StaleThresholdDays int               `yaml:"staleThresholdDays" env:"GRANT_SCANNER_STALE_DAYS"`
	Workers            int               `yaml:"workers" env:"GRANT_SCANNER_WORKERS"`
	LabelCategories    map[string]string `yaml:"labelCategories"`
	RejectionKeywords  []string          `yaml:"rejectionKeywords"`
}

// RubricConfig holds evaluator weights keyed by criterion name.
type RubricConfig struct {
	Weights map[string]float64 `yaml:"weights"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL"`
}

// TelemetryConfig exposes Prometheus counters; an empty address disables the listener.
type TelemetryConfig struct {
	Addr string `yaml:"addr" env:"GRANT_SCANNER_TELEMETRY_ADDR"`
}

// Load layers defaults, the YAML file named by GRANT_SCANNER_CONFIG, a local
// .env file and finally process environment variables.
func Load() (Config, error) {
	return LoadFrom(os.Getenv(configPathEnv), dotenvFile)
}

// LoadFrom is Load with explicit file locations; empty paths are skipped.
func LoadFrom(path, envFile string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}

	cfg.bindTimezone()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot produce a working pipeline.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory:
	case StoragePostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("config: postgres storage requires database.dsn")
		}
	default:
		return fmt.Errorf("config: unknown storage driver %q", c.Storage.Driver)
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.Name == "" || src.Scanner == "" {
			return fmt.Errorf("config: source #%d needs name and scanner", i+1)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("config: duplicate source %q", src.Name)
		}
		seen[src.Name] = struct{}{}
	}

	for label, category := range c.Engine.LabelCategories {
		if !domain.Category(strings.ToUpper(strings.TrimSpace(category))).LabelAssignable() {
			return fmt.Errorf("config: label %q maps to %q, want PENDING, REJECTED or UNKNOWN", label, category)
		}
	}
	return nil
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Storage:   StorageConfig{Driver: StorageMemory},
		Scheduler: SchedulerConfig{CronExpression: "0 */6 * * *", Timezone: defaultTimezone, RunOnStart: true, location: tz},
		GitHub: GitHubConfig{
			APIURL:        "https://api.github.com",
			PerPage:       100,
			RequestDelay:  500 * time.Millisecond,
			RateLimitWait: time.Minute,
		},
		Engine: EngineConfig{
			StaleThresholdDays: 60,
			Workers:            4,
		},
		Logging: LoggingConfig{Level: "info"},
		Sources: []SourceConfig{
			githubSource("w3f_grants", "w3f", "Grants-Program"),
			githubSource("polkadot_fast_grants", "Polkadot-Fast-Grants", "apply"),
			githubSource("use_inkubator", "use-inkubator", "Ecosystem-Grants"),
			githubSource("polkadot_open_source", "PolkadotOpenSourceGrants", "apply"),
		},
	}
}

func githubSource(name, owner, repo string) SourceConfig {
	return SourceConfig{
		Name:    name,
		Scanner: "github",
		Options: map[string]string{"owner": owner, "repo": repo},
	}
}
