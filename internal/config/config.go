package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

const (
	defaultBackendBaseURL       = "http://127.0.0.1:8000"
	defaultListenAddr           = ":8080"
	defaultPerPage              = 5
	defaultBulkLoadSize         = 20
	defaultMaxBulkPages         = 500
	defaultSessionIdleMinutes   = 60
	defaultSessionSweepSchedule = "*/5 * * * *"
	defaultHealthProbeSchedule  = "* * * * *"
	defaultDBPath               = "./segviewer.db"
	defaultAnimationDurationMS  = 300
	defaultThumbnailMaxHeight   = 300
)

type Config struct {
	BackendBaseURL string `yaml:"backend_base_url"`
	ListenAddr     string `yaml:"listen_addr"`

	PerPage      int `yaml:"per_page"`
	BulkLoadSize int `yaml:"bulk_load_size"`
	MaxBulkPages int `yaml:"max_bulk_pages"`

	ExternalHTTPTimeoutSeconds int `yaml:"external_http_timeout_seconds"`

	SessionIdleMinutes   int    `yaml:"session_idle_minutes"`
	SessionSweepSchedule string `yaml:"session_sweep_schedule"`

	// Empty disables the backend liveness monitor.
	HealthProbeSchedule string `yaml:"health_probe_schedule"`
	DBPath              string `yaml:"db_path"`

	SlackBotToken       string `yaml:"slack_bot_token"`
	SlackAlertChannelID string `yaml:"slack_alert_channel_id"`

	AnimationDurationMS int    `yaml:"animation_duration_ms"`
	ThumbnailMaxHeight  int    `yaml:"thumbnail_max_height"`
	Timezone            string `yaml:"timezone"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// LoadConfig reads config.yaml (or CONFIG_PATH), applies environment overrides
// and defaults, and exits the process when the result is invalid.
func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	envOverride(&cfg.BackendBaseURL, "BACKEND_BASE_URL")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverrideInt(&cfg.PerPage, "PER_PAGE")
	envOverrideInt(&cfg.BulkLoadSize, "BULK_LOAD_SIZE")
	envOverrideInt(&cfg.MaxBulkPages, "MAX_BULK_PAGES")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverrideInt(&cfg.SessionIdleMinutes, "SESSION_IDLE_MINUTES")
	envOverride(&cfg.SessionSweepSchedule, "SESSION_SWEEP_SCHEDULE")
	envOverrideAllowEmpty(&cfg.HealthProbeSchedule, "HEALTH_PROBE_SCHEDULE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAlertChannelID, "SLACK_ALERT_CHANNEL_ID")
	envOverrideInt(&cfg.AnimationDurationMS, "ANIMATION_DURATION_MS")
	envOverrideInt(&cfg.ThumbnailMaxHeight, "THUMBNAIL_MAX_HEIGHT")
	envOverride(&cfg.Timezone, "TIMEZONE")

	applyDefaults(&cfg, configPath)

	if err := cfg.validate(); err != nil {
		log.Fatalf("%v", err)
	}

	if cfg.SlackBotToken != "" && cfg.SlackAlertChannelID == "" {
		log.Printf("WARNING: slack_bot_token is set but slack_alert_channel_id is not. Health alerts disabled.")
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

func applyDefaults(cfg *Config, configPath string) {
	cfg.BackendBaseURL = strings.TrimRight(strings.TrimSpace(cfg.BackendBaseURL), "/")
	if cfg.BackendBaseURL == "" {
		cfg.BackendBaseURL = defaultBackendBaseURL
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = defaultListenAddr
	}
	if cfg.PerPage == 0 {
		cfg.PerPage = defaultPerPage
	}
	if cfg.BulkLoadSize == 0 {
		cfg.BulkLoadSize = defaultBulkLoadSize
	}
	if cfg.MaxBulkPages == 0 {
		cfg.MaxBulkPages = defaultMaxBulkPages
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.SessionIdleMinutes == 0 {
		cfg.SessionIdleMinutes = defaultSessionIdleMinutes
	}
	if cfg.SessionSweepSchedule == "" {
		cfg.SessionSweepSchedule = defaultSessionSweepSchedule
	}
	// An explicit empty health_probe_schedule in the file or env disables probing.
	if _, set := os.LookupEnv("HEALTH_PROBE_SCHEDULE"); !set && !yamlKeyPresent(configPath, "health_probe_schedule") {
		cfg.HealthProbeSchedule = defaultHealthProbeSchedule
	}
	if cfg.DBPath == "" {
		cfg.DBPath = defaultDBPath
	}
	if cfg.AnimationDurationMS == 0 {
		cfg.AnimationDurationMS = defaultAnimationDurationMS
	}
	if cfg.ThumbnailMaxHeight == 0 {
		cfg.ThumbnailMaxHeight = defaultThumbnailMaxHeight
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}
}

func (c Config) validate() error {
	if !strings.HasPrefix(c.BackendBaseURL, "http://") && !strings.HasPrefix(c.BackendBaseURL, "https://") {
		return fmt.Errorf("invalid backend_base_url '%s': must start with http:// or https://", c.BackendBaseURL)
	}
	if c.PerPage < 1 {
		return fmt.Errorf("invalid per_page '%d': must be >= 1", c.PerPage)
	}
	if c.BulkLoadSize < 1 {
		return fmt.Errorf("invalid bulk_load_size '%d': must be >= 1", c.BulkLoadSize)
	}
	if c.MaxBulkPages < 1 {
		return fmt.Errorf("invalid max_bulk_pages '%d': must be >= 1", c.MaxBulkPages)
	}
	if c.ExternalHTTPTimeoutSeconds < 1 {
		return fmt.Errorf("invalid external_http_timeout_seconds '%d': must be >= 1", c.ExternalHTTPTimeoutSeconds)
	}
	if c.SessionIdleMinutes < 1 {
		return fmt.Errorf("invalid session_idle_minutes '%d': must be >= 1", c.SessionIdleMinutes)
	}
	if _, err := parseSchedule(c.SessionSweepSchedule); err != nil {
		return fmt.Errorf("invalid session_sweep_schedule '%s': %v", c.SessionSweepSchedule, err)
	}
	if strings.TrimSpace(c.HealthProbeSchedule) != "" {
		if _, err := parseSchedule(c.HealthProbeSchedule); err != nil {
			return fmt.Errorf("invalid health_probe_schedule '%s': %v", c.HealthProbeSchedule, err)
		}
	}
	if c.AnimationDurationMS < 0 {
		return fmt.Errorf("invalid animation_duration_ms '%d': must be >= 0", c.AnimationDurationMS)
	}
	if c.ThumbnailMaxHeight < 1 {
		return fmt.Errorf("invalid thumbnail_max_height '%d': must be >= 1", c.ThumbnailMaxHeight)
	}
	return nil
}

// ParseSchedule parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
func ParseSchedule(spec string) (cron.Schedule, error) {
	return parseSchedule(spec)
}

func parseSchedule(spec string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return parser.Parse(strings.TrimSpace(spec))
}

func (c Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}

func (c Config) HealthMonitorEnabled() bool {
	return strings.TrimSpace(c.HealthProbeSchedule) != ""
}

func (c Config) SlackAlertsConfigured() bool {
	return c.SlackBotToken != "" && c.SlackAlertChannelID != ""
}

func yamlKeyPresent(path, key string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return false
	}
	_, ok := m[key]
	return ok
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideAllowEmpty(field *string, envKey string) {
	if val, ok := os.LookupEnv(envKey); ok {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
