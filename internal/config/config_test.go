package config

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFromEnvWithDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing-config.yaml"))
	t.Setenv("TIMEZONE", "UTC")

	cfg := LoadConfig()

	if cfg.BackendBaseURL != "http://127.0.0.1:8000" {
		t.Fatalf("unexpected backend base url default: %q", cfg.BackendBaseURL)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr default: %q", cfg.ListenAddr)
	}
	if cfg.PerPage != 5 || cfg.BulkLoadSize != 20 {
		t.Fatalf("unexpected page sizes: per_page=%d bulk=%d", cfg.PerPage, cfg.BulkLoadSize)
	}
	if cfg.MaxBulkPages != 500 {
		t.Fatalf("unexpected max bulk pages default: %d", cfg.MaxBulkPages)
	}
	if cfg.ExternalHTTPTimeoutSeconds != int(defaultExternalHTTPTimeout/time.Second) {
		t.Fatalf("unexpected external HTTP timeout default: %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if cfg.HealthProbeSchedule != defaultHealthProbeSchedule {
		t.Fatalf("unexpected health probe schedule default: %q", cfg.HealthProbeSchedule)
	}
	if !cfg.HealthMonitorEnabled() {
		t.Fatal("expected health monitor to be enabled by default")
	}
	if cfg.SlackAlertsConfigured() {
		t.Fatal("expected slack alerts to be off without a token")
	}
	if cfg.SessionIdleTimeout() != time.Hour {
		t.Fatalf("unexpected session idle timeout: %s", cfg.SessionIdleTimeout())
	}
	if cfg.Location == nil || cfg.Location.String() != "UTC" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
}

func TestLoadConfigYAMLAndEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backend_base_url: "http://segmenter.internal:9000/"
per_page: 10
bulk_load_size: 50
db_path: "/tmp/yaml.db"
slack_bot_token: "xoxb-yaml"
slack_alert_channel_id: "C123"
timezone: "America/Sao_Paulo"
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("PER_PAGE", "8")
	t.Setenv("DB_PATH", "/tmp/env.db")
	t.Setenv("EXTERNAL_HTTP_TIMEOUT_SECONDS", "15")

	cfg := LoadConfig()

	if cfg.BackendBaseURL != "http://segmenter.internal:9000" {
		t.Fatalf("expected trailing slash trimmed from yaml base url, got %q", cfg.BackendBaseURL)
	}
	if cfg.PerPage != 8 {
		t.Fatalf("expected per_page from env override, got %d", cfg.PerPage)
	}
	if cfg.BulkLoadSize != 50 {
		t.Fatalf("expected bulk_load_size from yaml, got %d", cfg.BulkLoadSize)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Fatalf("expected db path from env override, got %q", cfg.DBPath)
	}
	if cfg.ExternalHTTPTimeoutSeconds != 15 {
		t.Fatalf("expected external HTTP timeout from env override, got %d", cfg.ExternalHTTPTimeoutSeconds)
	}
	if !cfg.SlackAlertsConfigured() {
		t.Fatal("expected slack alerts configured from yaml")
	}
	if cfg.Location == nil || cfg.Location.String() != "America/Sao_Paulo" {
		t.Fatalf("unexpected location: %v", cfg.Location)
	}
}

func TestLoadConfigEmptyHealthScheduleDisablesMonitor(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("health_probe_schedule: \"\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", cfgPath)
	t.Setenv("TIMEZONE", "UTC")

	cfg := LoadConfig()
	if cfg.HealthMonitorEnabled() {
		t.Fatalf("expected monitor disabled, schedule=%q", cfg.HealthProbeSchedule)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		BackendBaseURL:             "http://localhost:8000",
		PerPage:                    5,
		BulkLoadSize:               20,
		MaxBulkPages:               10,
		ExternalHTTPTimeoutSeconds: 30,
		SessionIdleMinutes:         5,
		SessionSweepSchedule:       "*/5 * * * *",
		HealthProbeSchedule:        "* * * * *",
		ThumbnailMaxHeight:         300,
	}
	if err := base.validate(); err != nil {
		t.Fatalf("expected base config to be valid: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad scheme", func(c *Config) { c.BackendBaseURL = "ftp://host" }},
		{"zero per page", func(c *Config) { c.PerPage = 0 }},
		{"negative bulk", func(c *Config) { c.BulkLoadSize = -1 }},
		{"zero max pages", func(c *Config) { c.MaxBulkPages = 0 }},
		{"bad sweep cron", func(c *Config) { c.SessionSweepSchedule = "every minute" }},
		{"bad probe cron", func(c *Config) { c.HealthProbeSchedule = "* * *" }},
		{"negative animation", func(c *Config) { c.AnimationDurationMS = -5 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestEnvOverrideHelpers(t *testing.T) {
	s := "initial"
	t.Setenv("SV_TEST_STR", "value")
	envOverride(&s, "SV_TEST_STR")
	if s != "value" {
		t.Fatalf("envOverride failed, got %q", s)
	}

	i := 1
	t.Setenv("SV_TEST_INT", "42")
	envOverrideInt(&i, "SV_TEST_INT")
	if i != 42 {
		t.Fatalf("envOverrideInt failed, got %d", i)
	}

	e := "keep"
	t.Setenv("SV_TEST_EMPTY", "")
	envOverrideAllowEmpty(&e, "SV_TEST_EMPTY")
	if e != "" {
		t.Fatalf("envOverrideAllowEmpty failed, got %q", e)
	}
}

func TestLoadConfigInvalidPerPageFatal(t *testing.T) {
	if os.Getenv("TEST_INVALID_PER_PAGE_FATAL") == "1" {
		_ = os.Setenv("CONFIG_PATH", filepath.Join(os.TempDir(), "no-config.yaml"))
		_ = os.Setenv("PER_PAGE", "-3")
		LoadConfig()
		return
	}

	cmd := exec.Command(os.Args[0], "-test.run=TestLoadConfigInvalidPerPageFatal")
	cmd.Env = append(os.Environ(), "TEST_INVALID_PER_PAGE_FATAL=1")
	err := cmd.Run()
	if err == nil {
		t.Fatal("expected subprocess to exit with failure")
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got: %v", err)
	}
}
