// internal/config/config.go - Configuration management
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stakewatch/internal/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultSweepInterval  = 5 * time.Minute
	DefaultCooldown       = 30 * time.Minute
	DefaultMinSeverity    = "CAUTION"
	DefaultMigrationsDir  = "migrations"
	DefaultPrometheusPort = 8080
)

// Config is the top-level daemon configuration. Fields map 1:1 to
// config.example.yaml. Secrets are never stored in the file; the *_env
// fields name environment variables that hold the real values.
type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Sweep         SweepConfig         `yaml:"sweep"`
	Storage       StorageConfig       `yaml:"storage"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// SourceConfig selects where observations come from.
type SourceConfig struct {
	// SnapshotFile is a JSON file holding one batch of observations. The
	// daemon re-reads it every sweep, so replacing the file feeds the next
	// sweep.
	SnapshotFile string `yaml:"snapshot_file"`
}

// SweepConfig controls the sweep loop.
type SweepConfig struct {
	// Interval between sweeps.
	Interval time.Duration `yaml:"interval"`
}

// StorageConfig selects and configures the persistence backend.
type StorageConfig struct {
	// Backend is one of: postgres | memory.
	Backend string `yaml:"backend"`

	// DatabaseURLEnv names the environment variable holding the postgres DSN.
	DatabaseURLEnv string `yaml:"database_url_env"`

	// MigrationsDir is the directory holding goose migrations.
	MigrationsDir string `yaml:"migrations_dir"`
}

// DatabaseURL returns the DSN resolved from the environment.
func (s StorageConfig) DatabaseURL() string {
	if s.DatabaseURLEnv == "" {
		return ""
	}
	return os.Getenv(s.DatabaseURLEnv)
}

// NotificationsConfig controls alert delivery.
type NotificationsConfig struct {
	// MinSeverity is the delivery floor: INFO | CAUTION | RUG.
	MinSeverity string `yaml:"min_severity"`

	// Cooldown mutes repeat alerts for the same validator and attribute.
	Cooldown time.Duration `yaml:"cooldown"`

	// ShoutrrrURLsEnv and CriticalShoutrrrURLsEnv name environment variables
	// holding comma-separated shoutrrr URLs. Critical channels additionally
	// receive RUG and delinquency alerts.
	ShoutrrrURLsEnv         string `yaml:"shoutrrr_urls_env"`
	CriticalShoutrrrURLsEnv string `yaml:"critical_shoutrrr_urls_env"`

	Redis RedisConfig `yaml:"redis"`
}

// ShoutrrrURLs returns the standard channel URLs resolved from the environment.
func (n NotificationsConfig) ShoutrrrURLs() []string {
	return splitURLs(os.Getenv(n.ShoutrrrURLsEnv))
}

// CriticalShoutrrrURLs returns the critical channel URLs resolved from the environment.
func (n NotificationsConfig) CriticalShoutrrrURLs() []string {
	return splitURLs(os.Getenv(n.CriticalShoutrrrURLsEnv))
}

// Severity returns the parsed delivery floor.
func (n NotificationsConfig) Severity() types.Severity {
	return types.ParseSeverity(n.MinSeverity)
}

// RedisConfig configures the optional shared cooldown store. When disabled
// the cooldown is process-local.
type RedisConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Addr        string `yaml:"addr"`
	PasswordEnv string `yaml:"password_env"`
	DB          int    `yaml:"db"`
}

// Password returns the Redis password resolved from the environment.
func (r RedisConfig) Password() string {
	if r.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(r.PasswordEnv)
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads and parses the YAML config file at path. Missing optional
// fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Sweep: SweepConfig{
			Interval: DefaultSweepInterval,
		},
		Storage: StorageConfig{
			Backend:       "memory",
			MigrationsDir: DefaultMigrationsDir,
		},
		Notifications: NotificationsConfig{
			MinSeverity: DefaultMinSeverity,
			Cooldown:    DefaultCooldown,
		},
		Metrics: MetricsConfig{
			Port: DefaultPrometheusPort,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Source.SnapshotFile == "" {
		return fmt.Errorf("source.snapshot_file is required")
	}
	if cfg.Sweep.Interval <= 0 {
		return fmt.Errorf("sweep.interval must be positive")
	}
	switch cfg.Storage.Backend {
	case "postgres":
		if cfg.Storage.DatabaseURLEnv == "" {
			return fmt.Errorf("storage.database_url_env is required for the postgres backend")
		}
	case "memory":
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", cfg.Storage.Backend)
	}
	switch cfg.Notifications.MinSeverity {
	case "INFO", "CAUTION", "RUG":
	default:
		return fmt.Errorf("notifications.min_severity: unknown severity %q", cfg.Notifications.MinSeverity)
	}
	if cfg.Notifications.Cooldown <= 0 {
		return fmt.Errorf("notifications.cooldown must be positive")
	}
	if cfg.Notifications.Redis.Enabled && cfg.Notifications.Redis.Addr == "" {
		return fmt.Errorf("notifications.redis.addr is required when redis is enabled")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Port <= 0 {
		return fmt.Errorf("metrics.port must be positive")
	}
	return nil
}

func splitURLs(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			urls = append(urls, p)
		}
	}
	return urls
}
