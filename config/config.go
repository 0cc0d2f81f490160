package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	HomeBroker HomeBrokerConfig `yaml:"homebroker"`
	Prefixes   PrefixesConfig   `yaml:"prefixes"`
	Reconnect  ReconnectConfig  `yaml:"reconnect"`
	Channels   ChannelsConfig   `yaml:"channels"`
	History    HistoryConfig    `yaml:"history"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type ServiceConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type HomeBrokerConfig struct {
	BrokerID int           `yaml:"broker_id"`
	DNI      string        `yaml:"dni"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	AuthURL  string        `yaml:"auth_url"`
	WSURL    string        `yaml:"ws_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

type PrefixesConfig struct {
	Options []string `yaml:"options"`
	Stocks  []string `yaml:"stocks"`
}

type ReconnectConfig struct {
	Interval            time.Duration `yaml:"interval"`
	MaxAttempts         int           `yaml:"max_attempts"`
	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	StaleAfter          time.Duration `yaml:"stale_after"`
	ReceivingDataWindow time.Duration `yaml:"receiving_data_window"`
}

type ChannelsConfig struct {
	QuoteBuffer int `yaml:"quote_buffer"`
	ErrorBuffer int `yaml:"error_buffer"`
}

type HistoryConfig struct {
	RequestsPerSecond int           `yaml:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size"`
	Timeout           time.Duration `yaml:"timeout"`
	MaxDays           int           `yaml:"max_days"`
}

type ServerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

type MetricsConfig struct {
	Prometheus bool   `yaml:"prometheus"`
	CloudWatch bool   `yaml:"cloudwatch"`
	Region     string `yaml:"region"`
	Namespace  string `yaml:"namespace"`
}

// LoadConfig reads the yaml configuration file, applies environment
// overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Reconnect: ReconnectConfig{
			Interval:            30 * time.Second,
			MaxAttempts:         5,
			HealthCheckInterval: 60 * time.Second,
			StaleAfter:          5 * time.Minute,
			ReceivingDataWindow: 5 * time.Minute,
		},
		Channels: ChannelsConfig{
			QuoteBuffer: 256,
			ErrorBuffer: 16,
		},
		History: HistoryConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
			Timeout:           30 * time.Second,
			MaxDays:           365,
		},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides layers HB_* environment variables on top of the file
// configuration. Credentials normally arrive this way rather than being
// committed to the yaml file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HB_BROKER"); v != "" {
		var id int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &id); err == nil {
			cfg.HomeBroker.BrokerID = id
		}
	}
	if v := os.Getenv("HB_DNI"); v != "" {
		cfg.HomeBroker.DNI = strings.TrimSpace(v)
	}
	if v := os.Getenv("HB_USER"); v != "" {
		cfg.HomeBroker.User = strings.TrimSpace(v)
	}
	if v := os.Getenv("HB_PASSWORD"); v != "" {
		cfg.HomeBroker.Password = strings.TrimSpace(v)
	}
	if prefixes := parsePrefixList(os.Getenv("HB_OPTIONS_PREFIXES")); len(prefixes) > 0 {
		cfg.Prefixes.Options = prefixes
	}
	if prefixes := parsePrefixList(os.Getenv("HB_STOCK_PREFIXES")); len(prefixes) > 0 {
		cfg.Prefixes.Stocks = prefixes
	}
	if v := os.Getenv("HB_RECONNECT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			cfg.Reconnect.Interval = d
		}
	}
	if v := os.Getenv("HB_MAX_RECONNECT_ATTEMPTS"); v != "" {
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
			cfg.Reconnect.MaxAttempts = n
		}
	}
	if v := os.Getenv("HB_HEALTH_CHECK_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			cfg.Reconnect.HealthCheckInterval = d
		}
	}
}

// parsePrefixList splits a comma separated prefix list, dropping empty
// entries (e.g. "GFG,GAL" -> ["GFG","GAL"]).
func parsePrefixList(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(value, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validateConfig(cfg *Config) error {
	if cfg.Service.Name == "" {
		return fmt.Errorf("service.name is required")
	}

	if cfg.Service.Version == "" {
		return fmt.Errorf("service.version is required")
	}

	if cfg.Reconnect.Interval <= 0 {
		return fmt.Errorf("reconnect.interval must be greater than 0")
	}
	if cfg.Reconnect.MaxAttempts <= 0 {
		return fmt.Errorf("reconnect.max_attempts must be greater than 0")
	}
	if cfg.Reconnect.HealthCheckInterval <= 0 {
		return fmt.Errorf("reconnect.health_check_interval must be greater than 0")
	}
	if cfg.Reconnect.StaleAfter <= 0 {
		return fmt.Errorf("reconnect.stale_after must be greater than 0")
	}
	if cfg.Reconnect.ReceivingDataWindow <= 0 {
		return fmt.Errorf("reconnect.receiving_data_window must be greater than 0")
	}

	if cfg.Channels.QuoteBuffer <= 0 {
		return fmt.Errorf("channels.quote_buffer must be greater than 0")
	}

	if cfg.History.RequestsPerSecond <= 0 {
		return fmt.Errorf("history.requests_per_second must be greater than 0")
	}
	if cfg.History.MaxDays <= 0 {
		return fmt.Errorf("history.max_days must be greater than 0")
	}

	if cfg.Server.Enabled && cfg.Server.Address == "" {
		return fmt.Errorf("server.address is required when the server is enabled")
	}

	return nil
}
