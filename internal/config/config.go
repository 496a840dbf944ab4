package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	BaseURL               string        `mapstructure:"base_url"`
	UserAgent             string        `mapstructure:"user_agent"`
	RequestTimeoutSeconds int64         `mapstructure:"request_timeout_seconds"`
	RequestTimeout        time.Duration `mapstructure:"-"`

	QueriesFile string `mapstructure:"queries_file"`
	SinksFile   string `mapstructure:"sinks_file"`
	Serial      bool   `mapstructure:"serial"`
	MetricsAddr string `mapstructure:"metrics_addr"`
	// TraceExporter selects where query spans go: "none" or "stdout".
	TraceExporter string `mapstructure:"trace_exporter"`

	ForwardTimeoutSeconds int64         `mapstructure:"forward_timeout_seconds"`
	ForwardTimeout        time.Duration `mapstructure:"-"`

	StorageType                   string        `mapstructure:"storage_type"`
	HistoryPath                   string        `mapstructure:"history_path"`
	HistoryTTLSeconds             int64         `mapstructure:"history_ttl_seconds"`
	HistoryTTL                    time.Duration `mapstructure:"-"`
	HistoryCleanupIntervalSeconds int64         `mapstructure:"history_cleanup_interval_seconds"`
	HistoryCleanupInterval        time.Duration `mapstructure:"-"`
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-query-probe")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("base_url", "http://0.0.0.0:9000")
	v.SetDefault("user_agent", "samvad-query-probe")
	v.SetDefault("request_timeout_seconds", 30) // 0 waits forever
	v.SetDefault("queries_file", "./configs/queries.yaml")
	v.SetDefault("sinks_file", "")
	v.SetDefault("serial", false)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("trace_exporter", "none")
	v.SetDefault("forward_timeout_seconds", 5)
	v.SetDefault("storage_type", "none")
	v.SetDefault("history_path", "./data/history.db")
	v.SetDefault("history_ttl_seconds", 30*24*60*60)
	v.SetDefault("history_cleanup_interval_seconds", 12*60*60)

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize validates raw values and derives the duration fields.
func (c *Config) finalize() error {
	c.BaseURL = strings.TrimSpace(c.BaseURL)
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q (must be an absolute http(s) url)", c.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url scheme %q", u.Scheme)
	}

	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("invalid request_timeout_seconds (must be zero or positive seconds)")
	}
	c.RequestTimeout = time.Duration(c.RequestTimeoutSeconds) * time.Second

	if c.ForwardTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid forward_timeout_seconds (must be positive seconds)")
	}
	c.ForwardTimeout = time.Duration(c.ForwardTimeoutSeconds) * time.Second

	if c.HistoryTTLSeconds < 0 || c.HistoryCleanupIntervalSeconds < 0 {
		return fmt.Errorf("invalid history retention (must be zero or positive seconds)")
	}
	c.HistoryTTL = time.Duration(c.HistoryTTLSeconds) * time.Second
	c.HistoryCleanupInterval = time.Duration(c.HistoryCleanupIntervalSeconds) * time.Second
	c.StorageType = strings.ToLower(strings.TrimSpace(c.StorageType))
	c.HistoryPath = strings.TrimSpace(c.HistoryPath)

	c.TraceExporter = strings.ToLower(strings.TrimSpace(c.TraceExporter))
	switch c.TraceExporter {
	case "", "none":
		c.TraceExporter = "none"
	case "stdout":
	default:
		return fmt.Errorf("invalid trace_exporter %q (expected none or stdout)", c.TraceExporter)
	}

	c.QueriesFile = strings.TrimSpace(c.QueriesFile)
	c.SinksFile = strings.TrimSpace(c.SinksFile)
	return nil
}

// OverrideBaseURL replaces the base url and re-validates the config.
func (c *Config) OverrideBaseURL(raw string) error {
	c.BaseURL = raw
	return c.finalize()
}
