// Package config handles configuration loading for the control panel.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values for the application.
type Config struct {
	// Database connection string
	DatabaseURL string

	// HTTP server port for the panel API
	HTTPPort int

	// Base URL of the upstream DAQ API (e.g., "http://daq-api:8080")
	DAQAPIURL string

	// Timeout for a single upstream DAQ API call
	DAQAPITimeout time.Duration

	// Interval between client-list discovery polls
	DiscoveryInterval time.Duration

	// Interval between status/log refresh cycles
	RefreshInterval time.Duration

	// Maximum number of clients polled concurrently in one refresh cycle
	PollConcurrency int

	// Maximum number of log entries cached per client
	LogBuffer int

	// OTLP collector endpoint for traces. Empty disables tracing.
	OTELEndpoint string

	// Log level: debug, info, warn, error
	LogLevel string

	// Reverse-proxy group that grants admin access
	AdminGroup string
}

// Load reads configuration from an optional yaml file and DAQPANEL_*
// environment variables. Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("http_port", 8400)
	v.SetDefault("daq_api_timeout", 10*time.Second)
	v.SetDefault("discovery_interval", 5*time.Second)
	v.SetDefault("refresh_interval", 1*time.Second)
	v.SetDefault("poll_concurrency", 16)
	v.SetDefault("log_buffer", 200)
	v.SetDefault("log_level", "info")
	v.SetDefault("admin_group", "daq-admins")

	v.SetEnvPrefix("DAQPANEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("daqpanel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		// A missing default config file is fine; env vars may carry everything.
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{
		DatabaseURL:       v.GetString("database_url"),
		HTTPPort:          v.GetInt("http_port"),
		DAQAPIURL:         v.GetString("daq_api_url"),
		DAQAPITimeout:     v.GetDuration("daq_api_timeout"),
		DiscoveryInterval: v.GetDuration("discovery_interval"),
		RefreshInterval:   v.GetDuration("refresh_interval"),
		PollConcurrency:   v.GetInt("poll_concurrency"),
		LogBuffer:         v.GetInt("log_buffer"),
		OTELEndpoint:      v.GetString("otel_endpoint"),
		LogLevel:          v.GetString("log_level"),
		AdminGroup:        v.GetString("admin_group"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is required (DAQPANEL_DATABASE_URL)")
	}
	if cfg.DAQAPIURL == "" {
		return nil, fmt.Errorf("daq_api_url is required (DAQPANEL_DAQ_API_URL)")
	}
	if cfg.PollConcurrency <= 0 {
		return nil, fmt.Errorf("poll_concurrency must be positive, got %d", cfg.PollConcurrency)
	}

	// Trailing slash on the API base breaks path joins downstream.
	cfg.DAQAPIURL = strings.TrimRight(cfg.DAQAPIURL, "/")

	return cfg, nil
}
