package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/aviator-labs/flightdeck/internal/logger"
	"github.com/aviator-labs/flightdeck/internal/registry"
)

// FileConfig is the top-level TOML structure.
//
//	python = "python3"
//	open_browser = true
//	dashboard_url = "http://localhost:8501"
//	settle = "2s"
//	health_timeout = "30s"
//	monitor_interval = "1s"
//	grace = "10s"
//
//	[log]
//	dir = "logs"
//
//	[server]
//	listen = "127.0.0.1:8090"
//	base_path = "/api"
//
//	[history]
//	dsn = "sqlite://flightdeck.db"
//
//	[[services]]
//	name = "main-dashboard"
//	category = "web-dashboard"
//	script = "dashboards/main_dashboard.py"
//	port = 8501
//	health_path = "/health"
type FileConfig struct {
	Python          string                 `mapstructure:"python"`
	OpenBrowser     *bool                  `mapstructure:"open_browser"`
	DashboardURL    string                 `mapstructure:"dashboard_url"`
	Settle          time.Duration          `mapstructure:"settle"`
	HealthTimeout   time.Duration          `mapstructure:"health_timeout"`
	MonitorInterval time.Duration          `mapstructure:"monitor_interval"`
	Grace           time.Duration          `mapstructure:"grace"`
	Log             *logger.Config         `mapstructure:"log"`
	Server          *ServerConfig          `mapstructure:"server"`
	History         *HistoryConfig         `mapstructure:"history"`
	Services        []registry.ServiceSpec `mapstructure:"services"`
}

type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

type HistoryConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Config is the validated runtime configuration.
type Config struct {
	Python          string
	OpenBrowser     bool
	DashboardURL    string
	Settle          time.Duration
	HealthTimeout   time.Duration
	MonitorInterval time.Duration
	Grace           time.Duration
	Log             logger.Config
	Server          *ServerConfig
	HistoryDSN      string
	Registry        *registry.Registry
}

// Default returns the configuration used when no config file is given:
// the built-in Aviator service table with stock timings.
func Default() *Config {
	return &Config{
		Python:       "python3",
		OpenBrowser:  true,
		DashboardURL: "http://localhost:8501",
		Registry:     registry.Default(),
	}
}

// Load reads and validates a TOML config file. Registry validation
// (duplicate names/ports) fails here, before anything is launched.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if fc.Python != "" {
		cfg.Python = fc.Python
	}
	if fc.OpenBrowser != nil {
		cfg.OpenBrowser = *fc.OpenBrowser
	}
	if fc.DashboardURL != "" {
		cfg.DashboardURL = fc.DashboardURL
	}
	cfg.Settle = fc.Settle
	cfg.HealthTimeout = fc.HealthTimeout
	cfg.MonitorInterval = fc.MonitorInterval
	cfg.Grace = fc.Grace
	if fc.Log != nil {
		cfg.Log = *fc.Log
	}
	cfg.Server = fc.Server
	if fc.History != nil {
		cfg.HistoryDSN = fc.History.DSN
	}
	if len(fc.Services) > 0 {
		reg, err := registry.New(fc.Services)
		if err != nil {
			return nil, fmt.Errorf("invalid service table: %w", err)
		}
		cfg.Registry = reg
	}
	return cfg, nil
}
