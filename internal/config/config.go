// Package config provides YAML-based configuration loading for the
// assistant server and clients.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration, loaded from config.yaml.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Agent     AgentConfig     `yaml:"agent"`
	Store     StoreConfig     `yaml:"store"`
	Client    ClientConfig    `yaml:"client"`
	Reporting ReportingConfig `yaml:"reporting"`
}

// ServerConfig holds settings for the assistant HTTP server.
type ServerConfig struct {
	Port        int    `yaml:"port"`
	ClientToken string `yaml:"client_token"` // optional; empty disables client auth
}

// AgentConfig holds the backend agent endpoint and its credential. The
// bearer token is injected server-side and never reaches clients.
type AgentConfig struct {
	URL         string `yaml:"url"`
	BearerToken string `yaml:"bearer_token"`
	TimeoutSec  int    `yaml:"timeout_sec"`
}

// StoreConfig selects and configures the message store backend.
type StoreConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// ClientConfig holds settings for the chat/tui client commands.
type ClientConfig struct {
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`
	UserID    string `yaml:"user_id"`
}

// ReportingConfig controls the periodic reporting-view refresher.
type ReportingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a Config with all defaults applied and no file input.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Agent.URL == "" {
		c.Agent.URL = "http://localhost:8001/api/sales-assistant"
	}
	if c.Agent.TimeoutSec == 0 {
		c.Agent.TimeoutSec = 30
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "sqlite"
	}
	if c.Store.Path == "" {
		c.Store.Path = "assistant.db"
	}
	if c.Store.Host == "" {
		c.Store.Host = "127.0.0.1"
	}
	if c.Store.Port == 0 {
		c.Store.Port = 3306
	}
	if c.Store.Database == "" {
		c.Store.Database = "assistant"
	}
	if c.Client.ServerURL == "" {
		c.Client.ServerURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	if c.Client.UserID == "" {
		c.Client.UserID = "NA"
	}
	if c.Reporting.Cron == "" {
		c.Reporting.Cron = "0 8 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Store.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q must be sqlite or mysql", c.Store.Driver))
	}
	if c.Agent.URL == "" {
		errs = append(errs, "agent.url is required")
	}
	if c.Agent.TimeoutSec < 0 {
		errs = append(errs, "agent.timeout_sec must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
