// Package config loads the YAML-based configuration shared by cmd/broker
// and cmd/router, following the teacher's single-Config-struct-with-nested-
// sections pattern (config/config.go).
package config

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// BrokerConfig holds the publish/subscribe broker's configuration (§6.3).
type BrokerConfig struct {
	TCPAddr string    `yaml:"tcp_addr"`
	UDPAddr string    `yaml:"udp_addr"`
	Log     LogConfig `yaml:"log"`
}

// RouterConfig holds the IPv4 router's configuration (§6.4 **[ADD]**): the
// flat CLI surface the original takes as positional arguments, restated as
// a structured file so both binaries share one loading convention.
type RouterConfig struct {
	RoutingTablePath string    `yaml:"routing_table_path"`
	ArpTablePath     string    `yaml:"arp_table_path"`
	Interfaces       []string  `yaml:"interfaces"`
	Log              LogConfig `yaml:"log"`
}

// LogConfig selects the slog handler and level, matching the teacher's
// log.level/log.format fields.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}

// DefaultBroker returns the broker's configuration with sensible defaults.
func DefaultBroker() *BrokerConfig {
	return &BrokerConfig{
		TCPAddr: ":9000",
		UDPAddr: ":9001",
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// DefaultRouter returns the router's configuration with sensible defaults.
// RoutingTablePath and Interfaces have no meaningful default and must be
// supplied by the caller, matching the original's mandatory CLI arguments.
func DefaultRouter() *RouterConfig {
	return &RouterConfig{
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// LoadBroker loads the broker configuration from a YAML file. An empty
// filename returns the defaults unmodified.
func LoadBroker(filename string) (*BrokerConfig, error) {
	cfg := DefaultBroker()
	if filename == "" {
		return cfg, nil
	}
	if err := loadYAML(filename, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid broker configuration: %w", err)
	}
	return cfg, nil
}

// LoadRouter loads the router configuration from a YAML file. An empty
// filename returns the defaults unmodified.
func LoadRouter(filename string) (*RouterConfig, error) {
	cfg := DefaultRouter()
	if filename == "" {
		return cfg, nil
	}
	if err := loadYAML(filename, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid router configuration: %w", err)
	}
	return cfg, nil
}

func loadYAML(filename string, out any) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", filename, err)
	}
	return nil
}

// Validate checks the broker configuration for obviously unusable values.
func (c *BrokerConfig) Validate() error {
	if c.TCPAddr == "" {
		return fmt.Errorf("config: broker.tcp_addr cannot be empty")
	}
	if c.UDPAddr == "" {
		return fmt.Errorf("config: broker.udp_addr cannot be empty")
	}
	return c.Log.validate()
}

// Validate checks the router configuration for obviously unusable values.
func (c *RouterConfig) Validate() error {
	if c.RoutingTablePath == "" {
		return fmt.Errorf("config: router.routing_table_path cannot be empty")
	}
	if len(c.Interfaces) == 0 {
		return fmt.Errorf("config: router.interfaces must list at least one interface")
	}
	return c.Log.validate()
}

// NewLogger builds a slog.Logger from the given LogConfig, matching the
// teacher's cmd/broker/main.go level/format switch.
func NewLogger(cfg LogConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func (l LogConfig) validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if l.Level != "" && !validLevels[l.Level] {
		return fmt.Errorf("config: log.level must be one of debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if l.Format != "" && !validFormats[l.Format] {
		return fmt.Errorf("config: log.format must be one of text, json")
	}
	return nil
}
