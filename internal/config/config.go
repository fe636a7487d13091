// Package config loads and validates server configuration, the same
// flags-over-env-over-file-over-defaults layering the teacher built with
// viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the server. Fields mirror the
// teacher's Config struct with MaxMemory/RequireAuth/Password/LogFormat
// dropped: authentication and a soft memory cap are out of scope (see
// DESIGN.md), and log format is always the teacher's plain log.Printf
// style, so there is nothing for LogFormat to select between.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	MaxClients int `mapstructure:"max_clients"`

	LogLevel string `mapstructure:"log_level"`

	SaveInterval  time.Duration `mapstructure:"save_interval"`
	DataDir       string        `mapstructure:"data_dir"`
	EnablePersist bool          `mapstructure:"enable_persist"`

	TCPKeepAlive bool          `mapstructure:"tcp_keepalive"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Host:          "127.0.0.1",
		Port:          6379,
		MaxClients:    10000,
		LogLevel:      "info",
		SaveInterval:  300 * time.Second,
		DataDir:       "./data",
		EnablePersist: false,
		TCPKeepAlive:  true,
		ReadTimeout:   30 * time.Second,
		WriteTimeout:  30 * time.Second,
	}
}

// LoadConfig loads configuration from flags (bound into v by the cli
// package), environment variables (GOFAST_* prefix), and an optional
// gofast.yaml, layered over DefaultConfig.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	v.SetConfigName("gofast")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/gofast/")
	v.AddConfigPath("$HOME/.gofast")

	v.SetEnvPrefix("GOFAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("host", cfg.Host)
	v.SetDefault("port", cfg.Port)
	v.SetDefault("max_clients", cfg.MaxClients)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("save_interval", cfg.SaveInterval)
	v.SetDefault("data_dir", cfg.DataDir)
	v.SetDefault("enable_persist", cfg.EnablePersist)
	v.SetDefault("tcp_keepalive", cfg.TCPKeepAlive)
	v.SetDefault("read_timeout", cfg.ReadTimeout)
	v.SetDefault("write_timeout", cfg.WriteTimeout)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return cfg, nil
}

// Validate checks invariants the server assumes hold at startup.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d (must be 1-65535)", c.Port)
	}
	if c.MaxClients < 1 {
		return fmt.Errorf("max_clients must be at least 1")
	}

	validLogLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	ok := false
	for _, level := range validLogLevels {
		if c.LogLevel == level {
			ok = true
			break
		}
	}
	if !ok {
		return fmt.Errorf("invalid log_level: %s (must be one of: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", "))
	}
	return nil
}

// String returns a one-line summary of the listen address and log level.
func (c *Config) String() string {
	return fmt.Sprintf("GoFast Config: %s:%d, LogLevel: %s", c.Host, c.Port, c.LogLevel)
}
