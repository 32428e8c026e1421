// Package config provides configuration management for the finetune backend.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration sections for the backend.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Terminal TerminalConfig `mapstructure:"terminal"`
	Settings SettingsConfig `mapstructure:"settings"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"readTimeout"`  // in seconds
	WriteTimeout int    `mapstructure:"writeTimeout"` // in seconds
}

// NATSConfig holds NATS messaging configuration.
// An empty URL selects the in-memory event bus.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	ClientID      string `mapstructure:"clientId"`
	MaxReconnects int    `mapstructure:"maxReconnects"`
}

// TerminalConfig holds terminal session manager configuration.
type TerminalConfig struct {
	// ProjectsDir is the root directory holding per-project workspaces.
	ProjectsDir string `mapstructure:"projectsDir"`

	// DefaultCols and DefaultRows are the initial PTY geometry.
	DefaultCols int `mapstructure:"defaultCols"`
	DefaultRows int `mapstructure:"defaultRows"`

	// PollIntervalMs is the reader poll timeout on the PTY master.
	PollIntervalMs int `mapstructure:"pollIntervalMs"`

	// IdleSleepMs bounds reader CPU usage between poll iterations.
	IdleSleepMs int `mapstructure:"idleSleepMs"`

	// KillGraceMs is the wait between SIGTERM and SIGKILL during teardown.
	KillGraceMs int `mapstructure:"killGraceMs"`

	// SettleDelayMs is the wait after connect before the kickoff prompt is sent.
	// The kickoff delay is applied on top of it. Zero disables the wait.
	SettleDelayMs   int `mapstructure:"settleDelayMs"`
	KickoffDelayMs  int `mapstructure:"kickoffDelayMs"`
	ReceiveWaitMs   int `mapstructure:"receiveWaitMs"`
	OutputChunkSize int `mapstructure:"outputChunkSize"`
}

// SettingsConfig holds the settings store configuration.
type SettingsConfig struct {
	DBPath string `mapstructure:"dbPath"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// ReadTimeoutDuration returns the read timeout as a time.Duration.
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns the write timeout as a time.Duration.
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// PollInterval returns the reader poll timeout as a time.Duration.
func (t *TerminalConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMs) * time.Millisecond
}

// IdleSleep returns the reader idle sleep as a time.Duration.
func (t *TerminalConfig) IdleSleep() time.Duration {
	return time.Duration(t.IdleSleepMs) * time.Millisecond
}

// KillGrace returns the graceful-termination window as a time.Duration.
func (t *TerminalConfig) KillGrace() time.Duration {
	return time.Duration(t.KillGraceMs) * time.Millisecond
}

// SettleDelay returns the post-connect settle delay as a time.Duration.
func (t *TerminalConfig) SettleDelay() time.Duration {
	return time.Duration(t.SettleDelayMs) * time.Millisecond
}

// KickoffDelay returns the pre-kickoff delay as a time.Duration.
func (t *TerminalConfig) KickoffDelay() time.Duration {
	return time.Duration(t.KickoffDelayMs) * time.Millisecond
}

// ReceiveWait returns the message-loop receive timeout as a time.Duration.
func (t *TerminalConfig) ReceiveWait() time.Duration {
	return time.Duration(t.ReceiveWaitMs) * time.Millisecond
}

func detectDefaultLogFormat() string {
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return "json"
	}
	if env := os.Getenv("FINETUNE_ENV"); env == "production" || env == "prod" {
		return "json"
	}
	return "text"
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)

	// NATS defaults - empty URL means use in-memory event bus
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.clientId", "finetune-backend")
	v.SetDefault("nats.maxReconnects", 10)

	// Terminal defaults
	v.SetDefault("terminal.projectsDir", "./projects")
	v.SetDefault("terminal.defaultCols", 80)
	v.SetDefault("terminal.defaultRows", 24)
	v.SetDefault("terminal.pollIntervalMs", 50)
	v.SetDefault("terminal.idleSleepMs", 10)
	v.SetDefault("terminal.killGraceMs", 100)
	v.SetDefault("terminal.settleDelayMs", 2000)
	v.SetDefault("terminal.kickoffDelayMs", 1000)
	v.SetDefault("terminal.receiveWaitMs", 100)
	v.SetDefault("terminal.outputChunkSize", 4096)

	// Settings store defaults
	v.SetDefault("settings.dbPath", "./settings.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", detectDefaultLogFormat())
	v.SetDefault("logging.outputPath", "stdout")
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix FINETUNE_ with snake_case naming.
// Config file should be named config.yaml and placed in the current directory
// or /etc/finetune/.
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("FINETUNE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/finetune/")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// validate checks that all required configuration fields are set.
func validate(cfg *Config) error {
	var errs []string

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	if cfg.Terminal.ProjectsDir == "" {
		errs = append(errs, "terminal.projectsDir is required")
	}
	if cfg.Terminal.DefaultCols <= 0 || cfg.Terminal.DefaultRows <= 0 {
		errs = append(errs, "terminal.defaultCols and terminal.defaultRows must be positive")
	}
	if cfg.Terminal.PollIntervalMs <= 0 {
		errs = append(errs, "terminal.pollIntervalMs must be positive")
	}
	if cfg.Terminal.OutputChunkSize <= 0 {
		errs = append(errs, "terminal.outputChunkSize must be positive")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}

	return nil
}
