package config

import (
	"os"
	"time"

	"github.com/ingabireol/bizclient/pkg/connection"
	"github.com/ingabireol/bizclient/pkg/errors"
	"github.com/ingabireol/bizclient/pkg/logging"

	"gopkg.in/yaml.v3"
)

// ClientConfig represents the top-level configuration file structure.
type ClientConfig struct {
	Client ClientConfigOptions `yaml:"client"`
}

// ClientConfigOptions represents client-level configuration.
type ClientConfigOptions struct {
	DirectoryURL     string             `yaml:"directory_url"`
	DirectoryTimeout time.Duration      `yaml:"directory_timeout,omitempty"`
	HTTPTimeout      time.Duration      `yaml:"http_timeout,omitempty"`
	LogLevel         string             `yaml:"log_level,omitempty"`
	HandlePolicy     HandlePolicyConfig `yaml:"handle_policy,omitempty"`
	Reconnect        ReconnectConfig    `yaml:"reconnect,omitempty"`
}

// HandlePolicyConfig configures cached-handle staleness. The zero value keeps
// handles until explicit invalidation.
type HandlePolicyConfig struct {
	TTL       time.Duration `yaml:"ttl,omitempty"`
	PingOnGet bool          `yaml:"ping_on_get,omitempty"`
}

// ReconnectConfig configures the reconnect backoff.
type ReconnectConfig struct {
	InitialInterval time.Duration `yaml:"initial_interval,omitempty"`
	MaxAttempts     uint64        `yaml:"max_attempts,omitempty"`
}

// LoadConfigFromFile loads client configuration from a YAML file.
func LoadConfigFromFile(filename string) (*ClientConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.NewIOError("failed to read configuration file", err).
			WithContext("filename", filename)
	}

	var config ClientConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.NewValidationError("failed to parse YAML configuration", err).
			WithContext("filename", filename)
	}

	setConfigDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ValidateConfig validates the configuration structure.
func ValidateConfig(config *ClientConfig) error {
	if config == nil {
		return errors.NewValidationError("configuration cannot be nil", nil)
	}
	if config.Client.DirectoryURL == "" {
		return errors.NewValidationError("directory_url is required", nil)
	}
	if config.Client.DirectoryTimeout < 0 || config.Client.HTTPTimeout < 0 {
		return errors.NewValidationError("timeouts cannot be negative", nil)
	}
	if config.Client.HandlePolicy.TTL < 0 {
		return errors.NewValidationError("handle_policy.ttl cannot be negative", nil)
	}
	switch config.Client.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.NewValidationError("invalid log level", nil).
			WithContext("log_level", config.Client.LogLevel)
	}
	return nil
}

// ManagerOptions converts the configuration into connection manager options.
func (c *ClientConfig) ManagerOptions(logger logging.Logger) connection.ManagerOptions {
	return connection.ManagerOptions{
		DirectoryURL:     c.Client.DirectoryURL,
		DirectoryTimeout: c.Client.DirectoryTimeout,
		Dial: connection.DialOptions{
			HTTPTimeout: c.Client.HTTPTimeout,
		},
		Policy: connection.StalenessPolicy{
			TTL:       c.Client.HandlePolicy.TTL,
			PingOnGet: c.Client.HandlePolicy.PingOnGet,
		},
		ReconnectInitialInterval: c.Client.Reconnect.InitialInterval,
		ReconnectMaxAttempts:     c.Client.Reconnect.MaxAttempts,
		Logger:                   logger,
	}
}

func setConfigDefaults(config *ClientConfig) {
	if config.Client.DirectoryURL == "" {
		config.Client.DirectoryURL = "tcp://127.0.0.1:18099"
	}
	if config.Client.DirectoryTimeout == 0 {
		config.Client.DirectoryTimeout = 5 * time.Second
	}
	if config.Client.HTTPTimeout == 0 {
		config.Client.HTTPTimeout = 30 * time.Second
	}
	if config.Client.LogLevel == "" {
		config.Client.LogLevel = "info"
	}
	if config.Client.Reconnect.InitialInterval == 0 {
		config.Client.Reconnect.InitialInterval = 500 * time.Millisecond
	}
	if config.Client.Reconnect.MaxAttempts == 0 {
		config.Client.Reconnect.MaxAttempts = 5
	}
}
