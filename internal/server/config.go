package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"finanzas-core/internal/config"
	"finanzas-core/pkg/constants"
)

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address      string               `yaml:"address"`
	ReadTimeout  string               `yaml:"readTimeout"`
	WriteTimeout string               `yaml:"writeTimeout"`
	Logging      config.LoggingConfig `yaml:"logging"`

	readTimeout  time.Duration
	writeTimeout time.Duration
}

// LoadConfig loads the server configuration from YAML. If the file does not
// exist, defaults are returned without error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Address:      constants.DefaultServerAddress,
		readTimeout:  5 * time.Second,
		writeTimeout: 10 * time.Second,
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadTimeoutDuration returns the configured read timeout.
func (c *Config) ReadTimeoutDuration() time.Duration { return c.readTimeout }

// WriteTimeoutDuration returns the configured write timeout.
func (c *Config) WriteTimeoutDuration() time.Duration { return c.writeTimeout }

func (c *Config) normalize() error {
	if strings.TrimSpace(c.Address) == "" {
		c.Address = constants.DefaultServerAddress
	}

	if trimmed := strings.TrimSpace(c.ReadTimeout); trimmed != "" {
		parsed, err := time.ParseDuration(trimmed)
		if err != nil {
			return fmt.Errorf("invalid readTimeout %q: %w", c.ReadTimeout, err)
		}
		c.readTimeout = parsed
	}
	if trimmed := strings.TrimSpace(c.WriteTimeout); trimmed != "" {
		parsed, err := time.ParseDuration(trimmed)
		if err != nil {
			return fmt.Errorf("invalid writeTimeout %q: %w", c.WriteTimeout, err)
		}
		c.writeTimeout = parsed
	}

	return nil
}
