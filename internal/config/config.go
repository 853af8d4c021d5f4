// Package config loads process-wide gateway configuration from the
// environment. Configuration is read once at startup and passed explicitly;
// nothing reads the environment at request time.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port string `envconfig:"PORT" default:"3000"`

	MonzoAccessToken string `envconfig:"MONZO_ACCESS_TOKEN"`
	MonzoUserID      string `envconfig:"MONZO_USER_ID"`
	MonzoAPIURL      string `envconfig:"MONZO_API_URL" default:"https://api.monzo.com"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	OpenAIAPIURL string `envconfig:"OPENAI_API_URL" default:"https://api.openai.com/v1"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	TLSCertFile string `envconfig:"TLS_CERT_FILE"`
	TLSKeyFile  string `envconfig:"TLS_KEY_FILE"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Configured reports whether both upstream credentials are present. Tool
// execution is refused until they are.
func (c *Config) Configured() bool {
	return c.MonzoAccessToken != "" && c.OpenAIAPIKey != ""
}
