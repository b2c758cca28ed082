package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SecretConfig matches the structure of secrets/keys.yaml
type SecretConfig struct {
	API struct {
		OpenWeather struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"openweather"`
		NewsData struct {
			APIKey string `yaml:"api_key"`
		} `yaml:"newsdata"`
	} `yaml:"api"`
}

// LoadSecretConfig loads API keys from a separate yaml file.
func LoadSecretConfig(path string) (*SecretConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret config: %w", err)
	}

	var cfg SecretConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse secret config: %w", err)
	}

	return &cfg, nil
}

// ApplyTo fills keys the main config does not already carry.
// Environment variables are applied earlier and therefore win.
func (s *SecretConfig) ApplyTo(cfg *Config) {
	if cfg.API.OpenWeather.APIKey == "" {
		cfg.API.OpenWeather.APIKey = s.API.OpenWeather.APIKey
	}
	if cfg.API.NewsData.APIKey == "" {
		cfg.API.NewsData.APIKey = s.API.NewsData.APIKey
	}
}
