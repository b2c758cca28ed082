package infra

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the dashboard.
// LoadConfig fills in defaults first, then the yaml file, then environment overrides.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Server struct {
		Listen string `yaml:"listen"`
	} `yaml:"server"`

	API struct {
		CoinGecko struct {
			RestURL    string `yaml:"rest_url"`
			RatePerMin int    `yaml:"rate_per_min"`
		} `yaml:"coingecko"`
		CoinCap struct {
			WSURL            string   `yaml:"ws_url"`
			Assets           []string `yaml:"assets"`
			ReconnectDelayMS int      `yaml:"reconnect_delay_ms"`
			ReconnectPolicy  string   `yaml:"reconnect_policy"`
		} `yaml:"coincap"`
		OpenWeather struct {
			RestURL string `yaml:"rest_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"openweather"`
		NewsData struct {
			RestURL string `yaml:"rest_url"`
			APIKey  string `yaml:"api_key"`
		} `yaml:"newsdata"`
	} `yaml:"api"`

	Dashboard struct {
		DefaultCoins              []string `yaml:"default_coins"`
		CacheTTLSec               int      `yaml:"cache_ttl_sec"`
		PollIntervalSec           int      `yaml:"poll_interval_sec"`
		DebounceMS                int      `yaml:"debounce_ms"`
		RetryDelayMS              int      `yaml:"retry_delay_ms"`
		AlertCheckIntervalSec     int      `yaml:"alert_check_interval_sec"`
		NotificationTTLMS         int      `yaml:"notification_ttl_ms"`
		NotificationLimit         int      `yaml:"notification_limit"`
		SimulateAlerts            bool     `yaml:"simulate_alerts"`
		SimulatedAlertIntervalSec int      `yaml:"simulated_alert_interval_sec"`
		WeatherAlertChance        float64  `yaml:"weather_alert_chance"`
		PredictionJitter          float64  `yaml:"prediction_jitter"`
	} `yaml:"dashboard"`

	Storage struct {
		DBFile string `yaml:"db_file"`
	} `yaml:"storage"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// DefaultConfig returns the configuration used when a key is absent from the file.
func DefaultConfig() *Config {
	var cfg Config
	cfg.App.Name = AppName
	cfg.App.Version = "dev"
	cfg.Server.Listen = ":8080"

	cfg.API.CoinGecko.RestURL = "https://api.coingecko.com/api/v3"
	cfg.API.CoinGecko.RatePerMin = 30
	cfg.API.CoinCap.WSURL = "wss://ws.coincap.io/prices"
	cfg.API.CoinCap.Assets = []string{"bitcoin", "ethereum", "ripple"}
	cfg.API.CoinCap.ReconnectDelayMS = 5000
	cfg.API.CoinCap.ReconnectPolicy = "fixed"
	cfg.API.OpenWeather.RestURL = "https://api.openweathermap.org/data/2.5"
	cfg.API.NewsData.RestURL = "https://newsdata.io/api/1"

	cfg.Dashboard.DefaultCoins = []string{"bitcoin", "ethereum", "ripple", "solana", "cardano"}
	cfg.Dashboard.CacheTTLSec = 60
	cfg.Dashboard.PollIntervalSec = 60
	cfg.Dashboard.DebounceMS = 300
	cfg.Dashboard.RetryDelayMS = 5000
	cfg.Dashboard.AlertCheckIntervalSec = 5
	cfg.Dashboard.NotificationTTLMS = 5000
	cfg.Dashboard.NotificationLimit = 5
	cfg.Dashboard.SimulateAlerts = true
	cfg.Dashboard.SimulatedAlertIntervalSec = 30
	cfg.Dashboard.WeatherAlertChance = 0.1
	cfg.Dashboard.PredictionJitter = 0.5

	cfg.Storage.DBFile = "dashboard.db"
	cfg.Logging.Level = "info"
	cfg.Logging.Format = "text"
	return &cfg
}

// LoadConfig reads and validates the yaml file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	ws := c.API.CoinCap.WSURL
	if !strings.HasPrefix(ws, "ws://") && !strings.HasPrefix(ws, "wss://") {
		return fmt.Errorf("invalid CoinCap WS URL: %q", ws)
	}
	if c.API.CoinGecko.RestURL == "" {
		return errors.New("coingecko rest_url is required")
	}
	if len(c.Dashboard.DefaultCoins) == 0 {
		return errors.New("at least one default coin is required")
	}
	if _, err := ParseBackoffPolicy(c.API.CoinCap.ReconnectPolicy, c.ReconnectDelay()); err != nil {
		return err
	}

	positive := map[string]int{
		"cache_ttl_sec":            c.Dashboard.CacheTTLSec,
		"poll_interval_sec":        c.Dashboard.PollIntervalSec,
		"alert_check_interval_sec": c.Dashboard.AlertCheckIntervalSec,
		"notification_ttl_ms":      c.Dashboard.NotificationTTLMS,
		"notification_limit":       c.Dashboard.NotificationLimit,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.Dashboard.DebounceMS < 0 || c.Dashboard.RetryDelayMS < 0 {
		return errors.New("debounce_ms and retry_delay_ms must not be negative")
	}
	if j := c.Dashboard.PredictionJitter; j < 0 || j > 2 {
		return fmt.Errorf("prediction_jitter %.2f out of range [0, 2]", j)
	}
	if p := c.Dashboard.WeatherAlertChance; p < 0 || p > 1 {
		return fmt.Errorf("weather_alert_chance %.2f out of range [0, 1]", p)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}

func ms(n int) time.Duration  { return time.Duration(n) * time.Millisecond }
func sec(n int) time.Duration { return time.Duration(n) * time.Second }

func (c *Config) CacheTTL() time.Duration           { return sec(c.Dashboard.CacheTTLSec) }
func (c *Config) PollInterval() time.Duration       { return sec(c.Dashboard.PollIntervalSec) }
func (c *Config) Debounce() time.Duration           { return ms(c.Dashboard.DebounceMS) }
func (c *Config) RetryDelay() time.Duration         { return ms(c.Dashboard.RetryDelayMS) }
func (c *Config) AlertCheckInterval() time.Duration { return sec(c.Dashboard.AlertCheckIntervalSec) }
func (c *Config) NotificationTTL() time.Duration    { return ms(c.Dashboard.NotificationTTLMS) }
func (c *Config) ReconnectDelay() time.Duration     { return ms(c.API.CoinCap.ReconnectDelayMS) }

func (c *Config) SimulatedAlertInterval() time.Duration {
	return sec(c.Dashboard.SimulatedAlertIntervalSec)
}

// ReconnectBackoff returns the configured live feed reconnect policy.
func (c *Config) ReconnectBackoff() BackoffPolicy {
	p, err := ParseBackoffPolicy(c.API.CoinCap.ReconnectPolicy, c.ReconnectDelay())
	if err != nil {
		return FixedBackoff(DefaultReconnectDelay)
	}
	return p
}

// LoadDotEnv loads KEY=VALUE pairs from the given files into the process
// environment. Missing files are skipped; variables already set win.
func LoadDotEnv(files ...string) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			slog.Warn("Failed to load env file", slog.String("file", f), slog.Any("error", err))
		}
	}
}

// overrideWithEnv applies API keys from the environment over the file values.
func overrideWithEnv(cfg *Config) {
	if cfg.API.OpenWeather.APIKey != "" || cfg.API.NewsData.APIKey != "" {
		// Using fmt instead of slog: the logger is configured from this config.
		fmt.Println("⚠️  SECURITY WARNING: API keys found in config file.")
		fmt.Println("   Recommendation: use CRYPTODASH_OPENWEATHER_KEY / CRYPTODASH_NEWSDATA_KEY or a .env file")
	}

	if key := firstEnv("CRYPTODASH_OPENWEATHER_KEY", "OPENWEATHER_API_KEY"); key != "" {
		cfg.API.OpenWeather.APIKey = key
	}
	if key := firstEnv("CRYPTODASH_NEWSDATA_KEY", "NEWSDATA_API_KEY"); key != "" {
		cfg.API.NewsData.APIKey = key
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
