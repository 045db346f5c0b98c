package config

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/i474232898/ride-weather-viewer/internal/ride"
)

type AppConfig struct {
	Port string `mapstructure:"PORT"`

	// ServiceURL is the annotation endpoint the form posts to.
	ServiceURL string `mapstructure:"SERVICE_URL"`
	// ServiceHealthURL is pinged by the keep-alive job. Derived from
	// ServiceURL when empty.
	ServiceHealthURL  string        `mapstructure:"SERVICE_HEALTH_URL"`
	HTTPTimeout       time.Duration `mapstructure:"HTTP_TIMEOUT"`
	ServiceMaxRetries int           `mapstructure:"SERVICE_MAX_RETRIES"`
	ServiceRateLimit  float64       `mapstructure:"SERVICE_RATE_LIMIT"` // requests per second
	ServiceRateBurst  int           `mapstructure:"SERVICE_RATE_BURST"`

	// KeepAliveInterval controls how often the service is pinged (0 = never).
	KeepAliveInterval time.Duration `mapstructure:"KEEPALIVE_INTERVAL"`

	StepKm      float64 `mapstructure:"STEP_KM"`
	ChartWidth  int     `mapstructure:"CHART_WIDTH"`
	ChartHeight int     `mapstructure:"CHART_HEIGHT"`
	MapWidth    int     `mapstructure:"MAP_WIDTH"`
	MapHeight   int     `mapstructure:"MAP_HEIGHT"`

	TileURL         string `mapstructure:"TILE_URL"`
	TileAttribution string `mapstructure:"TILE_ATTRIBUTION"`

	MaxUploadBytes int `mapstructure:"MAX_UPLOAD_BYTES"`

	LogLevel    string `mapstructure:"LOG_LEVEL"`
	Environment string `mapstructure:"ENVIRONMENT"`
}

var defaults = map[string]any{
	"PORT":                "8080",
	"SERVICE_URL":         "http://127.0.0.1:8000/ride-weather/",
	"SERVICE_HEALTH_URL":  "",
	"HTTP_TIMEOUT":        "120s",
	"SERVICE_MAX_RETRIES": 0,
	"SERVICE_RATE_LIMIT":  1.0,
	"SERVICE_RATE_BURST":  2,
	"KEEPALIVE_INTERVAL":  "10m",
	"STEP_KM":             ride.DefaultStepKm,
	"CHART_WIDTH":         1200,
	"CHART_HEIGHT":        420,
	"MAP_WIDTH":           800,
	"MAP_HEIGHT":          600,
	"TILE_URL":            "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	"TILE_ATTRIBUTION":    "&copy; OpenStreetMap contributors",
	"MAX_UPLOAD_BYTES":    10 << 20,
	"LOG_LEVEL":           "info",
	"ENVIRONMENT":         "development",
}

// Load reads configuration from the environment (and a .env file, if any)
// with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	return load(viper.New())
}

func load(v *viper.Viper) (*AppConfig, error) {
	v.AutomaticEnv()
	for k, def := range defaults {
		v.SetDefault(k, def)
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ServiceHealthURL == "" {
		cfg.ServiceHealthURL = healthURL(cfg.ServiceURL)
	}
	return cfg, nil
}

func (c *AppConfig) validate() error {
	u, err := url.Parse(c.ServiceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid SERVICE_URL %q", c.ServiceURL)
	}
	if !(c.StepKm > 0) {
		return fmt.Errorf("invalid STEP_KM: %v", c.StepKm)
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 || c.MapWidth <= 0 || c.MapHeight <= 0 {
		return fmt.Errorf("chart and map sizes must be positive")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("invalid HTTP_TIMEOUT: %v", c.HTTPTimeout)
	}
	if c.ServiceMaxRetries < 0 {
		return fmt.Errorf("invalid SERVICE_MAX_RETRIES: %d", c.ServiceMaxRetries)
	}
	if c.KeepAliveInterval < 0 {
		return fmt.Errorf("invalid KEEPALIVE_INTERVAL: %v", c.KeepAliveInterval)
	}
	c.Port = strings.TrimPrefix(c.Port, ":")
	return nil
}

// healthURL is the root of the service: its "/" answers {"status": "ok"}.
func healthURL(serviceURL string) string {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return serviceURL
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}).String()
}
