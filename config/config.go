// Package config provides configuration management for the application.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	NWS     NWSConfig     `mapstructure:"nws"`
	Geocode GeocodeConfig `mapstructure:"geocode"`
	OpenUV  OpenUVConfig  `mapstructure:"openuv"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string `mapstructure:"port"`
	AdminKey       string `mapstructure:"admin_key"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`
}

// NWSConfig holds National Weather Service API configuration
type NWSConfig struct {
	BaseURL string `mapstructure:"base_url"`
	// UserAgent identifies the application to api.weather.gov, which
	// requires one on every request.
	UserAgent string `mapstructure:"user_agent"`
}

// GeocodeConfig holds ZIP geocoding API configuration
type GeocodeConfig struct {
	BaseURL string `mapstructure:"base_url"`
}

// OpenUVConfig holds the optional UV index provider configuration.
// An empty API key disables the provider.
type OpenUVConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// RefreshConfig holds background refresh scheduler configuration
type RefreshConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// CacheConfig holds cache tuning configuration
type CacheConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// TrackedZIPsFile persists the tracked-ZIP set across restarts.
	// Empty keeps the set in memory only.
	TrackedZIPsFile string `mapstructure:"tracked_zips_file"`
}

// LoggingConfig holds log output configuration
type LoggingConfig struct {
	// Format is "json", "pretty" or "auto" (pretty on a terminal,
	// JSON otherwise).
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	// Load .env file using Viper (optional, won't fail if not found)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if .env file doesn't exist

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("NWS_USER_AGENT", "weathergo (github.com/weathergo)")
	viper.SetDefault("REFRESH_INTERVAL", "5m")
	viper.SetDefault("CACHE_SWEEP_INTERVAL", "1m")
	viper.SetDefault("TRACKED_ZIPS_FILE", "data/tracked_zips.json")
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("LOG_FORMAT", "auto")

	// Enable automatic environment variable reading
	viper.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port:           viper.GetString("PORT"),
			AdminKey:       viper.GetString("ADMIN_KEY"),
			MetricsEnabled: viper.GetBool("METRICS_ENABLED"),
		},
		NWS: NWSConfig{
			BaseURL:   viper.GetString("NWS_BASE_URL"),
			UserAgent: viper.GetString("NWS_USER_AGENT"),
		},
		Geocode: GeocodeConfig{
			BaseURL: viper.GetString("GEOCODE_BASE_URL"),
		},
		OpenUV: OpenUVConfig{
			APIKey:  viper.GetString("OPENUV_API_KEY"),
			BaseURL: viper.GetString("OPENUV_BASE_URL"),
		},
		Refresh: RefreshConfig{
			Interval: viper.GetDuration("REFRESH_INTERVAL"),
		},
		Cache: CacheConfig{
			SweepInterval:   viper.GetDuration("CACHE_SWEEP_INTERVAL"),
			TrackedZIPsFile: viper.GetString("TRACKED_ZIPS_FILE"),
		},
		Logging: LoggingConfig{
			Format: viper.GetString("LOG_FORMAT"),
		},
	}

	return cfg, nil
}
