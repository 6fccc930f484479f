package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	API     APIConfig     `yaml:"api" mapstructure:"api"`
	Report  ReportConfig  `yaml:"report" mapstructure:"report"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// APIConfig points at the dashboard's data endpoints.
type APIConfig struct {
	FilterBaseURL string `yaml:"filter_base_url" mapstructure:"filter_base_url"`
	StoresBaseURL string `yaml:"stores_base_url" mapstructure:"stores_base_url"`
	TimeoutSecs   int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RetryAttempts int    `yaml:"retry_attempts" mapstructure:"retry_attempts"`
}

// Timeout returns the HTTP timeout as a duration.
func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// ReportConfig configures the self-service report engine.
type ReportConfig struct {
	PerPage int `yaml:"per_page" mapstructure:"per_page"`
}

// GeocodeConfig configures city geocoding for the store map.
type GeocodeConfig struct {
	GoogleAPIKey     string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	NominatimBaseURL string  `yaml:"nominatim_base_url" mapstructure:"nominatim_base_url"`
	Country          string  `yaml:"country" mapstructure:"country"`
	FallbackLat      float64 `yaml:"fallback_lat" mapstructure:"fallback_lat"`
	FallbackLng      float64 `yaml:"fallback_lng" mapstructure:"fallback_lng"`
	Concurrency      int     `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	TopN             int     `yaml:"top_n" mapstructure:"top_n"`
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
	DisableNominatim bool    `yaml:"disable_nominatim" mapstructure:"disable_nominatim"`
}

// CacheConfig selects the geocode cache backend.
type CacheConfig struct {
	Driver  string `yaml:"driver" mapstructure:"driver"` // none, sqlite, postgres, redis
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
	TTLDays int    `yaml:"ttl_days" mapstructure:"ttl_days"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SALESDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("api.filter_base_url", "http://127.0.0.1:5002")
	v.SetDefault("api.stores_base_url", "http://localhost:5008")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.retry_attempts", 3)
	v.SetDefault("report.per_page", 10)
	v.SetDefault("geocode.google_api_key", "")
	v.SetDefault("geocode.nominatim_base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.country", "India")
	v.SetDefault("geocode.fallback_lat", 20.5937)
	v.SetDefault("geocode.fallback_lng", 78.9629)
	v.SetDefault("geocode.concurrency", 10)
	v.SetDefault("geocode.rate_limit", 10.0)
	v.SetDefault("geocode.top_n", 5)
	v.SetDefault("geocode.breaker_threshold", 5)
	v.SetDefault("geocode.breaker_reset_secs", 30)
	v.SetDefault("geocode.disable_nominatim", false)
	v.SetDefault("cache.driver", "sqlite")
	v.SetDefault("cache.dsn", "salesdash.db")
	v.SetDefault("cache.ttl_days", 90)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:4000"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by the given command mode
// ("report", "map", or "serve").
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Cache.Driver {
	case "none", "sqlite", "postgres", "redis":
	default:
		errs = append(errs, fmt.Sprintf("cache.driver %q is not one of none, sqlite, postgres, redis", c.Cache.Driver))
	}

	switch mode {
	case "report":
		if c.API.FilterBaseURL == "" {
			errs = append(errs, "api.filter_base_url is required")
		}
		if c.Report.PerPage <= 0 {
			errs = append(errs, "report.per_page must be > 0")
		}
	case "map":
		errs = append(errs, c.validateGeocode()...)
	case "serve":
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Report.PerPage <= 0 {
			errs = append(errs, "report.per_page must be > 0")
		}
		errs = append(errs, c.validateGeocode()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateGeocode() []string {
	var errs []string
	if c.Geocode.TopN <= 0 {
		errs = append(errs, "geocode.top_n must be > 0")
	}
	if c.Geocode.Concurrency < 1 || c.Geocode.Concurrency > 100 {
		errs = append(errs, "geocode.concurrency must be between 1 and 100")
	}
	if c.Geocode.FallbackLat < -90 || c.Geocode.FallbackLat > 90 || c.Geocode.FallbackLng < -180 || c.Geocode.FallbackLng > 180 {
		errs = append(errs, "geocode fallback coordinate is out of range")
	}
	if c.Geocode.GoogleAPIKey == "" && c.Geocode.DisableNominatim {
		errs = append(errs, "geocode.google_api_key is required when nominatim is disabled")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
