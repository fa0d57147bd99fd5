// Package config loads configuration from config.yaml and REHABDIR_* env
// overrides, and initializes the global logger.
package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Source  SourceConfig  `yaml:"source" mapstructure:"source"`
	Geocode GeocodeConfig `yaml:"geocode" mapstructure:"geocode"`
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// SourceConfig configures the directory listing fetch.
type SourceConfig struct {
	URL         string `yaml:"url" mapstructure:"url"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// GeocodeConfig configures the resolution pipeline.
type GeocodeConfig struct {
	// RatePerSec is the Nominatim request rate. The public instance's
	// fair-use limit is 1 req/s; raise it only against a self-hosted
	// instance.
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CacheWorkers int     `yaml:"cache_workers" mapstructure:"cache_workers"`
	GoogleAPIKey string  `yaml:"google_api_key" mapstructure:"google_api_key"`
	NominatimURL string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
	Progress     bool    `yaml:"progress" mapstructure:"progress"`
}

// CacheConfig configures the geocode cache backend.
type CacheConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // "csv" or "sqlite"
	Path   string `yaml:"path" mapstructure:"path"`
}

// OutputConfig configures the enriched CSV.
type OutputConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
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
	v.SetEnvPrefix("REHABDIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("source.url", "https://www.sira.nsw.gov.au/information-search/rehab-provider/search")
	v.SetDefault("source.user_agent", "rehabdir/1.0")
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("geocode.rate_per_sec", 1.0)
	v.SetDefault("geocode.cache_workers", 8)
	v.SetDefault("geocode.progress", true)
	v.SetDefault("cache.driver", "csv")
	v.SetDefault("cache.path", "geocode_cache.csv")
	v.SetDefault("output.path", "sira_rehab_providers.csv")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

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
