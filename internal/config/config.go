// Package config loads application configuration from file and environment
// and initializes the global logger.
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
	Thresholds ThresholdsConfig `yaml:"thresholds" mapstructure:"thresholds"`
	ACS        ACSConfig        `yaml:"acs" mapstructure:"acs"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ThresholdsConfig configures base-threshold resolution.
type ThresholdsConfig struct {
	// ProjectionRate is the annual inflation rate compounded onto the
	// latest published threshold for forecast years.
	ProjectionRate float64 `yaml:"projection_rate" mapstructure:"projection_rate"`
	// PublishedXLSX optionally points at a BLS workbook that replaces the
	// embedded published table.
	PublishedXLSX string `yaml:"published_xlsx" mapstructure:"published_xlsx"`
}

// ACSConfig configures the median-rent data source.
type ACSConfig struct {
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	Dataset   string  `yaml:"dataset" mapstructure:"dataset"`
	Key       string  `yaml:"key" mapstructure:"key"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	// SummaryURLTemplate switches bulk loads to the Census FTP archive;
	// verbs {year} and {level} expand per table.
	SummaryURLTemplate string `yaml:"summary_url_template" mapstructure:"summary_url_template"`
	TimeoutSecs        int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// CacheConfig configures the in-process rent-table cache.
type CacheConfig struct {
	MaxTables int `yaml:"max_tables" mapstructure:"max_tables"`
}

// StoreConfig configures the persistent rent-table store.
type StoreConfig struct {
	// Driver is one of none, sqlite, postgres.
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Path        string `yaml:"path" mapstructure:"path"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
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
	v.SetEnvPrefix("SPM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("thresholds.projection_rate", 0.02)
	v.SetDefault("acs.base_url", "https://api.census.gov/data")
	v.SetDefault("acs.dataset", "acs/acs5")
	v.SetDefault("acs.rate_limit", 5)
	v.SetDefault("acs.timeout_secs", 60)
	v.SetDefault("cache.max_tables", 16)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "spm-cache.db")
	v.SetDefault("server.port", 8080)
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
