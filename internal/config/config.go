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
	Dedupe DedupeConfig `yaml:"dedupe" mapstructure:"dedupe"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// DedupeConfig tunes the deduplication pipeline. The defaults are a starting
// point, not calibrated constants; they should be revisited against a labeled
// sample of known duplicates.
type DedupeConfig struct {
	MatchThreshold   float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
	NameWeight       float64 `yaml:"name_weight" mapstructure:"name_weight"`
	AddressWeight    float64 `yaml:"address_weight" mapstructure:"address_weight"`
	PhoneWeight      float64 `yaml:"phone_weight" mapstructure:"phone_weight"`
	GeoWeight        float64 `yaml:"geo_weight" mapstructure:"geo_weight"`
	GeoCutoffMiles   float64 `yaml:"geo_cutoff_miles" mapstructure:"geo_cutoff_miles"`
	ClusterSizeGuard int     `yaml:"cluster_size_guard" mapstructure:"cluster_size_guard"`
	Workers          int     `yaml:"workers" mapstructure:"workers"`
	RulesPath        string  `yaml:"rules_path" mapstructure:"rules_path"`
}

// StoreConfig configures the snapshot database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the read-only directory server.
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
	v.SetEnvPrefix("DIRCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "dirctl.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("dedupe.match_threshold", 0.75)
	v.SetDefault("dedupe.name_weight", 0.4)
	v.SetDefault("dedupe.address_weight", 0.3)
	v.SetDefault("dedupe.phone_weight", 0.2)
	v.SetDefault("dedupe.geo_weight", 0.1)
	v.SetDefault("dedupe.geo_cutoff_miles", 5.0)
	v.SetDefault("dedupe.cluster_size_guard", 8)
	v.SetDefault("dedupe.workers", 4)

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

	if err := cfg.Dedupe.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects unusable tuning values before any processing starts, so a
// bad configuration never produces partial output.
func (c DedupeConfig) Validate() error {
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return eris.Errorf("config: match_threshold %v outside [0,1]", c.MatchThreshold)
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"name_weight", c.NameWeight},
		{"address_weight", c.AddressWeight},
		{"phone_weight", c.PhoneWeight},
		{"geo_weight", c.GeoWeight},
	} {
		if w.value < 0 {
			return eris.Errorf("config: %s %v is negative", w.name, w.value)
		}
	}
	if c.NameWeight+c.AddressWeight+c.PhoneWeight+c.GeoWeight == 0 {
		return eris.New("config: all similarity weights are zero")
	}
	if c.GeoCutoffMiles <= 0 {
		return eris.Errorf("config: geo_cutoff_miles %v must be positive", c.GeoCutoffMiles)
	}
	if c.ClusterSizeGuard < 2 {
		return eris.Errorf("config: cluster_size_guard %d must be at least 2", c.ClusterSizeGuard)
	}
	if c.Workers < 1 {
		return eris.Errorf("config: workers %d must be at least 1", c.Workers)
	}
	return nil
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
