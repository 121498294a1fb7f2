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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Geofence  GeofenceConfig  `yaml:"geofence" mapstructure:"geofence"`
	Wage      WageConfig      `yaml:"wage" mapstructure:"wage"`
	SMTP      SMTPConfig      `yaml:"smtp" mapstructure:"smtp"`
	Uploads   UploadsConfig   `yaml:"uploads" mapstructure:"uploads"`
	Territory TerritoryConfig `yaml:"territory" mapstructure:"territory"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins  []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	RateLimitPerSec float64  `yaml:"rate_limit_per_sec" mapstructure:"rate_limit_per_sec"`
	RateLimitBurst  int      `yaml:"rate_limit_burst" mapstructure:"rate_limit_burst"`
}

// AuthConfig configures JWT issuance.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours" mapstructure:"token_ttl_hours"`
	VerifyTTLHrs  int    `yaml:"verify_ttl_hours" mapstructure:"verify_ttl_hours"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
}

// GeofenceConfig configures the site-presence check.
type GeofenceConfig struct {
	RadiusMeters float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
}

// WageConfig holds the wage calculation rates.
type WageConfig struct {
	RatePerMile     float64 `yaml:"rate_per_mile" mapstructure:"rate_per_mile"`
	AllowancePerJob float64 `yaml:"allowance_per_job" mapstructure:"allowance_per_job"`
}

// SMTPConfig configures outbound mail. An empty host disables real delivery
// and falls back to the log mailer.
type SMTPConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	From     string `yaml:"from" mapstructure:"from"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// UploadsConfig configures photo uploads.
type UploadsConfig struct {
	Dir      string `yaml:"dir" mapstructure:"dir"`
	MaxBytes int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// TerritoryConfig points at the optional service-territory shapefile.
type TerritoryConfig struct {
	ShapefilePath string `yaml:"shapefile_path" mapstructure:"shapefile_path"`
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
	v.SetEnvPrefix("METERMATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "metermate.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.rate_limit_per_sec", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("auth.verify_ttl_hours", 48)
	v.SetDefault("auth.base_url", "http://localhost:8080")
	v.SetDefault("geofence.radius_meters", 10)
	v.SetDefault("wage.rate_per_mile", 0.50)
	v.SetDefault("wage.allowance_per_job", 1.00)
	v.SetDefault("smtp.port", 587)
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.max_bytes", 10<<20)
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
