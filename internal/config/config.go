package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port                     string   `mapstructure:"PORT"`
	Env                      string   `mapstructure:"ENV"`
	DatabaseURL              string   `mapstructure:"DATABASE_URL"`
	DBMaxConns               int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns               int32    `mapstructure:"DB_MIN_CONNS"`
	SecretKey                string   `mapstructure:"SECRET_KEY"`
	TokenExpireMinutes       int      `mapstructure:"TOKEN_EXPIRE_MINUTES"`
	CORSOrigins              []string `mapstructure:"CORS_ORIGINS"`
	StoragePath              string   `mapstructure:"STORAGE_PATH"`
	PredictionURL            string   `mapstructure:"PREDICTION_URL"`
	PredictionTimeoutSeconds int      `mapstructure:"PREDICTION_TIMEOUT_SECONDS"`
	RequestTimeoutSeconds    int      `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	RateLimitRPS             float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst           int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("TOKEN_EXPIRE_MINUTES", 600)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("STORAGE_PATH", "./storage")
	v.SetDefault("PREDICTION_TIMEOUT_SECONDS", 5)
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 30)
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("SECRET_KEY")
	v.BindEnv("TOKEN_EXPIRE_MINUTES")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("STORAGE_PATH")
	v.BindEnv("PREDICTION_URL")
	v.BindEnv("PREDICTION_TIMEOUT_SECONDS")
	v.BindEnv("REQUEST_TIMEOUT_SECONDS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.SecretKey == "" {
		cfg.SecretKey = "dev-secret-key-do-not-use-in-production"
		log.Println("WARNING: SECRET_KEY not set; using an insecure development key.")
		log.Println("WARNING: Set SECRET_KEY and ENV=production before deploying.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// TokenTTL returns the lifetime of issued access tokens.
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.TokenExpireMinutes) * time.Minute
}

// PredictionTimeout returns the bound applied to calls to the external
// prediction service.
func (c *Config) PredictionTimeout() time.Duration {
	return time.Duration(c.PredictionTimeoutSeconds) * time.Second
}

// RequestTimeout returns the overall deadline applied to every incoming
// request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Validate checks that the configuration is safe to run. Outside development
// a real SECRET_KEY must be set so that issued tokens can be verified, and a
// prediction endpoint must be configured.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.SecretKey == "" {
			return fmt.Errorf("SECRET_KEY is required when ENV is not development")
		}
		if len(c.SecretKey) < 32 {
			return fmt.Errorf("SECRET_KEY must be at least 32 characters, got %d", len(c.SecretKey))
		}
		if cfgIsPlaceholder(c.SecretKey) {
			return fmt.Errorf("SECRET_KEY looks like a placeholder value; generate a real key")
		}
	}
	if c.PredictionURL == "" && !c.IsDev() {
		return fmt.Errorf("PREDICTION_URL is required when ENV is not development")
	}
	if c.PredictionTimeoutSeconds <= 0 {
		return fmt.Errorf("PREDICTION_TIMEOUT_SECONDS must be positive, got %d", c.PredictionTimeoutSeconds)
	}
	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.RequestTimeoutSeconds)
	}
	return nil
}

func cfgIsPlaceholder(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "changeme") || strings.Contains(lower, "your-secret")
}
