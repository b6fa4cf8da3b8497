package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	DatabaseURL    string   `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`

	// Request lifecycle
	RequestTTLSeconds    int `mapstructure:"REQUEST_TTL_SECONDS"`
	SweepIntervalSeconds int `mapstructure:"SWEEP_INTERVAL_SECONDS"`

	// Dependency timeouts
	DirectoryTimeoutMS int `mapstructure:"DIRECTORY_TIMEOUT_MS"`
	AuditTimeoutMS     int `mapstructure:"AUDIT_TIMEOUT_MS"`

	// Recommendation scoring parameters. These are operational policy
	// knobs, not clinical constants; the defaults mirror the values the
	// dispatch desk has been running with.
	EtaMultCritical     float64 `mapstructure:"ETA_MULT_CRITICAL"`
	EtaMultUrgent       float64 `mapstructure:"ETA_MULT_URGENT"`
	EtaMultNormal       float64 `mapstructure:"ETA_MULT_NORMAL"`
	DistanceWeight      float64 `mapstructure:"DISTANCE_WEIGHT"`
	AcceptBoostCritical float64 `mapstructure:"ACCEPT_BOOST_CRITICAL"`
	DoorToTreatBase     int     `mapstructure:"DOOR_TO_TREAT_BASE"`
	DoorToTreatSpread   int     `mapstructure:"DOOR_TO_TREAT_SPREAD"`
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
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TTL_SECONDS", 900)
	v.SetDefault("SWEEP_INTERVAL_SECONDS", 45)
	v.SetDefault("DIRECTORY_TIMEOUT_MS", 2000)
	v.SetDefault("AUDIT_TIMEOUT_MS", 500)
	v.SetDefault("ETA_MULT_CRITICAL", 0.8)
	v.SetDefault("ETA_MULT_URGENT", 1.0)
	v.SetDefault("ETA_MULT_NORMAL", 1.2)
	v.SetDefault("DISTANCE_WEIGHT", 10.0)
	v.SetDefault("ACCEPT_BOOST_CRITICAL", 1.2)
	v.SetDefault("DOOR_TO_TREAT_BASE", 15)
	v.SetDefault("DOOR_TO_TREAT_SPREAD", 30)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("REQUEST_TTL_SECONDS")
	v.BindEnv("SWEEP_INTERVAL_SECONDS")
	v.BindEnv("DIRECTORY_TIMEOUT_MS")
	v.BindEnv("AUDIT_TIMEOUT_MS")
	v.BindEnv("ETA_MULT_CRITICAL")
	v.BindEnv("ETA_MULT_URGENT")
	v.BindEnv("ETA_MULT_NORMAL")
	v.BindEnv("DISTANCE_WEIGHT")
	v.BindEnv("ACCEPT_BOOST_CRITICAL")
	v.BindEnv("DOOR_TO_TREAT_BASE")
	v.BindEnv("DOOR_TO_TREAT_SPREAD")

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

	if cfg.IsDev() {
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active — all requests get dispatcher access.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// RequestTTL returns the default time-to-live for a hospital request.
func (c *Config) RequestTTL() time.Duration {
	return time.Duration(c.RequestTTLSeconds) * time.Second
}

// SweepInterval returns how often the expiry sweeper runs.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// DirectoryTimeout returns the bound on hospital directory reads.
func (c *Config) DirectoryTimeout() time.Duration {
	return time.Duration(c.DirectoryTimeoutMS) * time.Millisecond
}

// AuditTimeout returns the bound on best-effort audit writes.
func (c *Config) AuditTimeout() time.Duration {
	return time.Duration(c.AuditTimeoutMS) * time.Millisecond
}

// Validate checks that the configuration is safe to run. Production mode
// requires a signing key so real JWT authentication is enforced, and the
// scoring parameters must be sane.
func (c *Config) Validate() error {
	if c.IsProduction() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required in production")
	}
	if c.RequestTTLSeconds <= 0 {
		return fmt.Errorf("REQUEST_TTL_SECONDS must be positive, got %d", c.RequestTTLSeconds)
	}
	if c.SweepIntervalSeconds <= 0 {
		return fmt.Errorf("SWEEP_INTERVAL_SECONDS must be positive, got %d", c.SweepIntervalSeconds)
	}
	if c.EtaMultCritical <= 0 || c.EtaMultUrgent <= 0 || c.EtaMultNormal <= 0 {
		return fmt.Errorf("ETA multipliers must be positive")
	}
	if c.AcceptBoostCritical < 1 {
		return fmt.Errorf("ACCEPT_BOOST_CRITICAL must be >= 1, got %v", c.AcceptBoostCritical)
	}
	if c.DoorToTreatBase < 0 || c.DoorToTreatSpread < 0 {
		return fmt.Errorf("door-to-treatment parameters must be non-negative")
	}
	return nil
}
