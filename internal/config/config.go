package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port            string   `mapstructure:"PORT"`
	Env             string   `mapstructure:"ENV"`
	DatabaseURL     string   `mapstructure:"DATABASE_URL"`
	DBMaxConns      int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns      int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins     []string `mapstructure:"CORS_ORIGINS"`
	AuthSecret      string   `mapstructure:"AUTH_SECRET"`
	RateLimitRPS    float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst  int      `mapstructure:"RATE_LIMIT_BURST"`
	AIAPIURL        string   `mapstructure:"AI_API_URL"`
	AIAPIKey        string   `mapstructure:"AI_API_KEY"`
	AIModel         string   `mapstructure:"AI_MODEL"`
	AICacheTTLHours int      `mapstructure:"AI_CACHE_TTL_HOURS"`
	ReminderWindowH int      `mapstructure:"REMINDER_WINDOW_HOURS"`
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
	v.SetDefault("AI_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_CACHE_TTL_HOURS", 168)
	v.SetDefault("REMINDER_WINDOW_HOURS", 24)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SECRET")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("AI_API_URL")
	v.BindEnv("AI_API_KEY")
	v.BindEnv("AI_MODEL")
	v.BindEnv("AI_CACHE_TTL_HOURS")
	v.BindEnv("REMINDER_WINDOW_HOURS")

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
		log.Println("WARNING: server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: DevAuthMiddleware is active, all requests get admin access.")
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

// Validate checks that the configuration is safe to run. Outside development,
// a signing secret is mandatory, and AI generation requires an endpoint and
// key when enabled.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSecret == "" {
		return fmt.Errorf("AUTH_SECRET is required when ENV is not development")
	}
	if !c.IsDev() && len(c.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be at least 32 bytes, got %d", len(c.AuthSecret))
	}
	if c.AIAPIURL != "" && c.AIAPIKey == "" {
		return fmt.Errorf("AI_API_KEY is required when AI_API_URL is set")
	}
	if c.AICacheTTLHours <= 0 {
		return fmt.Errorf("AI_CACHE_TTL_HOURS must be positive, got %d", c.AICacheTTLHours)
	}
	return nil
}

// AIEnabled reports whether the AI content service is configured.
func (c *Config) AIEnabled() bool {
	return c.AIAPIURL != "" && c.AIAPIKey != ""
}
