// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for server and migrate.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; signs proof tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; verifies proof tokens.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim on proof tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim on proof tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// APIKeyPepper keys the HMAC used to hash client API keys for lookup. Required in production.
	APIKeyPepper string `mapstructure:"API_KEY_PEPPER"`
	// ChallengeTTL is the challenge session lifetime (e.g. "10m").
	ChallengeTTL string `mapstructure:"CHALLENGE_TTL"`
	// TokenTTL is the proof token lifetime (e.g. "10m").
	TokenTTL string `mapstructure:"TOKEN_TTL"`
	// MinSolveMs is the minimum accepted solve time in milliseconds; faster completions fail as too_fast.
	MinSolveMs int64 `mapstructure:"MIN_SOLVE_MS"`
	// RiskThreshold is the risk score (0-100) at or above which a completion is rejected.
	RiskThreshold int `mapstructure:"RISK_THRESHOLD"`
	// DefaultDifficulty is the number of leading hex zeros required when a client sends no difficulty.
	DefaultDifficulty int `mapstructure:"DEFAULT_DIFFICULTY"`
	// SurveyStrict, when true, rejects completions whose survey answer fails shape validation.
	// When false (default) an invalid or missing answer only feeds the risk score.
	SurveyStrict bool `mapstructure:"SURVEY_STRICT"`
	// RiskPolicy is an optional Rego policy source (inline or file path) for risk scoring.
	// Empty selects the built-in heuristic scorer.
	RiskPolicy string `mapstructure:"RISK_POLICY"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// RedisAddr enables the best-effort per-IP rate limiter when set (e.g. localhost:6379).
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis auth password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RateLimitPerMinute is the per-key request budget for the rate limiter.
	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	// EventsKafkaBrokers is a comma-separated broker list; when set, challenge events are produced to Kafka.
	EventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for challenge events.
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`

	// OTLPEndpoint enables OTLP metric export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "survey-captcha")
	v.SetDefault("JWT_AUDIENCE", "survey-captcha-api")
	v.SetDefault("API_KEY_PEPPER", "")
	v.SetDefault("CHALLENGE_TTL", "10m")
	v.SetDefault("TOKEN_TTL", "10m")
	v.SetDefault("MIN_SOLVE_MS", 300)
	v.SetDefault("RISK_THRESHOLD", 50)
	v.SetDefault("DEFAULT_DIFFICULTY", 3)
	v.SetDefault("SURVEY_STRICT", false)
	v.SetDefault("RISK_POLICY", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 60)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "captcha-events")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.MinSolveMs < 0 {
		return nil, errors.New("config: MIN_SOLVE_MS must not be negative")
	}
	if cfg.RiskThreshold < 1 || cfg.RiskThreshold > 100 {
		return nil, errors.New("config: RISK_THRESHOLD must be between 1 and 100")
	}
	if cfg.DefaultDifficulty < 1 {
		return nil, errors.New("config: DEFAULT_DIFFICULTY must be at least 1")
	}
	if cfg.Env == "production" && cfg.APIKeyPepper == "" {
		return nil, errors.New("config: API_KEY_PEPPER must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// ChallengeLifetime parses ChallengeTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) ChallengeLifetime() time.Duration {
	d, err := time.ParseDuration(c.ChallengeTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// TokenLifetime parses TokenTTL as a time.Duration. Returns 10m if unset or invalid.
func (c *Config) TokenLifetime() time.Duration {
	d, err := time.ParseDuration(c.TokenTTL)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// EventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the event producer is enabled (non-empty list) and to create it.
func (c *Config) EventsKafkaBrokersList() []string {
	if c == nil || c.EventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.EventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
