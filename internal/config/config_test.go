package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.JWTIssuer != "survey-captcha" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "survey-captcha")
	}
	if cfg.JWTAudience != "survey-captcha-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "survey-captcha-api")
	}
	if cfg.MinSolveMs != 300 {
		t.Errorf("MinSolveMs = %d, want 300", cfg.MinSolveMs)
	}
	if cfg.RiskThreshold != 50 {
		t.Errorf("RiskThreshold = %d, want 50", cfg.RiskThreshold)
	}
	if cfg.DefaultDifficulty != 3 {
		t.Errorf("DefaultDifficulty = %d, want 3", cfg.DefaultDifficulty)
	}
	if cfg.SurveyStrict {
		t.Error("SurveyStrict should default to false")
	}
	if cfg.RateLimitPerMinute != 60 {
		t.Errorf("RateLimitPerMinute = %d, want 60", cfg.RateLimitPerMinute)
	}
	if cfg.EventsKafkaTopic != "captcha-events" {
		t.Errorf("EventsKafkaTopic = %q, want %q", cfg.EventsKafkaTopic, "captcha-events")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("MIN_SOLVE_MS", "500")
	os.Setenv("RISK_THRESHOLD", "70")
	os.Setenv("SURVEY_STRICT", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.MinSolveMs != 500 {
		t.Errorf("MinSolveMs = %d, want 500", cfg.MinSolveMs)
	}
	if cfg.RiskThreshold != 70 {
		t.Errorf("RiskThreshold = %d, want 70", cfg.RiskThreshold)
	}
	if !cfg.SurveyStrict {
		t.Error("SurveyStrict should be true")
	}
}

func TestLoad_RejectsInvalidThreshold(t *testing.T) {
	os.Clearenv()
	os.Setenv("RISK_THRESHOLD", "0")

	if _, err := Load(); err == nil {
		t.Error("Load should reject RISK_THRESHOLD=0")
	}

	os.Setenv("RISK_THRESHOLD", "101")
	if _, err := Load(); err == nil {
		t.Error("Load should reject RISK_THRESHOLD=101")
	}
}

func TestLoad_RejectsInvalidDifficulty(t *testing.T) {
	os.Clearenv()
	os.Setenv("DEFAULT_DIFFICULTY", "0")

	if _, err := Load(); err == nil {
		t.Error("Load should reject DEFAULT_DIFFICULTY=0")
	}
}

func TestLoad_RequiresPepperInProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Error("Load should require API_KEY_PEPPER when APP_ENV=production")
	}

	os.Setenv("API_KEY_PEPPER", "pepper-value")
	if _, err := Load(); err != nil {
		t.Errorf("Load with pepper set: %v", err)
	}
}

func TestLifetimes(t *testing.T) {
	cfg := &Config{ChallengeTTL: "5m", TokenTTL: "2m"}
	if got := cfg.ChallengeLifetime(); got != 5*time.Minute {
		t.Errorf("ChallengeLifetime = %v, want 5m", got)
	}
	if got := cfg.TokenLifetime(); got != 2*time.Minute {
		t.Errorf("TokenLifetime = %v, want 2m", got)
	}

	cfg = &Config{ChallengeTTL: "garbage", TokenTTL: ""}
	if got := cfg.ChallengeLifetime(); got != 10*time.Minute {
		t.Errorf("ChallengeLifetime fallback = %v, want 10m", got)
	}
	if got := cfg.TokenLifetime(); got != 10*time.Minute {
		t.Errorf("TokenLifetime fallback = %v, want 10m", got)
	}
}

func TestEventsKafkaBrokersList(t *testing.T) {
	cfg := &Config{EventsKafkaBrokers: "localhost:9092, broker-2:9092 ,"}
	got := cfg.EventsKafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker-2:9092" {
		t.Errorf("EventsKafkaBrokersList = %v", got)
	}

	cfg = &Config{}
	if got := cfg.EventsKafkaBrokersList(); got != nil {
		t.Errorf("empty brokers should return nil, got %v", got)
	}
}
