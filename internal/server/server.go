// Package server assembles the HTTP server from configuration: database,
// repositories, services, telemetry, and routes.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/habibshah-ds/survay-captcha-saas/internal/captcha"
	captchahandler "github.com/habibshah-ds/survay-captcha-saas/internal/captcha/handler"
	clientrepo "github.com/habibshah-ds/survay-captcha-saas/internal/client/repository"
	"github.com/habibshah-ds/survay-captcha-saas/internal/config"
	"github.com/habibshah-ds/survay-captcha-saas/internal/db"
	"github.com/habibshah-ds/survay-captcha-saas/internal/events"
	"github.com/habibshah-ds/survay-captcha-saas/internal/puzzle"
	"github.com/habibshah-ds/survay-captcha-saas/internal/ratelimit"
	"github.com/habibshah-ds/survay-captcha-saas/internal/risk"
	"github.com/habibshah-ds/survay-captcha-saas/internal/security"
	sessionrepo "github.com/habibshah-ds/survay-captcha-saas/internal/session/repository"
	"github.com/habibshah-ds/survay-captcha-saas/internal/survey"
	surveyrepo "github.com/habibshah-ds/survay-captcha-saas/internal/survey/repository"
	"github.com/habibshah-ds/survay-captcha-saas/internal/telemetry"
	telemetryotel "github.com/habibshah-ds/survay-captcha-saas/internal/telemetry/otel"
	"github.com/habibshah-ds/survay-captcha-saas/internal/token"
)

// Server is the assembled HTTP server plus the resources it owns.
type Server struct {
	Echo *echo.Echo

	cfg      *config.Config
	database *sql.DB
	producer events.Producer
	otel     *telemetryotel.Providers
	log      *logrus.Entry
}

// New builds the server from config. Callers own Run and Shutdown.
func New(ctx context.Context, cfg *config.Config, log *logrus.Entry) (*Server, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set; set it in the environment or .env")
	}
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("parse JWT_PRIVATE_KEY: %w", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("parse JWT_PUBLIC_KEY: %w", err)
	}

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, "survey-captcha", cfg.OTLPInsecure)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	metrics, err := telemetry.NewMetrics(providers.MeterProvider.Meter("survey-captcha"))
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}

	var scorer risk.Scorer = risk.Heuristic{}
	if cfg.RiskPolicy != "" {
		opaScorer, err := risk.NewOPAScorer(ctx, cfg.RiskPolicy, log.Logger)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("risk policy: %w", err)
		}
		scorer = opaScorer
	}

	var producer events.Producer = events.Nop{}
	if brokers := cfg.EventsKafkaBrokersList(); len(brokers) > 0 {
		if kp := events.NewKafkaProducer(brokers, cfg.EventsKafkaTopic, log); kp != nil {
			producer = kp
		}
	}

	sessions := sessionrepo.NewPostgresStore(database)
	questions := surveyrepo.NewPostgresRepository(database)
	clients := clientrepo.NewPostgresRepository(database)

	provider := token.NewProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenLifetime())
	tokens := token.NewService(provider, sessions, log)
	svc := captcha.NewService(
		captcha.Options{
			ChallengeTTL:  cfg.ChallengeLifetime(),
			MinSolveMs:    cfg.MinSolveMs,
			RiskThreshold: cfg.RiskThreshold,
			SurveyStrict:  cfg.SurveyStrict,
		},
		sessions,
		survey.NewSelector(questions),
		puzzle.NewEngine(cfg.DefaultDifficulty),
		scorer,
		tokens,
		producer,
		metrics,
		log,
	)

	var limiter ratelimit.Limiter = ratelimit.Nop{}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		limiter = ratelimit.NewRedis(rdb, cfg.RateLimitPerMinute, time.Minute, log)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	handler := captchahandler.NewCaptchaHandler(svc, clients, cfg.APIKeyPepper, database, log)
	handler.Register(e, ratelimit.Middleware(limiter))

	return &Server{
		Echo:     e,
		cfg:      cfg,
		database: database,
		producer: producer,
		otel:     providers,
		log:      log,
	}, nil
}

// Run listens on the configured address until the server is shut down.
func (s *Server) Run() error {
	s.log.WithField("addr", s.cfg.HTTPAddr).Info("http server listening")
	return s.Echo.Start(s.cfg.HTTPAddr)
}

// Shutdown drains in-flight requests and releases owned resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	if perr := s.producer.Close(); perr != nil && err == nil {
		err = perr
	}
	if oerr := s.otel.Shutdown(ctx); oerr != nil && err == nil {
		err = oerr
	}
	if derr := s.database.Close(); derr != nil && err == nil {
		err = derr
	}
	return err
}
