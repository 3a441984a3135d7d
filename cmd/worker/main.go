// worker sweeps overdue pending challenge sessions to expired on an interval.
// Completion attempts expire sessions lazily; the sweep keeps the table honest
// for sessions nobody ever tried to complete. Set SWEEP_INTERVAL to tune.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/habibshah-ds/survay-captcha-saas/internal/config"
	"github.com/habibshah-ds/survay-captcha-saas/internal/db"
	sessionrepo "github.com/habibshah-ds/survay-captcha-saas/internal/session/repository"
)

const defaultSweepInterval = time.Minute

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	log := logger.WithField("service", "survey-captcha-worker")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; set it in the environment or .env")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer conn.Close()

	interval := defaultSweepInterval
	if raw := os.Getenv("SWEEP_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			interval = d
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("worker shutting down")
		cancel()
	}()

	store := sessionrepo.NewPostgresStore(conn)
	log.WithField("interval", interval.String()).Info("expiry sweep started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("worker stopped")
			return
		case <-ticker.C:
			sweepCtx, sweepCancel := context.WithTimeout(ctx, 30*time.Second)
			n, err := store.ExpireOverdue(sweepCtx, time.Now().UTC())
			sweepCancel()
			if err != nil {
				log.WithError(err).Error("expiry sweep failed")
				continue
			}
			if n > 0 {
				log.WithField("expired", n).Info("swept overdue sessions")
			}
		}
	}
}
