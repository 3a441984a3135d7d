package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/habibshah-ds/survay-captcha-saas/internal/config"
	"github.com/habibshah-ds/survay-captcha-saas/internal/server"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	log := logger.WithField("service", "survey-captcha")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config")
	}
	if cfg.Env != "production" {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx := context.Background()
	srv, err := server.New(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("assemble server")
	}

	go func() {
		if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
	log.Info("http server stopped")
}
