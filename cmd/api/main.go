package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"shop-admin-api/internal"
	"shop-admin-api/internal/config"
	"shop-admin-api/internal/logger"
)

func main() {
	cfg, err := config.LoadAndValidate()
	if err != nil {
		// The logger config lives in cfg, so fall back to the default one.
		logger.New(logger.DefaultConfig()).Fatal("configuration error", zap.Error(err))
	}

	log := logger.New(cfg.Log)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := internal.NewServer(ctx, cfg, log)
	if err != nil {
		log.Fatal("server setup failed", zap.Error(err))
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Info("starting shop admin API",
		zap.String("addr", httpSrv.Addr),
		zap.String("environment", cfg.Environment),
		zap.String("jwt_issuer", cfg.JWTIssuer),
		zap.String("jwt_audience", cfg.JWTAudience),
		zap.Duration("jwt_expiry", cfg.JWTExpiry),
		zap.Bool("metrics", cfg.EnableMetrics),
		zap.Bool("rls", cfg.RLSEnabled),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- httpSrv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", zap.Error(err))
	}
	if err := srv.Close(shutdownCtx); err != nil {
		log.Error("close resources", zap.Error(err))
	}
}
