package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/park285/chess-arena/internal/config"
	"github.com/park285/chess-arena/internal/gateway"
	"github.com/park285/chess-arena/internal/mirror"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/registry"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()

	regOpts := []registry.Option{registry.WithIdleTTL(cfg.MatchTTL())}

	// live-state mirror is optional; the in-memory registry stays
	// authoritative either way
	var mir *mirror.Mirror
	if cfg.RedisURL != "" {
		mir, err = mirror.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("mirror init error: %v", err)
		}
		defer mir.Close()
		regOpts = append(regOpts, registry.WithSink(mir))
		logger.Info("mirror_enabled")
	}

	reg := registry.New(regOpts...)
	defer reg.Close()

	gw := gateway.New(reg, cfg.AllowedOrigins)
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gw.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server_listen", zap.String("addr", cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("server_shutdown", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server_error", zap.Error(err))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("server_shutdown_error", zap.Error(err))
	}
}
