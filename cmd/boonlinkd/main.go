// Command boonlinkd runs the bridge as a standalone HTTP service.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/boonlink/bridge/internal/config"
	"github.com/boonlink/bridge/pkg/boonlink"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("boonlinkd: fatal")
	}
}

func run() error {
	configPath := flag.String("config", os.Getenv("BOONLINK_CONFIG_PATH"), "path to config YAML (optional, env overrides still apply)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	app, err := boonlink.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("build app: %w", err)
	}
	defer func() {
		if closeErr := app.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("boonlinkd: cleanup error")
		}
	}()

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      app.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	serveErrs := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Address).Bool("demo_mode", cfg.DemoMode).Msg("boonlinkd: listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrs <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErrs:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("boonlinkd: shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
