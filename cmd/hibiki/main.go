package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ent0n29/hibiki/internal/app"
	"github.com/ent0n29/hibiki/internal/config"
	"github.com/ent0n29/hibiki/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fallback := logging.Setup("info")
		fallback.Fatal().Err(err).Msg("config error")
	}
	log := logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			log.Error().Err(err).Msg("cleanup failed")
		}
	}()

	if err := result.Bot.Start(); err != nil {
		log.Fatal().Err(err).Msg("discord bot failed to start")
	}

	server := &http.Server{
		Addr:    cfg.BridgeBindAddr,
		Handler: result.Bridge.Router(),
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.BridgeBindAddr).Msg("bridge server listening")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("bridge server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("bridge server shutdown failed")
	}
	if err := result.Bot.Stop(); err != nil {
		log.Error().Err(err).Msg("discord bot shutdown failed")
	}
	log.Info().Msg("shutdown complete")
}
