// Package app wires configuration into the full set of running components.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ent0n29/hibiki/internal/bridge"
	"github.com/ent0n29/hibiki/internal/config"
	"github.com/ent0n29/hibiki/internal/deliver"
	"github.com/ent0n29/hibiki/internal/discord"
	"github.com/ent0n29/hibiki/internal/memory"
	"github.com/ent0n29/hibiki/internal/observability"
	"github.com/ent0n29/hibiki/internal/ollama"
	"github.com/ent0n29/hibiki/internal/prompt"
	"github.com/ent0n29/hibiki/internal/respond"
	"github.com/ent0n29/hibiki/internal/stats"
	"github.com/ent0n29/hibiki/internal/voice"
	"github.com/ent0n29/hibiki/internal/voicevox"
)

type BuildResult struct {
	Config  config.Config
	Bot     *discord.Bot
	Bridge  *bridge.Server
	Store   *memory.Store
	Voices  *voice.Manager
	LLM     *ollama.Client
	Metrics *observability.Metrics

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config, log zerolog.Logger) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	snap, err := memory.NewSnapshotter(ctx, cfg.DatabaseURL, cfg.MemoryFile)
	if err != nil {
		return nil, fmt.Errorf("memory snapshotter init failed: %w", err)
	}

	store := memory.NewStore(snap, log)
	composer := prompt.NewComposer(store)
	tracker := stats.NewTracker(cfg.StatsFile, log)

	llm := ollama.NewClient(cfg.OllamaHost, cfg.OllamaModel, cfg.RequestTimeout, cfg.HealthTimeout)
	if !llm.Healthy(ctx) {
		log.Warn().Str("host", cfg.OllamaHost).Msg("could not reach ollama server")
	}

	vv := voicevox.NewClient(cfg.VoicevoxHost, cfg.VoicevoxTimeout)
	if !vv.Available(ctx) {
		log.Warn().Str("host", cfg.VoicevoxHost).Msg("voicevox not found, voice features will be unavailable")
	}
	voices := voice.NewManager(vv, log, metrics)

	pipeline := deliver.NewPipeline(cfg.MaxResponseLength, log, metrics)
	responder := respond.NewResponder(store, composer, llm, tracker, metrics, log)

	bridgeServer := bridge.New(responder, llm, store, metrics, log, cfg.BridgeAllowAnyOrigin)

	bot, err := discord.NewBot(cfg, responder, store, tracker, pipeline, voices, vv, llm, metrics, log)
	if err != nil {
		_ = snap.Close()
		return nil, fmt.Errorf("discord bot init failed: %w", err)
	}

	cleanup := func() error {
		voices.DisconnectAll()
		if err := snap.Close(); err != nil {
			return fmt.Errorf("closing snapshotter: %w", err)
		}
		return nil
	}

	return &BuildResult{
		Config:  cfg,
		Bot:     bot,
		Bridge:  bridgeServer,
		Store:   store,
		Voices:  voices,
		LLM:     llm,
		Metrics: metrics,
		Cleanup: cleanup,
	}, nil
}
