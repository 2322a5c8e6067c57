// Package discord adapts the turn pipeline, memory and voice playback to a
// Discord session: mention replies, slash commands and voice channel readout.
package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/ent0n29/hibiki/internal/config"
	"github.com/ent0n29/hibiki/internal/deliver"
	"github.com/ent0n29/hibiki/internal/memory"
	"github.com/ent0n29/hibiki/internal/observability"
	"github.com/ent0n29/hibiki/internal/ollama"
	"github.com/ent0n29/hibiki/internal/respond"
	"github.com/ent0n29/hibiki/internal/stats"
	"github.com/ent0n29/hibiki/internal/voice"
	"github.com/ent0n29/hibiki/internal/voicevox"
)

type Bot struct {
	cfg       config.Config
	session   *discordgo.Session
	responder *respond.Responder
	store     *memory.Store
	tracker   *stats.Tracker
	pipeline  *deliver.Pipeline
	voices    *voice.Manager
	vv        *voicevox.Client
	llm       *ollama.Client
	metrics   *observability.Metrics
	log       zerolog.Logger

	userID string
}

func NewBot(cfg config.Config, responder *respond.Responder, store *memory.Store, tracker *stats.Tracker, pipeline *deliver.Pipeline, voices *voice.Manager, vv *voicevox.Client, llm *ollama.Client, metrics *observability.Metrics, log zerolog.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("creating discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	b := &Bot{
		cfg:       cfg,
		session:   session,
		responder: responder,
		store:     store,
		tracker:   tracker,
		pipeline:  pipeline,
		voices:    voices,
		vv:        vv,
		llm:       llm,
		metrics:   metrics,
		log:       log,
	}
	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)
	return b, nil
}

// Start opens the gateway connection and registers the slash commands.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("opening discord session: %w", err)
	}
	b.userID = b.session.State.User.ID
	b.log.Info().Str("user_id", b.userID).Msg("discord session started")

	for _, cmd := range commandDefinitions() {
		if _, err := b.session.ApplicationCommandCreate(b.userID, "", cmd); err != nil {
			b.log.Error().Err(err).Str("command", cmd.Name).Msg("failed to register slash command")
		}
	}
	return nil
}

// Stop tears down voice connections and closes the gateway session.
func (b *Bot) Stop() error {
	b.voices.DisconnectAll()
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("closing discord session: %w", err)
	}
	return nil
}
