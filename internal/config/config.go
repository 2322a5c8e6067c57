package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains all runtime settings for the bridge service.
type Config struct {
	DiscordToken string `env:"DISCORD_TOKEN"`
	BotPrefix    string `env:"BOT_PREFIX" envDefault:"!"`

	OllamaHost     string        `env:"OLLAMA_HOST" envDefault:"http://localhost:11434"`
	OllamaModel    string        `env:"OLLAMA_MODEL" envDefault:"llama3"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"180s"`
	HealthTimeout  time.Duration `env:"HEALTH_TIMEOUT" envDefault:"5s"`

	MaxResponseLength    int `env:"MAX_RESPONSE_LENGTH" envDefault:"1900"`
	StreamUpdateInterval int `env:"STREAM_UPDATE_INTERVAL" envDefault:"5"`

	VoicevoxHost    string        `env:"VOICEVOX_HOST" envDefault:"http://localhost:50021"`
	VoicevoxTimeout time.Duration `env:"VOICEVOX_TIMEOUT" envDefault:"30s"`
	VoiceSpeed      float64       `env:"VOICE_SPEED" envDefault:"1.2"`

	MemoryFile  string `env:"MEMORY_FILE" envDefault:"bot_memory.json"`
	StatsFile   string `env:"STATS_FILE" envDefault:"bot_stats.json"`
	DatabaseURL string `env:"DATABASE_URL"`

	BridgeBindAddr       string `env:"BRIDGE_BIND_ADDR" envDefault:":8000"`
	BridgeAllowAnyOrigin bool   `env:"BRIDGE_ALLOW_ANY_ORIGIN" envDefault:"false"`
	MetricsNamespace     string `env:"METRICS_NAMESPACE" envDefault:"hibiki"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads environment variables and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that env tags cannot express.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DiscordToken) == "" {
		return fmt.Errorf("DISCORD_TOKEN is not set")
	}
	if c.MaxResponseLength <= 0 {
		return fmt.Errorf("MAX_RESPONSE_LENGTH must be positive")
	}
	if c.StreamUpdateInterval <= 0 {
		return fmt.Errorf("STREAM_UPDATE_INTERVAL must be positive")
	}
	if c.RequestTimeout < time.Second {
		return fmt.Errorf("REQUEST_TIMEOUT must be at least 1s")
	}
	if c.VoiceSpeed < 0.5 || c.VoiceSpeed > 2.0 {
		return fmt.Errorf("VOICE_SPEED must be between 0.5 and 2.0")
	}
	if strings.TrimSpace(c.MemoryFile) == "" {
		return fmt.Errorf("MEMORY_FILE must not be empty")
	}
	return nil
}
