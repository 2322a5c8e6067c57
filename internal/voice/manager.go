package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ent0n29/hibiki/internal/observability"
	"github.com/ent0n29/hibiki/internal/voicevox"
)

const (
	// maxSpeakRunes bounds a single speech item; longer text is cut and marked.
	maxSpeakRunes    = 200
	truncationMarker = "、以下略"
	defaultCharacter = "zundamon_normal"
	// queueCapacity bounds each guild's speech queue. A backlog this deep is
	// already unlistenable, so further items are dropped with a warning
	// instead of growing the queue without limit.
	queueCapacity     = 64
	queuePollInterval = time.Second
)

// Connection plays a synthesized audio file in a voice channel and blocks
// until playback completes.
type Connection interface {
	Play(ctx context.Context, wavPath string) error
	Close() error
}

type queueItem struct {
	text      string
	character string
	speed     float64
}

type guildState struct {
	conn      Connection
	queue     chan queueItem
	cancel    context.CancelFunc
	done      chan struct{}
	character string
}

// Manager owns per-guild speech queues. Each guild has exactly one consumer
// goroutine, so playback within a guild is strictly serialized while separate
// guilds run in parallel.
type Manager struct {
	mu      sync.Mutex
	guilds  map[string]*guildState
	synth   voicevox.Synthesizer
	log     zerolog.Logger
	metrics *observability.Metrics
	tempDir string
}

func NewManager(synth voicevox.Synthesizer, log zerolog.Logger, metrics *observability.Metrics) *Manager {
	return &Manager{
		guilds:  make(map[string]*guildState),
		synth:   synth,
		log:     log,
		metrics: metrics,
		tempDir: os.TempDir(),
	}
}

// Join binds a playback connection to a guild and starts its consumer loop.
// An existing connection for the guild is torn down first.
func (m *Manager) Join(guildID string, conn Connection) {
	m.disconnect(guildID)

	ctx, cancel := context.WithCancel(context.Background())
	state := &guildState{
		conn:      conn,
		queue:     make(chan queueItem, queueCapacity),
		cancel:    cancel,
		done:      make(chan struct{}),
		character: defaultCharacter,
	}

	m.mu.Lock()
	m.guilds[guildID] = state
	m.mu.Unlock()

	go m.consume(ctx, guildID, state)
	m.log.Info().Str("guild", guildID).Msg("joined voice channel")
}

// Speak enqueues text for playback in a guild. Text beyond the cap is
// truncated with a continuation marker. A warning is logged when the guild
// has no connection.
func (m *Manager) Speak(guildID, text string, speed float64) {
	m.mu.Lock()
	state, ok := m.guilds[guildID]
	var character string
	if ok {
		character = state.character
	}
	m.mu.Unlock()

	if !ok {
		m.log.Warn().Str("guild", guildID).Msg("speak requested without voice connection")
		return
	}

	if runes := []rune(text); len(runes) > maxSpeakRunes {
		text = string(runes[:maxSpeakRunes]) + truncationMarker
	}

	select {
	case state.queue <- queueItem{text: text, character: character, speed: speed}:
		if m.metrics != nil {
			m.metrics.VoiceQueueDepth.WithLabelValues(guildID).Set(float64(len(state.queue)))
		}
	default:
		m.log.Warn().Str("guild", guildID).Msg("voice queue full, dropping item")
	}
}

// Disconnect tears down a guild's connection, cancels its consumer and drops
// the queue wholesale. Idempotent.
func (m *Manager) Disconnect(guildID string) {
	m.disconnect(guildID)
}

// DisconnectAll tears down every guild connection.
func (m *Manager) DisconnectAll() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.guilds))
	for id := range m.guilds {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.disconnect(id)
	}
}

// IsConnected reports whether a guild has a live playback connection.
func (m *Manager) IsConnected(guildID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.guilds[guildID]
	return ok
}

// SetCharacter switches the speech character for a guild. Unknown names are
// rejected.
func (m *Manager) SetCharacter(guildID, character string) bool {
	if _, known := voicevox.Characters[character]; !known {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	state, ok := m.guilds[guildID]
	if !ok {
		return false
	}
	state.character = character
	return true
}

// Character returns the active speech character for a guild.
func (m *Manager) Character(guildID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.guilds[guildID]; ok {
		return state.character
	}
	return defaultCharacter
}

func (m *Manager) disconnect(guildID string) {
	m.mu.Lock()
	state, ok := m.guilds[guildID]
	if ok {
		delete(m.guilds, guildID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	state.cancel()
	<-state.done
	if err := state.conn.Close(); err != nil {
		m.log.Error().Err(err).Str("guild", guildID).Msg("error closing voice connection")
	}
	if m.metrics != nil {
		m.metrics.VoiceQueueDepth.WithLabelValues(guildID).Set(0)
	}
	m.log.Info().Str("guild", guildID).Msg("disconnected from voice channel")
}

// consume drains a guild's queue one item at a time. Playback is strictly
// serialized: the loop blocks until the current item finishes before taking
// the next. A panic while handling one item must not kill the loop.
func (m *Manager) consume(ctx context.Context, guildID string, state *guildState) {
	defer close(state.done)

	ticker := time.NewTicker(queuePollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Liveness recheck; the queue channel wakes us for real work.
			continue
		case it := <-state.queue:
			// Cancellation wins over queued work so a disconnect discards
			// the queue instead of draining it.
			select {
			case <-ctx.Done():
				return
			default:
			}
			m.playItem(ctx, guildID, state, it)
			if m.metrics != nil {
				m.metrics.VoiceQueueDepth.WithLabelValues(guildID).Set(float64(len(state.queue)))
			}
		}
	}
}

func (m *Manager) playItem(ctx context.Context, guildID string, state *guildState, it queueItem) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Str("guild", guildID).Any("panic", r).Msg("recovered panic in voice playback")
		}
	}()

	audio, err := m.synth.Synthesize(ctx, it.text, it.character, it.speed)
	if err != nil {
		m.log.Error().Err(err).Str("guild", guildID).Msg("speech synthesis failed, dropping item")
		return
	}

	path := filepath.Join(m.tempDir, fmt.Sprintf("tts_%s_%s.wav", guildID, uuid.NewString()))
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		m.log.Error().Err(err).Str("guild", guildID).Msg("failed to write audio file")
		return
	}
	defer os.Remove(path)

	if err := state.conn.Play(ctx, path); err != nil {
		m.log.Error().Err(err).Str("guild", guildID).Msg("audio playback failed")
	}
}
