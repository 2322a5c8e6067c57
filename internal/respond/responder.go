// Package respond implements the question-answer turn pipeline shared by the
// Discord surfaces and the bridge.
package respond

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/ent0n29/hibiki/internal/memory"
	"github.com/ent0n29/hibiki/internal/observability"
	"github.com/ent0n29/hibiki/internal/ollama"
	"github.com/ent0n29/hibiki/internal/prompt"
	"github.com/ent0n29/hibiki/internal/reliability"
	"github.com/ent0n29/hibiki/internal/stats"
)

// User-facing strings shown in place of a generated answer when the model
// call fails. The classified reason picks the message; the underlying error
// never reaches the surface.
const (
	fallbackTimeout     = "⏳ モデルの応答がタイムアウトしました。サーバーが起動しているか確認してください。"
	fallbackUnavailable = "⚠️ Ollamaサーバーに接続できません。"
	fallbackBadResponse = "⚠️ Ollama APIとの通信に失敗しました。"
	fallbackUnknown     = "❌ 予期しないエラーが発生しました。"
)

// FallbackText maps a failure reason to its display string.
func FallbackText(reason reliability.Reason) string {
	switch reason {
	case reliability.ReasonTimeout:
		return fallbackTimeout
	case reliability.ReasonUnavailable:
		return fallbackUnavailable
	case reliability.ReasonBadResponse:
		return fallbackBadResponse
	default:
		return fallbackUnknown
	}
}

// Result is the outcome of one turn. When Fallback is set, Text is a display
// string and the turn was NOT recorded in conversation memory.
type Result struct {
	Text     string
	Fallback bool
	Reason   reliability.Reason
}

// Responder runs one question through compose, generate and the memory
// bookkeeping that follows a successful answer.
type Responder struct {
	store    *memory.Store
	composer *prompt.Composer
	gen      ollama.Generator
	tracker  *stats.Tracker
	metrics  *observability.Metrics
	log      zerolog.Logger
}

func NewResponder(store *memory.Store, composer *prompt.Composer, gen ollama.Generator, tracker *stats.Tracker, metrics *observability.Metrics, log zerolog.Logger) *Responder {
	return &Responder{
		store:    store,
		composer: composer,
		gen:      gen,
		tracker:  tracker,
		metrics:  metrics,
		log:      log,
	}
}

// Respond answers one question for a user. On generation failure the
// conversation history is left untouched and a fallback result is returned.
func (r *Responder) Respond(ctx context.Context, surface, userID, question string) Result {
	r.recordQuestion(surface, userID, question)

	text, err := r.gen.Generate(ctx, r.composer.Compose(userID, question))
	if err != nil {
		return r.failed(surface, userID, err)
	}
	return r.succeeded(userID, question, text)
}

// RespondDirect answers with a caller-supplied prompt instead of the
// composed memory context; template surfaces use this. The bookkeeping on
// success and failure matches Respond.
func (r *Responder) RespondDirect(ctx context.Context, surface, userID, question, prompt string) Result {
	r.recordQuestion(surface, userID, question)

	text, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return r.failed(surface, userID, err)
	}
	return r.succeeded(userID, question, text)
}

// RespondStream is Respond with incremental delivery: onDelta observes each
// fragment as it arrives, and the accumulated text gets the same
// post-processing as the blocking path.
func (r *Responder) RespondStream(ctx context.Context, surface, userID, question string, onDelta ollama.DeltaHandler) Result {
	r.recordQuestion(surface, userID, question)

	text, err := r.gen.GenerateStream(ctx, r.composer.Compose(userID, question), onDelta)
	if err != nil {
		return r.failed(surface, userID, err)
	}
	return r.succeeded(userID, question, text)
}

func (r *Responder) recordQuestion(surface, userID, question string) {
	if r.metrics != nil {
		r.metrics.Questions.WithLabelValues(surface).Inc()
	}
	if r.tracker != nil {
		r.tracker.RecordQuestion(userID, question)
	}
}

func (r *Responder) failed(surface, userID string, err error) Result {
	reason := reliability.Classify(err)
	if r.metrics != nil {
		r.metrics.ProviderErrors.WithLabelValues("ollama", string(reason)).Inc()
	}
	r.log.Error().Err(err).
		Str("surface", surface).
		Str("user", userID).
		Str("reason", string(reason)).
		Msg("generation failed")
	return Result{Text: FallbackText(reason), Fallback: true, Reason: reason}
}

func (r *Responder) succeeded(userID, question, text string) Result {
	r.store.AddTurn(userID, memory.RoleUser, question)
	r.store.AddTurn(userID, memory.RoleAssistant, text)

	if fact := memory.ExtractLearnable(question, text); fact != "" {
		r.store.LearnFact(fact, "user_"+userID)
		if r.metrics != nil {
			r.metrics.FactsLearned.Inc()
		}
	}

	if r.tracker != nil {
		r.tracker.RecordResponse(text)
	}
	if r.metrics != nil {
		r.metrics.Responses.Inc()
	}
	return Result{Text: text}
}
