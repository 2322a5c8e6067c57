package respond

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/ent0n29/hibiki/internal/memory"
	"github.com/ent0n29/hibiki/internal/ollama"
	"github.com/ent0n29/hibiki/internal/prompt"
	"github.com/ent0n29/hibiki/internal/reliability"
	"github.com/ent0n29/hibiki/internal/stats"
)

type fakeGenerator struct {
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, p string) (string, error) {
	g.prompts = append(g.prompts, p)
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGenerator) GenerateStream(ctx context.Context, p string, onDelta ollama.DeltaHandler) (string, error) {
	if g.err != nil {
		g.prompts = append(g.prompts, p)
		return "", g.err
	}
	for _, r := range g.reply {
		if err := onDelta(string(r)); err != nil {
			return "", err
		}
	}
	g.prompts = append(g.prompts, p)
	return g.reply, nil
}

func newTestResponder(t *testing.T, gen *fakeGenerator) (*Responder, *memory.Store) {
	t.Helper()
	store := memory.NewStore(nil, zerolog.Nop())
	tracker := stats.NewTracker(filepath.Join(t.TempDir(), "stats.json"), zerolog.Nop())
	return NewResponder(store, prompt.NewComposer(store), gen, tracker, nil, zerolog.Nop()), store
}

func TestRespondRecordsBothTurns(t *testing.T) {
	gen := &fakeGenerator{reply: "やあ"}
	r, store := newTestResponder(t, gen)

	res := r.Respond(context.Background(), "mention", "u1", "こんにちは")
	if res.Fallback {
		t.Fatalf("unexpected fallback: %+v", res)
	}
	if res.Text != "やあ" {
		t.Fatalf("Text = %q", res.Text)
	}

	turns := store.Context("u1")
	if len(turns) != 2 {
		t.Fatalf("recorded %d turns, want 2", len(turns))
	}
	if turns[0].Role != memory.RoleUser || turns[0].Content != "こんにちは" {
		t.Fatalf("turn 0 = %+v", turns[0])
	}
	if turns[1].Role != memory.RoleAssistant || turns[1].Content != "やあ" {
		t.Fatalf("turn 1 = %+v", turns[1])
	}
}

func TestRespondLearnsFromTriggerWord(t *testing.T) {
	gen := &fakeGenerator{reply: "いいですね"}
	r, store := newTestResponder(t, gen)

	r.Respond(context.Background(), "mention", "42", "ラーメンが好きです")

	facts := store.Facts()
	if len(facts) != 1 {
		t.Fatalf("learned %d facts, want 1", len(facts))
	}
	if facts[0].Source != "user_42" {
		t.Fatalf("source = %q, want user_42", facts[0].Source)
	}
	if !strings.Contains(facts[0].Fact, "ラーメンが好きです") {
		t.Fatalf("fact = %q", facts[0].Fact)
	}
}

func TestRespondFailureLeavesHistoryUntouched(t *testing.T) {
	gen := &fakeGenerator{err: reliability.Classified(reliability.ReasonTimeout, errors.New("deadline"))}
	r, store := newTestResponder(t, gen)

	res := r.Respond(context.Background(), "slash", "u1", "質問")
	if !res.Fallback {
		t.Fatal("expected fallback result")
	}
	if res.Reason != reliability.ReasonTimeout {
		t.Fatalf("Reason = %q", res.Reason)
	}
	if res.Text != fallbackTimeout {
		t.Fatalf("Text = %q", res.Text)
	}
	if got := store.Context("u1"); got != nil {
		t.Fatalf("history updated on failure: %v", got)
	}
	if store.FactCount() != 0 {
		t.Fatal("fact learned on failure")
	}
}

func TestRespondUsesComposedPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	r, store := newTestResponder(t, gen)
	store.LearnFact("users love ramen", "user_1")

	r.Respond(context.Background(), "mention", "u1", "次の質問")

	if len(gen.prompts) != 1 {
		t.Fatalf("prompts = %v", gen.prompts)
	}
	p := gen.prompts[0]
	if !strings.Contains(p, "users love ramen") {
		t.Fatalf("prompt missing learned fact:\n%s", p)
	}
	if !strings.Contains(p, "新しい質問: 次の質問") {
		t.Fatalf("prompt missing question line:\n%s", p)
	}
}

func TestRespondDirectUsesGivenPromptVerbatim(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	r, store := newTestResponder(t, gen)
	store.LearnFact("users love ramen", "user_1")

	res := r.RespondDirect(context.Background(), "template", "u1", "質問", "前置き\n\n質問")
	if res.Fallback {
		t.Fatalf("unexpected fallback: %+v", res)
	}

	if len(gen.prompts) != 1 || gen.prompts[0] != "前置き\n\n質問" {
		t.Fatalf("prompts = %v, want the supplied prompt untouched", gen.prompts)
	}
	if strings.Contains(gen.prompts[0], "users love ramen") {
		t.Fatal("memory context leaked into direct prompt")
	}
	if turns := store.Context("u1"); len(turns) != 2 {
		t.Fatalf("recorded %d turns, want 2", len(turns))
	}
}

func TestRespondStreamDeliversFragmentsAndRecords(t *testing.T) {
	gen := &fakeGenerator{reply: "abc"}
	r, store := newTestResponder(t, gen)

	var got []string
	res := r.RespondStream(context.Background(), "mention", "u1", "q", func(d string) error {
		got = append(got, d)
		return nil
	})

	if res.Text != "abc" {
		t.Fatalf("Text = %q", res.Text)
	}
	if len(got) != 3 {
		t.Fatalf("fragments = %v", got)
	}
	if turns := store.Context("u1"); len(turns) != 2 {
		t.Fatalf("recorded %d turns, want 2", len(turns))
	}
}

func TestFallbackTextPerReason(t *testing.T) {
	cases := map[reliability.Reason]string{
		reliability.ReasonTimeout:     fallbackTimeout,
		reliability.ReasonUnavailable: fallbackUnavailable,
		reliability.ReasonBadResponse: fallbackBadResponse,
		reliability.ReasonNone:        fallbackUnknown,
	}
	for reason, want := range cases {
		if got := FallbackText(reason); got != want {
			t.Fatalf("FallbackText(%q) = %q", reason, got)
		}
	}
}
