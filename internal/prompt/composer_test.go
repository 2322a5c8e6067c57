package prompt

import (
	"strings"
	"testing"

	"github.com/ent0n29/hibiki/internal/memory"
	"github.com/rs/zerolog"
)

func TestRenderEmptyState(t *testing.T) {
	got := Render(nil, nil, "こんにちは")
	want := "新しい質問: こんにちは"
	if got != want {
		t.Fatalf("Render() = %q, want %q", got, want)
	}
}

func TestRenderWithFactsAndHistory(t *testing.T) {
	facts := []string{"alice likes ramen", "bob lives in osaka"}
	turns := []memory.Turn{
		{Role: memory.RoleUser, Content: "ラーメンが好き"},
		{Role: memory.RoleAssistant, Content: "いいですね"},
	}

	got := Render(facts, turns, "何が好きだっけ？")
	lines := strings.Split(got, "\n")

	if lines[0] != "これまでの会話で学んだこと:" {
		t.Fatalf("line 0 = %q", lines[0])
	}
	if lines[1] != "- alice likes ramen" || lines[2] != "- bob lives in osaka" {
		t.Fatalf("fact lines wrong: %q %q", lines[1], lines[2])
	}
	if lines[3] != "" {
		t.Fatalf("expected blank line after facts, got %q", lines[3])
	}
	if lines[4] != "最近の会話履歴:" {
		t.Fatalf("line 4 = %q", lines[4])
	}
	if lines[5] != "ユーザー: ラーメンが好き" {
		t.Fatalf("line 5 = %q", lines[5])
	}
	if lines[6] != "あなた: いいですね" {
		t.Fatalf("line 6 = %q", lines[6])
	}
	if lines[len(lines)-1] != "新しい質問: 何が好きだっけ？" {
		t.Fatalf("last line = %q", lines[len(lines)-1])
	}
}

func TestRenderLimitsHistoryWindow(t *testing.T) {
	turns := []memory.Turn{
		{Role: memory.RoleUser, Content: "one"},
		{Role: memory.RoleAssistant, Content: "two"},
		{Role: memory.RoleUser, Content: "three"},
		{Role: memory.RoleAssistant, Content: "four"},
		{Role: memory.RoleUser, Content: "five"},
	}

	got := Render(nil, turns, "q")
	if strings.Contains(got, "one") || strings.Contains(got, "two") {
		t.Fatalf("Render() should keep only the last %d turns: %q", historyWindow, got)
	}
	for _, want := range []string{"three", "four", "five"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Render() missing turn %q: %q", want, got)
		}
	}
}

func TestRenderTruncatesTurnContent(t *testing.T) {
	long := strings.Repeat("あ", 150)
	got := Render(nil, []memory.Turn{{Role: memory.RoleUser, Content: long}}, "q")

	for _, line := range strings.Split(got, "\n") {
		if strings.HasPrefix(line, "ユーザー: ") {
			body := strings.TrimPrefix(line, "ユーザー: ")
			if n := len([]rune(body)); n != contentWidth {
				t.Fatalf("turn content = %d runes, want %d", n, contentWidth)
			}
			return
		}
	}
	t.Fatalf("no history line in %q", got)
}

func TestComposerReadsStore(t *testing.T) {
	store := memory.NewStore(nil, zerolog.Nop())
	store.AddTurn("alice", memory.RoleUser, "hello")
	store.LearnFact("alice said hello", "test")

	got := NewComposer(store).Compose("alice", "next question")
	if !strings.Contains(got, "alice said hello") {
		t.Fatalf("Compose() missing fact: %q", got)
	}
	if !strings.Contains(got, "ユーザー: hello") {
		t.Fatalf("Compose() missing history: %q", got)
	}
	if !strings.HasSuffix(got, "新しい質問: next question") {
		t.Fatalf("Compose() should end with the question line: %q", got)
	}
}
