package prompt

import (
	"strings"

	"github.com/ent0n29/hibiki/internal/memory"
)

const (
	factWindow    = 3
	historyWindow = 3
	contentWidth  = 100

	factsPreamble   = "これまでの会話で学んだこと:"
	historyPreamble = "最近の会話履歴:"
	questionLabel   = "新しい質問: "

	userLabel      = "ユーザー"
	assistantLabel = "あなた"
)

// Composer renders the final prompt from store state and a new question.
type Composer struct {
	store *memory.Store
}

func NewComposer(store *memory.Store) *Composer {
	return &Composer{store: store}
}

// Compose builds the prompt for a user's question: recent learned facts, then
// the user's recent turns, then the question itself. Deterministic given store
// state, no side effects.
func (c *Composer) Compose(userID, question string) string {
	return Render(c.store.RecentFacts(factWindow), c.store.Context(userID), question)
}

// Render is the pure assembly step behind Compose.
func Render(facts []string, turns []memory.Turn, question string) string {
	var parts []string

	if len(facts) > 0 {
		parts = append(parts, factsPreamble)
		for _, fact := range facts {
			parts = append(parts, "- "+fact)
		}
		parts = append(parts, "")
	}

	if len(turns) > 0 {
		if len(turns) > historyWindow {
			turns = turns[len(turns)-historyWindow:]
		}
		parts = append(parts, historyPreamble)
		for _, turn := range turns {
			label := userLabel
			if turn.Role == memory.RoleAssistant {
				label = assistantLabel
			}
			parts = append(parts, label+": "+truncateRunes(turn.Content, contentWidth))
		}
		parts = append(parts, "")
	}

	parts = append(parts, questionLabel+question)
	return strings.Join(parts, "\n")
}

func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
