// Package export renders memory and usage data into shareable documents.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ent0n29/hibiki/internal/memory"
	"github.com/ent0n29/hibiki/internal/stats"
)

const timestampLayout = "2006年01月02日 15:04"

// ConversationMarkdown renders a user's conversation history as a Markdown
// document, one numbered section per turn.
func ConversationMarkdown(userName string, turns []memory.Turn, now time.Time) string {
	var b strings.Builder
	b.WriteString("# 会話履歴\n\n")
	fmt.Fprintf(&b, "**ユーザー:** %s\n", userName)
	fmt.Fprintf(&b, "**日時:** %s\n\n---\n\n", now.Format(timestampLayout))

	for i, turn := range turns {
		role := "👤 あなた"
		if turn.Role == memory.RoleAssistant {
			role = "🤖 Bot"
		}
		fmt.Fprintf(&b, "## %d. %s\n", i+1, role)
		if !turn.CreatedAt.IsZero() {
			fmt.Fprintf(&b, "*%s*\n", turn.CreatedAt.Format(time.RFC3339))
		}
		b.WriteString("\n")
		b.WriteString(turn.Content)
		b.WriteString("\n\n---\n\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

type factsDocument struct {
	ExportDate time.Time     `json:"export_date"`
	TotalFacts int           `json:"total_facts"`
	Facts      []memory.Fact `json:"facts"`
}

// FactsJSON renders the learned facts list as an indented JSON document.
func FactsJSON(facts []memory.Fact, now time.Time) (string, error) {
	doc := factsDocument{
		ExportDate: now,
		TotalFacts: len(facts),
		Facts:      facts,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding facts export: %w", err)
	}
	return string(data), nil
}

// StatsText renders a usage summary as formatted Markdown text.
func StatsText(s stats.Summary, now time.Time) string {
	var b strings.Builder
	b.WriteString("# 📊 Bot統計情報\n\n")
	fmt.Fprintf(&b, "**生成日時:** %s\n\n", now.Format(timestampLayout))
	b.WriteString("## 基本統計\n")
	fmt.Fprintf(&b, "- **総質問数:** %d\n", s.TotalQuestions)
	fmt.Fprintf(&b, "- **今日の質問数:** %d\n", s.QuestionsToday)
	fmt.Fprintf(&b, "- **総応答数:** %d\n", s.TotalResponses)
	fmt.Fprintf(&b, "- **ユニークユーザー数:** %d\n", s.UniqueUsers)
	fmt.Fprintf(&b, "- **推定トークン数:** %d", s.TotalTokens)
	return b.String()
}
