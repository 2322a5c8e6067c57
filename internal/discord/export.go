package discord

import (
	"errors"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/ent0n29/hibiki/internal/export"
)

// buildExport renders the requested export target into a file attachment.
func (b *Bot) buildExport(target string, user *discordgo.User) (name string, content []byte, message string, err error) {
	now := time.Now()

	switch target {
	case "chat":
		turns := b.store.Context(user.ID)
		if len(turns) == 0 {
			return "", nil, "", errors.New("会話履歴がありません。")
		}
		doc := export.ConversationMarkdown(user.Username, turns, now)
		return "conversation_" + user.Username + ".md", []byte(doc), "📄 会話履歴をエクスポートしました:", nil

	case "memory":
		facts := b.store.Facts()
		if len(facts) == 0 {
			return "", nil, "", errors.New("学習内容がありません。")
		}
		doc, encErr := export.FactsJSON(facts, now)
		if encErr != nil {
			b.log.Error().Err(encErr).Msg("failed to encode facts export")
			return "", nil, "", errors.New("❌ エクスポートに失敗しました。")
		}
		return "memory.json", []byte(doc), "🧠 学習内容をエクスポートしました:", nil

	case "stats":
		doc := export.StatsText(b.tracker.GetSummary(), now)
		return "stats.md", []byte(doc), "📊 統計情報をエクスポートしました:", nil

	default:
		return "", nil, "", errors.New("⚠️ 不明なエクスポート対象です。")
	}
}
