package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/ent0n29/hibiki/internal/deliver"
)

const emptyMentionReply = "💬 何か話しかけてね！"

// stripMention removes every mention token for the given user from content.
func stripMention(content, userID string) string {
	content = strings.ReplaceAll(content, "<@"+userID+">", "")
	content = strings.ReplaceAll(content, "<@!"+userID+">", "")
	return strings.TrimSpace(content)
}

func mentionsUser(msg *discordgo.Message, userID string) bool {
	for _, u := range msg.Mentions {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// onMessageCreate answers messages that mention the bot. The reply streams
// into a single message that is edited as fragments arrive; when the final
// text is longer than one message, the overflow goes out as extra reply
// chunks.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author.Bot || m.Author.ID == b.userID {
		return
	}
	if !mentionsUser(m.Message, b.userID) {
		return
	}

	question := stripMention(m.Content, b.userID)
	if question == "" {
		target := &messageReply{session: s, msg: m.Message}
		if err := target.SendReply(context.Background(), emptyMentionReply, true); err != nil {
			b.log.Error().Err(err).Msg("failed to send empty-mention reply")
		}
		return
	}

	b.log.Info().Str("user", m.Author.Username).Str("question", truncateForLog(question)).Msg("mention received")
	_ = s.ChannelTyping(m.ChannelID)

	ctx := context.Background()
	editor := &messageEditor{session: s, msg: m.Message}
	acc := deliver.NewStreamAccumulator(editor, b.cfg.StreamUpdateInterval, b.log)

	res := b.responder.RespondStream(ctx, "mention", m.Author.ID, question, func(delta string) error {
		acc.Push(ctx, delta)
		return nil
	})

	target := &messageReply{session: s, msg: m.Message}
	if res.Fallback {
		if editor.sentID != "" {
			if err := editor.Edit(ctx, res.Text); err != nil {
				b.log.Error().Err(err).Msg("failed to edit fallback into stream message")
			}
			return
		}
		if err := target.SendReply(ctx, res.Text, true); err != nil {
			b.log.Error().Err(err).Msg("failed to send fallback reply")
		}
		return
	}

	chunks := b.pipeline.Chunks(res.Text)
	if len(chunks) == 0 {
		return
	}

	if editor.sentID == "" {
		b.pipeline.DeliverReply(ctx, target, res.Text, true)
	} else {
		if err := editor.Edit(ctx, chunks[0]); err != nil {
			b.log.Error().Err(err).Msg("failed to finalize stream message")
		}
		for _, chunk := range chunks[1:] {
			if err := target.SendReply(ctx, chunk, true); err != nil {
				b.log.Error().Err(err).Msg("failed to send overflow chunk")
			}
		}
	}

	if b.voices.IsConnected(m.GuildID) {
		b.voices.Speak(m.GuildID, res.Text, b.cfg.VoiceSpeed)
	}
}

func truncateForLog(s string) string {
	r := []rune(s)
	if len(r) <= 50 {
		return s
	}
	return string(r[:50]) + "..."
}
