package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
)

var characterDisplayNames = map[string]string{
	"zundamon_normal":   "ずんだもん（ノーマル）",
	"zundamon_sweet":    "ずんだもん（あまあま）",
	"zundamon_tsundere": "ずんだもん（ツンツン）",
	"zundamon_sexy":     "ずんだもん（セクシー）",
	"metan_normal":      "四国めたん",
	"tsumugi_normal":    "春日部つむぎ",
}

func characterChoices() []*discordgo.ApplicationCommandOptionChoice {
	return []*discordgo.ApplicationCommandOptionChoice{
		{Name: "🍡 ずんだもん（ノーマル）", Value: "zundamon_normal"},
		{Name: "💕 ずんだもん（あまあま）", Value: "zundamon_sweet"},
		{Name: "😤 ずんだもん（ツンツン）", Value: "zundamon_tsundere"},
		{Name: "😏 ずんだもん（セクシー）", Value: "zundamon_sexy"},
		{Name: "🌸 四国めたん", Value: "metan_normal"},
		{Name: "🌺 春日部つむぎ", Value: "tsumugi_normal"},
	}
}

func (b *Bot) handleVCJoin(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	voiceState, err := s.State.VoiceState(i.GuildID, user.ID)
	if err != nil || voiceState == nil || voiceState.ChannelID == "" {
		b.respondEphemeral(s, i, "❌ VCに入ってから使ってください。")
		return
	}
	if b.voices.IsConnected(i.GuildID) {
		b.respondEphemeral(s, i, "⚠ すでにVCに接続しています。")
		return
	}

	if !b.deferInteraction(s, i) {
		return
	}
	target := &interactionFollowup{session: s, interaction: i.Interaction}

	vc, err := s.ChannelVoiceJoin(i.GuildID, voiceState.ChannelID, false, true)
	if err != nil {
		b.log.Error().Err(err).Str("guild", i.GuildID).Msg("voice channel join failed")
		_ = target.SendFollowup(context.Background(), "❌ ボイスチャンネルへの接続に失敗しました。")
		return
	}

	b.voices.Join(i.GuildID, &playbackConn{vc: vc})
	b.voices.Speak(i.GuildID, "よろしくなのだ！", b.cfg.VoiceSpeed)

	_ = target.SendFollowup(context.Background(),
		"✅ ボイスチャンネルに接続しました！\n💬 `/vc_ask` コマンドで質問すると読み上げます。")
}

func (b *Bot) handleVCLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.voices.IsConnected(i.GuildID) {
		b.respondEphemeral(s, i, "❌ ボイスチャンネルに接続していません。")
		return
	}

	b.voices.Speak(i.GuildID, "またなのだ！", b.cfg.VoiceSpeed)
	b.respondText(s, i, "👋 ボイスチャンネルから退出しました。", false)

	// Give the goodbye line a moment to play before tearing down.
	go func(guildID string) {
		time.Sleep(2 * time.Second)
		b.voices.Disconnect(guildID)
	}(i.GuildID)
}

func (b *Bot) handleVCCharacter(s *discordgo.Session, i *discordgo.InteractionCreate) {
	character := commandOptions(i)["character"].StringValue()

	if !b.voices.IsConnected(i.GuildID) {
		b.respondEphemeral(s, i, "❌ ボイスチャンネルに接続していません。")
		return
	}
	if !b.voices.SetCharacter(i.GuildID, character) {
		b.respondEphemeral(s, i, "❌ キャラクターの変更に失敗しました。")
		return
	}

	b.respondText(s, i, "🎭 読み上げキャラクターを「"+characterDisplayNames[character]+"」に変更しました。", false)
	b.voices.Speak(i.GuildID, "声を変更したのだ", b.cfg.VoiceSpeed)
}

func (b *Bot) handleSpeak(s *discordgo.Session, i *discordgo.InteractionCreate) {
	text := commandOptions(i)["text"].StringValue()

	if !b.voices.IsConnected(i.GuildID) {
		b.respondEphemeral(s, i, "❌ ボイスチャンネルに接続していません。`/vc_join` で参加してください。")
		return
	}

	b.respondText(s, i, "🔊 読み上げ: "+truncateForLog(text), false)
	b.voices.Speak(i.GuildID, text, b.cfg.VoiceSpeed)
}

func (b *Bot) handleVCAsk(s *discordgo.Session, i *discordgo.InteractionCreate) {
	question := commandOptions(i)["question"].StringValue()
	user := interactionUser(i)

	if !b.voices.IsConnected(i.GuildID) {
		b.respondEphemeral(s, i, "❌ ボイスチャンネルに接続していません。`/vc_join` で参加してください。")
		return
	}

	b.log.Info().Str("user", user.Username).Str("question", truncateForLog(question)).Msg("slash command /vc_ask")

	if !b.deferInteraction(s, i) {
		return
	}

	ctx := context.Background()
	res := b.responder.Respond(ctx, "vc_ask", user.ID, question)
	target := &interactionFollowup{session: s, interaction: i.Interaction}

	if res.Fallback {
		_ = target.SendFollowup(ctx, res.Text)
		return
	}

	b.pipeline.DeliverFollowup(ctx, target, "**質問:** "+question+"\n\n**回答:** "+res.Text, "")
	b.voices.Speak(i.GuildID, res.Text, b.cfg.VoiceSpeed)
}

func (b *Bot) handleVCStatus(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	voicevoxStatus := "❌ 停止中"
	if b.vv.Available(ctx) {
		voicevoxStatus = "✅ 起動中"
		if speakers, err := b.vv.Speakers(ctx); err == nil {
			voicevoxStatus += fmt.Sprintf("（話者 %d 件）", len(speakers))
		}
	}

	embed := &discordgo.MessageEmbed{
		Title: "🎤 ボイスチャンネル状態",
		Color: 0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "VOICEVOX", Value: voicevoxStatus},
		},
	}

	if b.voices.IsConnected(i.GuildID) {
		character := b.voices.Character(i.GuildID)
		display := characterDisplayNames[character]
		if display == "" {
			display = character
		}
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "接続状態", Value: "✅ 接続中"},
			&discordgo.MessageEmbedField{Name: "現在のキャラクター", Value: display},
		)
	} else {
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "接続状態", Value: "❌ 未接続"},
		)
	}

	b.respondEmbed(s, i, embed, true)
}
