package discord

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

func commandDefinitions() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        "ask",
			Description: "AIに質問する",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "question",
					Description: "質問内容",
					Required:    true,
				},
			},
		},
		{Name: "model", Description: "現在使用中のモデル情報を表示"},
		{Name: "list_models", Description: "利用可能なモデル一覧"},
		{Name: "templates", Description: "利用可能なプロンプトテンプレート一覧"},
		{
			Name:        "use_template",
			Description: "プロンプトテンプレートを使用",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "template_name",
					Description: "テンプレート名",
					Required:    true,
					Choices:     templateChoices(),
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "question",
					Description: "質問内容",
					Required:    true,
				},
			},
		},
		{Name: "help", Description: "ボットの使い方を表示"},
		{Name: "clear", Description: "自分の会話履歴をクリア"},
		{Name: "stats", Description: "Bot使用統計を表示"},
		{Name: "facts", Description: "学習した内容を表示"},
		{
			Name:        "export",
			Description: "データをエクスポート",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "target",
					Description: "エクスポート対象",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "📄 会話履歴", Value: "chat"},
						{Name: "🧠 学習内容", Value: "memory"},
						{Name: "📊 統計情報", Value: "stats"},
					},
				},
			},
		},
		{
			Name:        "analyze_image",
			Description: "画像を分析",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionAttachment,
					Name:        "image",
					Description: "分析する画像",
					Required:    true,
				},
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "question",
					Description: "画像についての質問（省略可）",
					Required:    false,
				},
			},
		},
		{Name: "vc_join", Description: "VCに参加"},
		{Name: "vc_leave", Description: "VCから退出"},
		{
			Name:        "vc_character",
			Description: "読み上げキャラクターを変更",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "character",
					Description: "キャラクター名",
					Required:    true,
					Choices:     characterChoices(),
				},
			},
		},
		{
			Name:        "speak",
			Description: "指定したテキストを読み上げ",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "text",
					Description: "読み上げるテキスト",
					Required:    true,
				},
			},
		},
		{
			Name:        "vc_ask",
			Description: "AIに質問して音声で読み上げ",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        "question",
					Description: "質問内容",
					Required:    true,
				},
			},
		},
		{Name: "vc_status", Description: "VC接続状態を確認"},
	}
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "ask":
		b.handleAsk(s, i)
	case "model":
		b.handleModel(s, i)
	case "list_models":
		b.handleListModels(s, i)
	case "templates":
		b.handleTemplates(s, i)
	case "use_template":
		b.handleUseTemplate(s, i)
	case "help":
		b.handleHelp(s, i)
	case "clear":
		b.handleClear(s, i)
	case "stats":
		b.handleStats(s, i)
	case "facts":
		b.handleFacts(s, i)
	case "export":
		b.handleExport(s, i)
	case "analyze_image":
		b.handleAnalyzeImage(s, i)
	case "vc_join":
		b.handleVCJoin(s, i)
	case "vc_leave":
		b.handleVCLeave(s, i)
	case "vc_character":
		b.handleVCCharacter(s, i)
	case "speak":
		b.handleSpeak(s, i)
	case "vc_ask":
		b.handleVCAsk(s, i)
	case "vc_status":
		b.handleVCStatus(s, i)
	}
}

func interactionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil {
		return i.Member.User
	}
	return i.User
}

func commandOptions(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	out := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		out[opt.Name] = opt
	}
	return out
}

// defer acknowledges the interaction before slow work. A failure here means
// the interaction already expired, so the command must abort.
func (b *Bot) deferInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err != nil {
		b.log.Error().Err(err).Str("command", i.ApplicationCommandData().Name).Msg("interaction expired before defer")
		return false
	}
	return true
}

func (b *Bot) respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	b.respondText(s, i, content, true)
}

func (b *Bot) respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string, ephemeral bool) {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	}
	if ephemeral {
		resp.Data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		b.log.Error().Err(err).Msg("failed to respond to interaction")
	}
}

func (b *Bot) respondEmbed(s *discordgo.Session, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}},
	}
	if ephemeral {
		resp.Data.Flags = discordgo.MessageFlagsEphemeral
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		b.log.Error().Err(err).Msg("failed to respond to interaction")
	}
}

func (b *Bot) handleAsk(s *discordgo.Session, i *discordgo.InteractionCreate) {
	question := commandOptions(i)["question"].StringValue()
	user := interactionUser(i)
	b.log.Info().Str("user", user.Username).Str("question", truncateForLog(question)).Msg("slash command /ask")

	if !b.deferInteraction(s, i) {
		return
	}

	ctx := context.Background()
	res := b.responder.Respond(ctx, "slash", user.ID, question)
	target := &interactionFollowup{session: s, interaction: i.Interaction}
	b.pipeline.DeliverFollowup(ctx, target, res.Text, "<@"+user.ID+">")
}

func (b *Bot) handleModel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	status := "❌ 接続不可"
	if b.llm.Healthy(context.Background()) {
		status = "✅ 正常"
	}

	embed := &discordgo.MessageEmbed{
		Title: "🤖 モデル情報",
		Color: 0x3498db,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "モデル", Value: b.cfg.OllamaModel},
			{Name: "ホスト", Value: b.cfg.OllamaHost},
			{Name: "タイムアウト", Value: fmt.Sprintf("%d秒", int(b.cfg.RequestTimeout/time.Second))},
			{Name: "ステータス", Value: status},
		},
	}
	b.respondEmbed(s, i, embed, true)
}

func (b *Bot) handleHelp(s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed := &discordgo.MessageEmbed{
		Title:       "🤖 Hibiki - ヘルプ",
		Description: "ローカルLLMを使用したDiscord Botです",
		Color:       0x2ecc71,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name: "⚡ コマンド",
				Value: "`/ask <質問>` - AIに質問\n" +
					"`/model` - モデル情報表示\n" +
					"`/list_models` - 利用可能なモデル一覧\n" +
					"`/templates` - テンプレート一覧\n" +
					"`/use_template` - テンプレートで質問\n" +
					"`/clear` - 会話履歴をクリア\n" +
					"`/stats` - 使用統計\n" +
					"`/facts` - 学習した内容\n" +
					"`/export` - データのエクスポート\n" +
					"`/help` - このヘルプ",
			},
			{
				Name: "🎤 ボイス",
				Value: "`/vc_join` - VCに参加\n" +
					"`/vc_ask <質問>` - 質問して読み上げ\n" +
					"`/speak <テキスト>` - テキスト読み上げ\n" +
					"`/vc_character` - キャラクター変更\n" +
					"`/vc_status` - 接続状態\n" +
					"`/vc_leave` - VCから退出",
			},
			{Name: "ℹ️ その他", Value: "メンションでも質問できます。長い応答は自動的に分割されます"},
		},
	}
	b.respondEmbed(s, i, embed, true)
}

func (b *Bot) handleClear(s *discordgo.Session, i *discordgo.InteractionCreate) {
	user := interactionUser(i)
	b.store.ClearContext(user.ID)
	b.respondEphemeral(s, i, "🧹 会話履歴をクリアしました。")
}

func (b *Bot) handleStats(s *discordgo.Session, i *discordgo.InteractionCreate) {
	summary := b.tracker.GetSummary()

	embed := &discordgo.MessageEmbed{
		Title: "📊 Bot統計情報",
		Color: 0x9b59b6,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "総質問数", Value: fmt.Sprint(summary.TotalQuestions), Inline: true},
			{Name: "今日の質問数", Value: fmt.Sprint(summary.QuestionsToday), Inline: true},
			{Name: "総応答数", Value: fmt.Sprint(summary.TotalResponses), Inline: true},
			{Name: "ユニークユーザー数", Value: fmt.Sprint(summary.UniqueUsers), Inline: true},
			{Name: "推定トークン数", Value: fmt.Sprint(summary.TotalTokens), Inline: true},
		},
	}

	if top := b.tracker.TopUsers(3); len(top) > 0 {
		var lines []string
		for _, u := range top {
			lines = append(lines, fmt.Sprintf("<@%s>: %d回", u.UserID, u.Count))
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "🏆 トップユーザー",
			Value: strings.Join(lines, "\n"),
		})
	}
	b.respondEmbed(s, i, embed, true)
}

func (b *Bot) handleFacts(s *discordgo.Session, i *discordgo.InteractionCreate) {
	recent := b.store.RecentFacts(5)
	if len(recent) == 0 {
		b.respondEphemeral(s, i, "まだ何も学習していません。")
		return
	}

	var lines []string
	for _, f := range recent {
		lines = append(lines, "- "+f)
	}
	embed := &discordgo.MessageEmbed{
		Title:       "🧠 学習した内容",
		Description: strings.Join(lines, "\n"),
		Color:       0xe67e22,
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("全%d件", b.store.FactCount()),
		},
	}
	b.respondEmbed(s, i, embed, true)
}

func (b *Bot) handleAnalyzeImage(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := commandOptions(i)
	attachmentID, _ := opts["image"].Value.(string)
	attachment := i.ApplicationCommandData().Resolved.Attachments[attachmentID]
	if attachment == nil || !strings.HasPrefix(attachment.ContentType, "image") {
		b.respondEphemeral(s, i, "⚠️ 画像ファイルを添付してください。")
		return
	}

	question := "この画像について詳しく説明してください。"
	if opt, ok := opts["question"]; ok {
		question = opt.StringValue()
	}

	if !b.deferInteraction(s, i) {
		return
	}

	ctx := context.Background()
	target := &interactionFollowup{session: s, interaction: i.Interaction}

	if !b.llm.VisionAvailable(ctx) {
		_ = target.SendFollowup(ctx, "⚠️ ビジョンモデル（llava）がインストールされていません。`ollama pull llava` で追加してください。")
		return
	}

	image, err := downloadAttachment(ctx, attachment.URL)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to download attachment")
		_ = target.SendFollowup(ctx, "❌ 画像の取得に失敗しました。")
		return
	}

	result, err := b.llm.AnalyzeImage(ctx, image, question)
	if err != nil {
		b.log.Error().Err(err).Msg("image analysis failed")
		_ = target.SendFollowup(ctx, "❌ 画像分析に失敗しました。")
		return
	}
	b.pipeline.DeliverFollowup(ctx, target, "🖼️ **画像分析結果:**\n\n"+result, "")
}

func downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("attachment download status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 8<<20))
}

func (b *Bot) handleExport(s *discordgo.Session, i *discordgo.InteractionCreate) {
	target, _ := commandOptions(i)["target"].Value.(string)
	user := interactionUser(i)

	name, content, message, err := b.buildExport(target, user)
	if err != nil {
		b.respondEphemeral(s, i, err.Error())
		return
	}

	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: message,
			Files: []*discordgo.File{
				{Name: name, Reader: bytes.NewReader(content)},
			},
		},
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		b.log.Error().Err(err).Msg("failed to send export")
	}
}
