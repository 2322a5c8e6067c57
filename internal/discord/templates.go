package discord

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/ent0n29/hibiki/internal/prompt"
)

func templateChoices() []*discordgo.ApplicationCommandOptionChoice {
	catalog := prompt.Templates()
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(catalog))
	for _, t := range catalog {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  t.Name,
			Value: t.Key,
		})
	}
	return choices
}

func templateByKey(key string) (prompt.Template, bool) {
	for _, t := range prompt.Templates() {
		if t.Key == key {
			return t, true
		}
	}
	return prompt.Template{}, false
}

func (b *Bot) handleTemplates(s *discordgo.Session, i *discordgo.InteractionCreate) {
	embed := &discordgo.MessageEmbed{
		Title:       "📝 プロンプトテンプレート",
		Description: "用途に応じたテンプレートを選択できます",
		Color:       0x3498db,
	}
	for _, t := range prompt.Templates() {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("%s (`/use_template %s`)", t.Name, t.Key),
			Value: t.Description,
		})
	}
	b.respondEmbed(s, i, embed, true)
}

func (b *Bot) handleUseTemplate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	opts := commandOptions(i)
	key := opts["template_name"].StringValue()
	question := opts["question"].StringValue()
	user := interactionUser(i)

	tpl, ok := templateByKey(key)
	if !ok {
		b.respondEphemeral(s, i, "⚠️ 不明なテンプレートです。")
		return
	}

	b.log.Info().Str("user", user.Username).Str("template", key).Str("question", truncateForLog(question)).Msg("slash command /use_template")

	if !b.deferInteraction(s, i) {
		return
	}

	ctx := context.Background()
	templated, _ := prompt.ApplyTemplate(key, question)
	res := b.responder.RespondDirect(ctx, "template", user.ID, question, templated)

	target := &interactionFollowup{session: s, interaction: i.Interaction}
	if res.Fallback {
		_ = target.SendFollowup(ctx, res.Text)
		return
	}
	b.pipeline.DeliverFollowup(ctx, target, "**テンプレート:** "+tpl.Name+"\n\n"+res.Text, "")
}

func (b *Bot) handleListModels(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if !b.deferInteraction(s, i) {
		return
	}

	ctx := context.Background()
	target := &interactionFollowup{session: s, interaction: i.Interaction}

	models, err := b.llm.ListModels(ctx)
	if err != nil {
		b.log.Error().Err(err).Msg("failed to list models")
		_ = target.SendFollowup(ctx, "⚠️ モデル一覧の取得に失敗しました。")
		return
	}
	if len(models) == 0 {
		_ = target.SendFollowup(ctx, "⚠️ モデルが見つかりませんでした。")
		return
	}

	embed := &discordgo.MessageEmbed{
		Title: "🤖 利用可能なモデル",
		Color: 0x2ecc71,
	}
	if len(models) > 10 {
		models = models[:10]
	}
	for _, m := range models {
		sizeGB := float64(m.Size) / (1 << 30)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  m.Name,
			Value: fmt.Sprintf("サイズ: %.2f GB", sizeGB),
		})
	}
	if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Embeds: []*discordgo.MessageEmbed{embed},
	}); err != nil {
		b.log.Error().Err(err).Msg("failed to send model list")
	}
}
