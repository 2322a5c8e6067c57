package discord

import (
	"context"

	"github.com/bwmarrin/discordgo"
)

// messageReply replies to a channel message, optionally pinging the author.
type messageReply struct {
	session *discordgo.Session
	msg     *discordgo.Message
}

func (t *messageReply) SendReply(_ context.Context, content string, mention bool) error {
	reply := &discordgo.MessageSend{
		Content:   content,
		Reference: t.msg.Reference(),
	}
	if !mention {
		reply.AllowedMentions = &discordgo.MessageAllowedMentions{}
	}
	_, err := t.session.ChannelMessageSendComplex(t.msg.ChannelID, reply)
	return err
}

// interactionFollowup sends ordered follow-ups for a deferred interaction.
type interactionFollowup struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (t *interactionFollowup) SendFollowup(_ context.Context, content string) error {
	_, err := t.session.FollowupMessageCreate(t.interaction, true, &discordgo.WebhookParams{
		Content: content,
	})
	return err
}

// messageEditor maintains one reply message in a channel and edits it in
// place as streamed text grows.
type messageEditor struct {
	session *discordgo.Session
	msg     *discordgo.Message
	sentID  string
}

func (e *messageEditor) Send(_ context.Context, content string) error {
	sent, err := e.session.ChannelMessageSendComplex(e.msg.ChannelID, &discordgo.MessageSend{
		Content:   content,
		Reference: e.msg.Reference(),
	})
	if err != nil {
		return err
	}
	e.sentID = sent.ID
	return nil
}

func (e *messageEditor) Edit(_ context.Context, content string) error {
	_, err := e.session.ChannelMessageEdit(e.msg.ChannelID, e.sentID, content)
	return err
}
