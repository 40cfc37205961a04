package commands

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// interactionResponder answers a slash command. Once deferred, the reply edits
// the deferred response.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	deferred    bool
}

func newInteractionResponder(s *discordgo.Session, i *discordgo.Interaction) *interactionResponder {
	return &interactionResponder{session: s, interaction: i}
}

// Defer acknowledges the interaction for long operations
func (r *interactionResponder) Defer() error {
	if r.deferred {
		return nil
	}
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
	if err == nil {
		r.deferred = true
	}
	return err
}

func (r *interactionResponder) Reply(content string) error {
	if r.deferred {
		_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
			Content: &content,
		})
		return err
	}
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
		},
	})
}

func (r *interactionResponder) Notify(content string) error {
	_, err := r.session.ChannelMessageSend(r.interaction.ChannelID, content)
	return err
}

// messageSession is the part of the Discord session prefix commands talk to
type messageSession interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendReply(channelID string, content string, reference *discordgo.MessageReference, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
	UserChannelCreate(recipientID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// messageResponder answers a prefix command with a reply to the message
type messageResponder struct {
	session messageSession
	message *discordgo.Message
}

func newMessageResponder(s messageSession, m *discordgo.Message) *messageResponder {
	return &messageResponder{session: s, message: m}
}

func (r *messageResponder) Reply(content string) error {
	_, err := r.session.ChannelMessageSendReply(r.message.ChannelID, content, r.message.Reference())
	return err
}

func (r *messageResponder) Notify(content string) error {
	_, err := r.session.ChannelMessageSend(r.message.ChannelID, content)
	return err
}

// deferrer is implemented by responders that can acknowledge before replying
type deferrer interface {
	Defer() error
}

// onceResponder drops every reply after the first
type onceResponder struct {
	Responder
	once    sync.Once
	replied bool
}

func (r *onceResponder) Reply(content string) error {
	var err error
	r.once.Do(func() {
		r.replied = true
		err = r.Responder.Reply(content)
	})
	return err
}

func (r *onceResponder) Defer() error {
	if d, ok := r.Responder.(deferrer); ok {
		return d.Defer()
	}
	return nil
}
