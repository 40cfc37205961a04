package commands

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
	"github.com/vuongmanhnghia/playlist-bot/internal/metrics"
	"github.com/vuongmanhnghia/playlist-bot/internal/services/gate"
	"github.com/vuongmanhnghia/playlist-bot/internal/services/voice"
	"github.com/vuongmanhnghia/playlist-bot/internal/validation"
	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

// Gate checks a command's voice preconditions
type Gate interface {
	Evaluate(ctx context.Context, req gate.Request) gate.Outcome
}

// VoiceControl is the part of the voice manager commands talk to directly
type VoiceControl interface {
	ListenerOf(guildID, userID string) gate.Listener
	Leave(guildID string) error
}

// Options configures the dispatcher
type Options struct {
	Prefix       string
	TextChannels map[string]string // guildID -> only channel prefix commands are allowed in
}

type route struct {
	requirements gate.Requirements
	run          func(ctx context.Context, inv Invocation, req Request, out gate.Outcome) string
}

// Handler dispatches slash and prefix commands through the same routes
type Handler struct {
	session   *discordgo.Session
	gate      Gate
	voice     VoiceControl
	playlists *PlaylistCommands
	opts      Options
	logger    *logger.Logger
	routes    map[string]route
}

// NewHandler creates a new command handler
func NewHandler(
	session *discordgo.Session,
	g Gate,
	vc VoiceControl,
	playlists *PlaylistCommands,
	opts Options,
	log *logger.Logger,
) *Handler {
	if opts.TextChannels == nil {
		opts.TextChannels = map[string]string{}
	}

	h := &Handler{
		session:   session,
		gate:      g,
		voice:     vc,
		playlists: playlists,
		opts:      opts,
		logger:    log,
	}

	h.routes = map[string]route{
		CommandPlaylist: {run: h.runPlaylist},
		CommandJoin:     {requirements: gate.Requirements{MustBeListening: true}, run: h.runJoin},
		CommandLeave:    {run: h.runLeave},
	}
	return h
}

// RegisterCommands registers all slash commands with Discord
func (h *Handler) RegisterCommands() error {
	commands := GetCommands()

	_, err := h.session.ApplicationCommandBulkOverwrite(h.session.State.User.ID, "", commands)
	if err != nil {
		return fmt.Errorf("failed to register commands: %w", err)
	}

	h.logger.WithField("count", len(commands)).Info("✅ All commands registered")
	return nil
}

// HandleInteraction handles slash commands
func (h *Handler) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	req := requestFromInteraction(i.ApplicationCommandData())

	var invoker Invoker
	if i.Member != nil && i.Member.User != nil {
		invoker = Invoker{
			UserID:       i.Member.User.ID,
			RoleIDs:      i.Member.Roles,
			Permissions:  i.Member.Permissions,
			IsGuildOwner: isGuildOwner(s.State, i.GuildID, i.Member.User.ID),
		}
	} else if i.User != nil {
		invoker = Invoker{UserID: i.User.ID}
	}

	inv := NewInvocation(ProtocolSlash, i.GuildID, i.ChannelID, invoker)
	h.dispatch(context.Background(), inv, req, newInteractionResponder(s, i.Interaction))
}

// HandleMessage handles prefix commands
func (h *Handler) HandleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	h.handleMessage(s, s.State, m)
}

func (h *Handler) handleMessage(s messageSession, state *discordgo.State, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	command, args, ok := ParsePrefix(m.Content, h.opts.Prefix)
	if !ok {
		return
	}
	if _, known := h.routes[command]; !known {
		return
	}

	if allowed := h.opts.TextChannels[m.GuildID]; m.GuildID != "" && allowed != "" && m.ChannelID != allowed {
		h.redirect(s, m, allowed)
		return
	}

	invoker := Invoker{
		UserID:       m.Author.ID,
		IsGuildOwner: isGuildOwner(state, m.GuildID, m.Author.ID),
	}
	if m.Member != nil {
		invoker.RoleIDs = m.Member.Roles
	}
	if state != nil {
		if perms, err := state.UserChannelPermissions(m.Author.ID, m.ChannelID); err == nil {
			invoker.Permissions = perms
		}
	}

	inv := NewInvocation(ProtocolPrefix, m.GuildID, m.ChannelID, invoker)
	h.dispatch(context.Background(), inv, ParsePrefixRequest(command, args), newMessageResponder(s, m.Message))
}

// dispatch runs one command: gate first, then the route body, then exactly one reply
func (h *Handler) dispatch(ctx context.Context, inv Invocation, req Request, resp Responder) {
	out := &onceResponder{Responder: resp}
	log := h.logger.WithGuild(inv.GuildID).WithFields(logrus.Fields{
		"command":    req.Command,
		"protocol":   string(inv.Protocol),
		"invocation": inv.ID,
		"user":       inv.Invoker.UserID,
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Recovered from panic in command handler")
			h.reply(log, out, "❌ An internal error occurred")
		}
	}()

	rt, ok := h.routes[req.Command]
	if !ok {
		h.reply(log, out, "❌ Unknown command")
		return
	}
	if inv.GuildID == "" {
		h.reply(log, out, "❌ This command only works in a server")
		return
	}

	metrics.RecordCommand(req.Command, string(inv.Protocol))
	log.Info("Command received")

	outcome := gate.Outcome{Status: gate.StatusProceed}
	if rt.requirements.MustBePlaying || rt.requirements.MustBeListening {
		if rt.requirements.MustBeListening {
			// joining can outlast the interaction acknowledgement window
			if err := out.Defer(); err != nil {
				log.WithError(err).Warn("Failed to defer response")
			}
		}

		gr := gate.Request{Requirements: rt.requirements, GuildID: inv.GuildID}
		if rt.requirements.MustBeListening {
			gr.User = h.voice.ListenerOf(inv.GuildID, inv.Invoker.UserID)
		}

		outcome = h.gate.Evaluate(ctx, gr)
		if outcome.Status != gate.StatusProceed {
			h.reply(log, out, errors.GetUserMessage(outcome.Err))
			return
		}
		if outcome.Notice != "" {
			if err := out.Notify(outcome.Notice); err != nil {
				log.WithError(err).Warn("Failed to send notice")
			}
		}
	}

	h.reply(log, out, rt.run(ctx, inv, req, outcome))
}

func (h *Handler) reply(log *logrus.Entry, out Responder, content string) {
	if err := out.Reply(validation.TruncateMessage(content)); err != nil {
		log.WithError(err).Error("Failed to send reply")
	}
}

func (h *Handler) runPlaylist(ctx context.Context, inv Invocation, req Request, _ gate.Outcome) string {
	if req.Sub == "" && inv.Protocol == ProtocolPrefix {
		return h.playlists.Help(h.opts.Prefix)
	}
	return h.playlists.Run(ctx, inv, req)
}

func (h *Handler) runJoin(_ context.Context, _ Invocation, _ Request, out gate.Outcome) string {
	if out.Channel == nil {
		return "🔊 Joined your voice channel"
	}
	if out.Joined {
		return fmt.Sprintf("🔊 Joined **%s**", channelName(*out.Channel))
	}
	return fmt.Sprintf("🔊 I'm already in **%s**", channelName(*out.Channel))
}

func (h *Handler) runLeave(_ context.Context, inv Invocation, _ Request, _ gate.Outcome) string {
	if err := h.voice.Leave(inv.GuildID); err != nil {
		if errors.Is(err, voice.ErrNotConnected) {
			return "❌ I'm not currently in a voice channel"
		}
		h.logger.WithGuild(inv.GuildID).WithError(err).Warn("Failed to leave voice channel")
		return errors.GetUserMessage(err)
	}
	return "👋 Left the voice channel"
}

// redirect removes a prefix command sent outside the guild's command channel
// and tells the author where to use it
func (h *Handler) redirect(s messageSession, m *discordgo.MessageCreate, allowed string) {
	log := h.logger.WithGuild(m.GuildID).WithField("channel", m.ChannelID)

	// the DM goes out even when the bot lacks Manage Messages
	if err := s.ChannelMessageDelete(m.ChannelID, m.ID); err != nil {
		log.WithError(err).Debug("Failed to delete misplaced command")
	}

	dm, err := s.UserChannelCreate(m.Author.ID)
	if err != nil {
		log.WithError(err).Debug("Failed to open DM channel")
		return
	}
	if _, err := s.ChannelMessageSend(dm.ID, fmt.Sprintf("🚫 Bot commands can only be used in <#%s>", allowed)); err != nil {
		log.WithError(err).Debug("Failed to send DM")
	}
}

func isGuildOwner(state *discordgo.State, guildID, userID string) bool {
	if state == nil || guildID == "" {
		return false
	}
	guild, err := state.Guild(guildID)
	if err != nil {
		return false
	}
	return guild.OwnerID == userID
}

func channelName(c gate.Channel) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Mention()
}
