package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vuongmanhnghia/playlist-bot/internal/domain/entities"
	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
	"github.com/vuongmanhnghia/playlist-bot/internal/validation"
	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

// PlaylistStore is the playlist storage the commands run against
type PlaylistStore interface {
	GetPlaylist(ctx context.Context, guildID, name string) (*entities.Playlist, error)
	CreatePlaylist(ctx context.Context, guildID, name string) error
	DeletePlaylist(ctx context.Context, guildID, name string) error
	AppendItems(ctx context.Context, guildID, name string, items []string) (int, error)
	ListPlaylistNames(ctx context.Context, guildID string) ([]string, error)
}

// Playlist sub-command names
const (
	SubMake   = "make"
	SubDelete = "delete"
	SubAppend = "append"
	SubAll    = "all"
	SubShow   = "show"
)

// subAliases maps every accepted spelling to its sub-command
var subAliases = map[string]string{
	SubMake:     SubMake,
	"create":    SubMake,
	SubDelete:   SubDelete,
	"remove":    SubDelete,
	SubAppend:   SubAppend,
	"add":       SubAppend,
	SubAll:      SubAll,
	"available": SubAll,
	"list":      SubAll,
	SubShow:     SubShow,
}

// subHelp lists sub-commands in help order
var subHelp = []struct {
	name string
	args string
	help string
}{
	{SubAppend, "<name> <URL> | <URL> | ...", "Append tracks to an existing playlist"},
	{SubDelete, "<name>", "Delete an existing playlist"},
	{SubMake, "<name>", "Create a new playlist"},
	{SubShow, "<name>", "Show the tracks in a playlist"},
	{SubAll, "", "List all playlists in this server"},
}

// ResolveSub returns the canonical sub-command for name or an alias
func ResolveSub(name string) (string, bool) {
	sub, ok := subAliases[strings.ToLower(name)]
	return sub, ok
}

// PlaylistCommands implements the playlist sub-commands. Every method returns
// the reply text; it never talks to Discord.
type PlaylistCommands struct {
	store        PlaylistStore
	auth         Authorizer
	storeTimeout time.Duration
	logger       *logger.Logger
}

// NewPlaylistCommands creates the playlist command set
func NewPlaylistCommands(store PlaylistStore, auth Authorizer, storeTimeout time.Duration, log *logger.Logger) *PlaylistCommands {
	return &PlaylistCommands{
		store:        store,
		auth:         auth,
		storeTimeout: storeTimeout,
		logger:       log,
	}
}

// Run dispatches a playlist sub-command
func (p *PlaylistCommands) Run(ctx context.Context, inv Invocation, req Request) string {
	if req.Sub == "" {
		return p.Help("")
	}

	sub, ok := ResolveSub(req.Sub)
	if !ok {
		return fmt.Sprintf("❌ Unknown playlist command `%s`\n", req.Sub) + p.Help("")
	}

	ctx, cancel := p.withTimeout(ctx)
	defer cancel()

	switch sub {
	case SubMake:
		return p.Make(ctx, inv, req.Name)
	case SubDelete:
		return p.Delete(ctx, inv, req.Name)
	case SubAppend:
		return p.Append(ctx, inv, req.Name, req.URLs)
	case SubAll:
		return p.All(ctx, inv)
	default:
		return p.Show(ctx, inv, req.Name)
	}
}

// Help lists the sub-commands with their arguments
func (p *PlaylistCommands) Help(prefix string) string {
	var sb strings.Builder
	sb.WriteString("📋 Playlist commands:")
	for _, h := range subHelp {
		sb.WriteString(fmt.Sprintf("\n`%splaylist %s", prefix, h.name))
		if h.args != "" {
			sb.WriteString(" " + h.args)
		}
		sb.WriteString("` - " + h.help)
	}
	return sb.String()
}

// Make creates a new empty playlist
func (p *PlaylistCommands) Make(ctx context.Context, inv Invocation, rawName string) string {
	name, reply := p.prepare(inv, rawName, true)
	if reply != "" {
		return reply
	}

	if err := p.store.CreatePlaylist(ctx, inv.GuildID, name); err != nil {
		return p.errorReply(inv, name, err)
	}

	p.log(inv, name).Info("Playlist created by command")
	return fmt.Sprintf("✅ Created playlist `%s`", name)
}

// Delete removes a playlist
func (p *PlaylistCommands) Delete(ctx context.Context, inv Invocation, rawName string) string {
	name, reply := p.prepare(inv, rawName, true)
	if reply != "" {
		return reply
	}

	if err := p.store.DeletePlaylist(ctx, inv.GuildID, name); err != nil {
		return p.errorReply(inv, name, err)
	}

	p.log(inv, name).Info("Playlist deleted by command")
	return fmt.Sprintf("✅ Deleted playlist `%s`", name)
}

// Append adds "a | b | c" style references to the end of a playlist
func (p *PlaylistCommands) Append(ctx context.Context, inv Invocation, rawName, rawURLs string) string {
	if strings.TrimSpace(rawName) == "" || strings.TrimSpace(rawURLs) == "" {
		return "❌ Please include a playlist name and at least one URL"
	}

	name, reply := p.prepare(inv, rawName, true)
	if reply != "" {
		return reply
	}

	refs, err := validation.ParseTrackRefs(rawURLs)
	if err != nil {
		return "❌ Please include a playlist name and at least one URL"
	}

	n, err := p.store.AppendItems(ctx, inv.GuildID, name, refs)
	if err != nil {
		return p.errorReply(inv, name, err)
	}

	return fmt.Sprintf("✅ Added %d %s to `%s`", n, plural(n, "item", "items"), name)
}

// All lists every playlist name in the guild
func (p *PlaylistCommands) All(ctx context.Context, inv Invocation) string {
	names, err := p.store.ListPlaylistNames(ctx, inv.GuildID)
	if err != nil {
		return p.errorReply(inv, "", err)
	}
	if len(names) == 0 {
		return "⚠️ There are no playlists in this server yet"
	}

	var sb strings.Builder
	sb.WriteString("✅ Available playlists:\n")
	for _, name := range names {
		sb.WriteString("`" + name + "` ")
	}
	return validation.TruncateMessage(strings.TrimRight(sb.String(), " "))
}

// Show lists a playlist's items, numbered from 1
func (p *PlaylistCommands) Show(ctx context.Context, inv Invocation, rawName string) string {
	name, reply := p.prepare(inv, rawName, false)
	if reply != "" {
		return reply
	}

	playlist, err := p.store.GetPlaylist(ctx, inv.GuildID, name)
	if err != nil {
		return p.errorReply(inv, name, err)
	}
	if playlist.IsEmpty() {
		return fmt.Sprintf("⚠️ Playlist `%s` has no items", name)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✅ Items in `%s`:\n", name))
	for i, item := range playlist.Items {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, item))
	}
	return validation.TruncateMessage(strings.TrimRight(sb.String(), "\n"))
}

// prepare normalizes the name and checks authorization for mutations.
// A non-empty reply means the command stops there.
func (p *PlaylistCommands) prepare(inv Invocation, rawName string, mutates bool) (string, string) {
	name, err := validation.NormalizePlaylistName(rawName)
	if err != nil {
		if strings.TrimSpace(rawName) == "" {
			return "", "❌ Please include a playlist name"
		}
		return "", "❌ Playlist names may only use letters, numbers, `_`, `-` and `.` (max 100 characters)"
	}

	if mutates && !p.auth.IsAuthorized(inv.Invoker, inv.GuildID) {
		p.log(inv, name).Info("Unauthorized playlist change")
		return "", errors.GetUserMessage(errors.ErrNoPermission)
	}
	return name, ""
}

func (p *PlaylistCommands) errorReply(inv Invocation, name string, err error) string {
	switch {
	case errors.Is(err, errors.ErrPlaylistNotFound):
		return fmt.Sprintf("❌ Playlist `%s` does not exist", name)
	case errors.Is(err, errors.ErrPlaylistExists):
		return fmt.Sprintf("❌ Playlist `%s` already exists", name)
	}

	p.log(inv, name).WithError(err).Warn("Playlist command failed")
	return errors.GetUserMessage(err)
}

func (p *PlaylistCommands) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.storeTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.storeTimeout)
}

func (p *PlaylistCommands) log(inv Invocation, name string) *logrus.Entry {
	entry := p.logger.WithGuild(inv.GuildID).WithField("invocation", inv.ID)
	if name != "" {
		entry = entry.WithField("playlist", name)
	}
	return entry
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
