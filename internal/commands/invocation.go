package commands

import "github.com/google/uuid"

// Protocol names the dispatch path a command arrived on
type Protocol string

const (
	ProtocolSlash  Protocol = "slash"
	ProtocolPrefix Protocol = "prefix"
)

// Invoker describes the member who ran a command
type Invoker struct {
	UserID       string
	RoleIDs      []string
	Permissions  int64
	IsGuildOwner bool
}

// Invocation is one command call, independent of how it arrived
type Invocation struct {
	ID        string
	Protocol  Protocol
	GuildID   string
	ChannelID string
	Invoker   Invoker
}

// NewInvocation creates an invocation with a fresh ID
func NewInvocation(protocol Protocol, guildID, channelID string, invoker Invoker) Invocation {
	return Invocation{
		ID:        uuid.NewString(),
		Protocol:  protocol,
		GuildID:   guildID,
		ChannelID: channelID,
		Invoker:   invoker,
	}
}

// Request is a parsed command: its name, playlist sub-command and arguments
type Request struct {
	Command string
	Sub     string
	Name    string
	URLs    string
}

// Responder delivers command output back to the invoker
type Responder interface {
	// Reply sends the single reply to the command
	Reply(content string) error
	// Notify sends an extra message to the command's channel
	Notify(content string) error
}
