package commands

import (
	"slices"

	"github.com/bwmarrin/discordgo"
)

// Authorizer decides whether an invoker may change a guild's playlists
type Authorizer interface {
	IsAuthorized(invoker Invoker, guildID string) bool
}

// DJAuthorizer allows the bot owner, the guild owner, server managers and
// holders of the guild's DJ role
type DJAuthorizer struct {
	ownerID string
	djRoles map[string]string // guildID -> role ID
}

// NewDJAuthorizer creates a DJ authorizer
func NewDJAuthorizer(ownerID string, djRoles map[string]string) *DJAuthorizer {
	if djRoles == nil {
		djRoles = map[string]string{}
	}
	return &DJAuthorizer{
		ownerID: ownerID,
		djRoles: djRoles,
	}
}

// IsAuthorized implements Authorizer
func (a *DJAuthorizer) IsAuthorized(invoker Invoker, guildID string) bool {
	if invoker.UserID == "" {
		return false
	}
	if a.ownerID != "" && invoker.UserID == a.ownerID {
		return true
	}
	if invoker.IsGuildOwner {
		return true
	}
	if invoker.Permissions&(discordgo.PermissionManageGuild|discordgo.PermissionAdministrator) != 0 {
		return true
	}

	role, ok := a.djRoles[guildID]
	return ok && role != "" && slices.Contains(invoker.RoleIDs, role)
}
