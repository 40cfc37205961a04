package commands

import "github.com/bwmarrin/discordgo"

// Top-level command names
const (
	CommandPlaylist = "playlist"
	CommandJoin     = "join"
	CommandLeave    = "leave"
)

func nameOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "name",
		Description: description,
		Required:    true,
		MaxLength:   100,
	}
}

// GetCommands returns all slash command definitions
func GetCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        CommandPlaylist,
			Description: "Manage this server's playlists",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        SubMake,
					Description: "Create a new playlist",
					Options:     []*discordgo.ApplicationCommandOption{nameOption("Name for the new playlist")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        SubDelete,
					Description: "Delete an existing playlist",
					Options:     []*discordgo.ApplicationCommandOption{nameOption("Playlist to delete")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        SubAppend,
					Description: "Append tracks to an existing playlist",
					Options: []*discordgo.ApplicationCommandOption{
						nameOption("Playlist to append to"),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "url",
							Description: "URLs or search terms, separated by |",
							Required:    true,
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        SubAll,
					Description: "List all playlists in this server",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        SubShow,
					Description: "Show the tracks in a playlist",
					Options:     []*discordgo.ApplicationCommandOption{nameOption("Playlist to show")},
				},
			},
		},
		{
			Name:        CommandJoin,
			Description: "Join your voice channel",
		},
		{
			Name:        CommandLeave,
			Description: "Leave the voice channel",
		},
	}
}

// requestFromInteraction builds a Request from slash command data
func requestFromInteraction(data discordgo.ApplicationCommandInteractionData) Request {
	req := Request{Command: data.Name}
	if data.Name != CommandPlaylist || len(data.Options) == 0 {
		return req
	}

	sub := data.Options[0]
	req.Sub = sub.Name
	for _, opt := range sub.Options {
		switch opt.Name {
		case "name":
			req.Name = opt.StringValue()
		case "url":
			req.URLs = opt.StringValue()
		}
	}
	return req
}
