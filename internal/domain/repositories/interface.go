package repositories

import (
	"context"

	"github.com/vuongmanhnghia/playlist-bot/internal/domain/entities"
)

// PlaylistRepository defines the contract for guild-scoped playlist storage.
//
// Create reports errors.ErrPlaylistExists and Delete reports errors.ErrPlaylistNotFound.
// Any other error is an I/O failure.
type PlaylistRepository interface {
	// NamespaceExists reports whether the guild's playlist namespace exists
	NamespaceExists(ctx context.Context, guildID string) (bool, error)

	// CreateNamespace creates the guild's namespace; existing namespaces are left alone
	CreateNamespace(ctx context.Context, guildID string) error

	// List returns all playlist names for a guild, sorted
	List(ctx context.Context, guildID string) ([]string, error)

	// Load loads a playlist by name for a guild, returning nil, nil when absent
	Load(ctx context.Context, guildID, name string) (*entities.Playlist, error)

	// Create stores a new empty playlist
	Create(ctx context.Context, playlist *entities.Playlist) error

	// Save rewrites an existing playlist with the given items
	Save(ctx context.Context, playlist *entities.Playlist) error

	// Delete deletes a playlist by name for a guild
	Delete(ctx context.Context, guildID, name string) error
}
