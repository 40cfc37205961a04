package repositories

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vuongmanhnghia/playlist-bot/internal/database"
	"github.com/vuongmanhnghia/playlist-bot/internal/domain/entities"
	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation
const uniqueViolation = "23505"

// DatabasePlaylistRepository implements PlaylistRepository using PostgreSQL
type DatabasePlaylistRepository struct {
	db *database.DB
}

// NewDatabasePlaylistRepository creates a new database-backed playlist repository
func NewDatabasePlaylistRepository(db *database.DB) *DatabasePlaylistRepository {
	return &DatabasePlaylistRepository{
		db: db,
	}
}

// NamespaceExists reports whether the guild row exists
func (r *DatabasePlaylistRepository) NamespaceExists(ctx context.Context, guildID string) (bool, error) {
	exists, err := r.db.Queries.GuildExists(ctx, guildID)
	if err != nil {
		return false, fmt.Errorf("failed to check guild: %w", err)
	}
	return exists, nil
}

// CreateNamespace inserts the guild row if missing
func (r *DatabasePlaylistRepository) CreateNamespace(ctx context.Context, guildID string) error {
	if err := r.db.Queries.UpsertGuild(ctx, guildID); err != nil {
		return fmt.Errorf("failed to upsert guild: %w", err)
	}
	return nil
}

// List returns all playlist names for a guild
func (r *DatabasePlaylistRepository) List(ctx context.Context, guildID string) ([]string, error) {
	names, err := r.db.Queries.ListPlaylistNamesByGuild(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return names, nil
}

// Load loads a playlist by name for a guild
func (r *DatabasePlaylistRepository) Load(ctx context.Context, guildID, name string) (*entities.Playlist, error) {
	row, err := r.db.Queries.GetPlaylistByName(ctx, database.GetPlaylistByNameParams{
		GuildID: guildID,
		Name:    name,
	})
	if err != nil {
		if stderrors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Playlist doesn't exist
		}
		return nil, fmt.Errorf("failed to load playlist: %w", err)
	}

	rows, err := r.db.Queries.ListPlaylistItems(ctx, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load playlist items: %w", err)
	}

	playlist := &entities.Playlist{
		GuildID:   row.GuildID,
		Name:      row.Name,
		Items:     make([]string, 0, len(rows)),
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	for _, item := range rows {
		playlist.Items = append(playlist.Items, item.TrackRef)
	}

	return playlist, nil
}

// Create inserts a new playlist, upserting its guild first
func (r *DatabasePlaylistRepository) Create(ctx context.Context, playlist *entities.Playlist) error {
	return r.db.InTx(ctx, func(q *database.Queries) error {
		if err := q.UpsertGuild(ctx, playlist.GuildID); err != nil {
			return fmt.Errorf("failed to upsert guild: %w", err)
		}

		createdAt := playlist.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		row, err := q.CreatePlaylist(ctx, database.CreatePlaylistParams{
			ID:        uuid.New(),
			GuildID:   playlist.GuildID,
			Name:      playlist.Name,
			CreatedAt: createdAt,
		})
		if err != nil {
			var pgErr *pgconn.PgError
			if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return fmt.Errorf("%w: '%s'", errors.ErrPlaylistExists, playlist.Name)
			}
			return fmt.Errorf("failed to create playlist: %w", err)
		}

		return insertItems(ctx, q, row.ID, playlist.Items)
	})
}

// Save rewrites the items of an existing playlist in one transaction
func (r *DatabasePlaylistRepository) Save(ctx context.Context, playlist *entities.Playlist) error {
	return r.db.InTx(ctx, func(q *database.Queries) error {
		row, err := q.GetPlaylistByName(ctx, database.GetPlaylistByNameParams{
			GuildID: playlist.GuildID,
			Name:    playlist.Name,
		})
		if err != nil {
			if stderrors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: '%s'", errors.ErrPlaylistNotFound, playlist.Name)
			}
			return fmt.Errorf("failed to load playlist: %w", err)
		}

		if err := q.DeletePlaylistItems(ctx, row.ID); err != nil {
			return fmt.Errorf("failed to clear playlist items: %w", err)
		}
		if err := insertItems(ctx, q, row.ID, playlist.Items); err != nil {
			return err
		}

		updatedAt := playlist.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now()
		}
		if err := q.TouchPlaylist(ctx, row.ID, updatedAt); err != nil {
			return fmt.Errorf("failed to update playlist: %w", err)
		}
		return nil
	})
}

// Delete deletes a playlist by name for a guild; its items cascade
func (r *DatabasePlaylistRepository) Delete(ctx context.Context, guildID, name string) error {
	n, err := r.db.Queries.DeletePlaylistByName(ctx, database.DeletePlaylistByNameParams{
		GuildID: guildID,
		Name:    name,
	})
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: '%s'", errors.ErrPlaylistNotFound, name)
	}
	return nil
}

func insertItems(ctx context.Context, q *database.Queries, playlistID uuid.UUID, items []string) error {
	for i, item := range items {
		err := q.AddPlaylistItem(ctx, database.AddPlaylistItemParams{
			PlaylistID: playlistID,
			Position:   int32(i),
			TrackRef:   item,
		})
		if err != nil {
			return fmt.Errorf("failed to add playlist item: %w", err)
		}
	}
	return nil
}
