package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries holds the playlist SQL statements
type Queries struct {
	db DBTX
}

// New creates a Queries bound to db
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries running inside tx
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type Playlist struct {
	ID        uuid.UUID
	GuildID   string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PlaylistItem struct {
	PlaylistID uuid.UUID
	Position   int32
	TrackRef   string
	AddedAt    time.Time
}

const upsertGuild = `
INSERT INTO guilds (id) VALUES ($1)
ON CONFLICT (id) DO NOTHING
`

func (q *Queries) UpsertGuild(ctx context.Context, id string) error {
	_, err := q.db.Exec(ctx, upsertGuild, id)
	return err
}

const guildExists = `
SELECT EXISTS (SELECT 1 FROM guilds WHERE id = $1)
`

func (q *Queries) GuildExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, guildExists, id).Scan(&exists)
	return exists, err
}

const listPlaylistNamesByGuild = `
SELECT name FROM playlists
WHERE guild_id = $1
ORDER BY name
`

func (q *Queries) ListPlaylistNamesByGuild(ctx context.Context, guildID string) ([]string, error) {
	rows, err := q.db.Query(ctx, listPlaylistNamesByGuild, guildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

const getPlaylistByName = `
SELECT id, guild_id, name, created_at, updated_at FROM playlists
WHERE guild_id = $1 AND name = $2
`

type GetPlaylistByNameParams struct {
	GuildID string
	Name    string
}

func (q *Queries) GetPlaylistByName(ctx context.Context, arg GetPlaylistByNameParams) (Playlist, error) {
	var p Playlist
	err := q.db.QueryRow(ctx, getPlaylistByName, arg.GuildID, arg.Name).Scan(
		&p.ID,
		&p.GuildID,
		&p.Name,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const createPlaylist = `
INSERT INTO playlists (id, guild_id, name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
RETURNING id, guild_id, name, created_at, updated_at
`

type CreatePlaylistParams struct {
	ID        uuid.UUID
	GuildID   string
	Name      string
	CreatedAt time.Time
}

func (q *Queries) CreatePlaylist(ctx context.Context, arg CreatePlaylistParams) (Playlist, error) {
	var p Playlist
	err := q.db.QueryRow(ctx, createPlaylist, arg.ID, arg.GuildID, arg.Name, arg.CreatedAt).Scan(
		&p.ID,
		&p.GuildID,
		&p.Name,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const touchPlaylist = `
UPDATE playlists SET updated_at = $2 WHERE id = $1
`

func (q *Queries) TouchPlaylist(ctx context.Context, id uuid.UUID, updatedAt time.Time) error {
	_, err := q.db.Exec(ctx, touchPlaylist, id, updatedAt)
	return err
}

const deletePlaylistItems = `
DELETE FROM playlist_items WHERE playlist_id = $1
`

func (q *Queries) DeletePlaylistItems(ctx context.Context, playlistID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePlaylistItems, playlistID)
	return err
}

const addPlaylistItem = `
INSERT INTO playlist_items (playlist_id, position, track_ref)
VALUES ($1, $2, $3)
`

type AddPlaylistItemParams struct {
	PlaylistID uuid.UUID
	Position   int32
	TrackRef   string
}

func (q *Queries) AddPlaylistItem(ctx context.Context, arg AddPlaylistItemParams) error {
	_, err := q.db.Exec(ctx, addPlaylistItem, arg.PlaylistID, arg.Position, arg.TrackRef)
	return err
}

const listPlaylistItems = `
SELECT playlist_id, position, track_ref, added_at FROM playlist_items
WHERE playlist_id = $1
ORDER BY position
`

func (q *Queries) ListPlaylistItems(ctx context.Context, playlistID uuid.UUID) ([]PlaylistItem, error) {
	rows, err := q.db.Query(ctx, listPlaylistItems, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PlaylistItem
	for rows.Next() {
		var i PlaylistItem
		if err := rows.Scan(&i.PlaylistID, &i.Position, &i.TrackRef, &i.AddedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deletePlaylistByName = `
DELETE FROM playlists WHERE guild_id = $1 AND name = $2
`

type DeletePlaylistByNameParams struct {
	GuildID string
	Name    string
}

// DeletePlaylistByName returns the number of rows removed
func (q *Queries) DeletePlaylistByName(ctx context.Context, arg DeletePlaylistByNameParams) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePlaylistByName, arg.GuildID, arg.Name)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
