package persistence

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vuongmanhnghia/playlist-bot/internal/domain/entities"
	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
)

const (
	playlistExt = ".txt"
	tempSuffix  = ".tmp"
)

// PlaylistRepository stores playlists as plain text files, one item per line,
// under <basePath>/<guildID>/<name>.txt.
//
// It does no locking of its own; callers serialize access per playlist.
type PlaylistRepository struct {
	basePath string
}

// NewPlaylistRepository creates a new playlist repository
func NewPlaylistRepository(basePath string) (*PlaylistRepository, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create playlist directory: %w", err)
	}

	return &PlaylistRepository{
		basePath: basePath,
	}, nil
}

// NamespaceExists reports whether the guild directory exists
func (r *PlaylistRepository) NamespaceExists(_ context.Context, guildID string) (bool, error) {
	dir, err := r.guildDir(guildID)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat guild directory: %w", err)
	}
	return info.IsDir(), nil
}

// CreateNamespace creates the guild directory
func (r *PlaylistRepository) CreateNamespace(_ context.Context, guildID string) error {
	dir, err := r.guildDir(guildID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create guild directory: %w", err)
	}
	return nil
}

// List returns all playlist names for a guild
func (r *PlaylistRepository) List(_ context.Context, guildID string) ([]string, error) {
	dir, err := r.guildDir(guildID)
	if err != nil {
		return nil, err
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to read guild directory: %w", err)
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		name := file.Name()
		if strings.HasSuffix(name, playlistExt) && !strings.HasPrefix(name, ".") {
			names = append(names, strings.TrimSuffix(name, playlistExt))
		}
	}

	sort.Strings(names)
	return names, nil
}

// Load loads a playlist file. Blank lines are skipped.
func (r *PlaylistRepository) Load(_ context.Context, guildID, name string) (*entities.Playlist, error) {
	path, err := r.filePath(guildID, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Playlist not found
		}
		return nil, fmt.Errorf("failed to read playlist file: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat playlist file: %w", err)
	}

	items := make([]string, 0)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse playlist file: %w", err)
	}

	// Plain files keep no creation time
	return &entities.Playlist{
		GuildID:   guildID,
		Name:      name,
		Items:     items,
		CreatedAt: info.ModTime(),
		UpdatedAt: info.ModTime(),
	}, nil
}

// Create writes a new empty playlist file, failing if one already exists
func (r *PlaylistRepository) Create(ctx context.Context, playlist *entities.Playlist) error {
	if err := r.CreateNamespace(ctx, playlist.GuildID); err != nil {
		return err
	}

	path, err := r.filePath(playlist.GuildID, playlist.Name)
	if err != nil {
		return err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return fmt.Errorf("%w: '%s'", errors.ErrPlaylistExists, playlist.Name)
		}
		return fmt.Errorf("failed to create playlist file: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close playlist file: %w", err)
	}

	if len(playlist.Items) > 0 {
		return r.Save(ctx, playlist)
	}
	return nil
}

// Save rewrites a playlist file with atomic write
func (r *PlaylistRepository) Save(_ context.Context, playlist *entities.Playlist) error {
	path, err := r.filePath(playlist.GuildID, playlist.Name)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	for i, item := range playlist.Items {
		if strings.ContainsAny(item, "\r\n") {
			return fmt.Errorf("%w: item %d spans multiple lines", errors.ErrInvalidInput, i+1)
		}
		buf.WriteString(item)
		buf.WriteByte('\n')
	}

	// Atomic write using temp file
	tempPath := path + tempSuffix
	if err := os.WriteFile(tempPath, buf.Bytes(), 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Delete removes a playlist file
func (r *PlaylistRepository) Delete(_ context.Context, guildID, name string) error {
	path, err := r.filePath(guildID, name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: '%s'", errors.ErrPlaylistNotFound, name)
		}
		return fmt.Errorf("failed to delete playlist file: %w", err)
	}

	return nil
}

// guildDir returns the directory holding a guild's playlists
func (r *PlaylistRepository) guildDir(guildID string) (string, error) {
	if guildID == "" || strings.ContainsAny(guildID, `/\`) || guildID == "." || guildID == ".." {
		return "", fmt.Errorf("%w: invalid guild ID %q", errors.ErrInvalidInput, guildID)
	}
	return filepath.Join(r.basePath, guildID), nil
}

// filePath returns the full file path for a playlist
func (r *PlaylistRepository) filePath(guildID, name string) (string, error) {
	dir, err := r.guildDir(guildID)
	if err != nil {
		return "", err
	}
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: invalid playlist name %q", errors.ErrInvalidInput, name)
	}
	return filepath.Join(dir, name+playlistExt), nil
}
