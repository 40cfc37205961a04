package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vuongmanhnghia/playlist-bot/internal/domain/entities"
	"github.com/vuongmanhnghia/playlist-bot/internal/domain/repositories"
	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
	"github.com/vuongmanhnghia/playlist-bot/internal/metrics"
	"github.com/vuongmanhnghia/playlist-bot/internal/utils"
	"github.com/vuongmanhnghia/playlist-bot/internal/validation"
	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

// PlaylistService manages guild playlists. Every operation on one playlist runs
// under that playlist's lock; the cache is only touched while holding it.
type PlaylistService struct {
	repo   repositories.PlaylistRepository
	cache  *utils.SmartCache[*entities.Playlist]
	locks  *KeyedMutex
	logger *logger.Logger
}

// CacheConfig sizes the playlist read cache
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// NewPlaylistService creates a new playlist service over repo
func NewPlaylistService(repo repositories.PlaylistRepository, cacheCfg CacheConfig, log *logger.Logger) *PlaylistService {
	return &PlaylistService{
		repo:   repo,
		cache:  utils.NewSmartCache[*entities.Playlist](cacheCfg.Size, cacheCfg.TTL),
		locks:  NewKeyedMutex(),
		logger: log,
	}
}

// Cache exposes the read cache for stats and cleanup
func (s *PlaylistService) Cache() *utils.SmartCache[*entities.Playlist] {
	return s.cache
}

// StartCacheSweeper drops expired cache entries every interval until stop is
// closed. It returns immediately.
func (s *PlaylistService) StartCacheSweeper(interval time.Duration, stop <-chan struct{}) {
	if !s.cache.Enabled() || interval <= 0 {
		return
	}
	go s.cache.RunCleanup(interval, stop)
}

// NamespaceExists reports whether a guild has a playlist namespace
func (s *PlaylistService) NamespaceExists(ctx context.Context, guildID string) (bool, error) {
	start := time.Now()
	exists, err := s.repo.NamespaceExists(ctx, guildID)
	s.observe("namespace_exists", start, err)
	if err != nil {
		return false, s.storageError(guildID, "", err)
	}
	return exists, nil
}

// CreateNamespace creates a guild's namespace. It is a no-op when one exists.
func (s *PlaylistService) CreateNamespace(ctx context.Context, guildID string) error {
	start := time.Now()
	err := s.repo.CreateNamespace(ctx, guildID)
	s.observe("create_namespace", start, err)
	if err != nil {
		return s.storageError(guildID, "", err)
	}
	return nil
}

// ListPlaylistNames returns every playlist name in a guild, creating the
// namespace first if it is missing
func (s *PlaylistService) ListPlaylistNames(ctx context.Context, guildID string) ([]string, error) {
	exists, err := s.NamespaceExists(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := s.CreateNamespace(ctx, guildID); err != nil {
			return nil, err
		}
		return []string{}, nil
	}

	start := time.Now()
	names, err := s.repo.List(ctx, guildID)
	s.observe("list", start, err)
	if err != nil {
		return nil, s.storageError(guildID, "", err)
	}
	if names == nil {
		names = []string{}
	}
	return names, nil
}

// GetPlaylist loads a playlist by name
func (s *PlaylistService) GetPlaylist(ctx context.Context, guildID, name string) (*entities.Playlist, error) {
	name, err := validation.NormalizePlaylistName(name)
	if err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, guildID, name)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := time.Now()
	playlist, err := s.loadLocked(ctx, guildID, name)
	s.observe("get", start, err)
	if err != nil {
		return nil, err
	}
	return playlist, nil
}

// CreatePlaylist creates a new empty playlist
func (s *PlaylistService) CreatePlaylist(ctx context.Context, guildID, name string) error {
	name, err := validation.NormalizePlaylistName(name)
	if err != nil {
		return err
	}

	unlock, err := s.lock(ctx, guildID, name)
	if err != nil {
		return err
	}
	defer unlock()

	start := time.Now()
	playlist := entities.NewPlaylist(guildID, name)
	err = s.repo.Create(ctx, playlist)
	s.observe("create", start, err)
	if err != nil {
		if errors.Is(err, errors.ErrPlaylistExists) {
			return fmt.Errorf("%w: '%s'", errors.ErrPlaylistExists, name)
		}
		return s.storageError(guildID, name, err)
	}

	s.cache.Set(cacheKey(guildID, name), playlist.Clone())
	s.logger.WithGuild(guildID).WithField("playlist", name).Info("Playlist created")
	return nil
}

// DeletePlaylist deletes a playlist and everything in it
func (s *PlaylistService) DeletePlaylist(ctx context.Context, guildID, name string) error {
	name, err := validation.NormalizePlaylistName(name)
	if err != nil {
		return err
	}

	unlock, err := s.lock(ctx, guildID, name)
	if err != nil {
		return err
	}
	defer unlock()

	start := time.Now()
	err = s.repo.Delete(ctx, guildID, name)
	s.observe("delete", start, err)
	s.cache.Delete(cacheKey(guildID, name))
	if err != nil {
		if errors.Is(err, errors.ErrPlaylistNotFound) {
			return fmt.Errorf("%w: '%s'", errors.ErrPlaylistNotFound, name)
		}
		return s.storageError(guildID, name, err)
	}

	s.logger.WithGuild(guildID).WithField("playlist", name).Info("Playlist deleted")
	return nil
}

// AppendItems adds items to the end of a playlist and returns how many were added.
// One surrounding "<" ">" pair is stripped from each item; blank items are dropped.
// Items spanning more than one line are rejected.
func (s *PlaylistService) AppendItems(ctx context.Context, guildID, name string, items []string) (int, error) {
	name, err := validation.NormalizePlaylistName(name)
	if err != nil {
		return 0, err
	}

	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		item = validation.StripAngleBrackets(validation.SanitizeInput(item))
		if strings.ContainsAny(item, "\r\n") {
			return 0, fmt.Errorf("%w: track reference %q spans multiple lines", errors.ErrInvalidInput, item)
		}
		if item != "" {
			cleaned = append(cleaned, item)
		}
	}
	if len(cleaned) == 0 {
		return 0, fmt.Errorf("%w: nothing to append", errors.ErrInvalidInput)
	}

	unlock, err := s.lock(ctx, guildID, name)
	if err != nil {
		return 0, err
	}
	defer unlock()

	start := time.Now()
	playlist, err := s.loadLocked(ctx, guildID, name)
	if err != nil {
		s.observe("append", start, err)
		return 0, err
	}

	playlist.Append(cleaned...)
	err = s.repo.Save(ctx, playlist)
	s.observe("append", start, err)
	if err != nil {
		s.cache.Delete(cacheKey(guildID, name))
		if errors.Is(err, errors.ErrPlaylistNotFound) {
			return 0, fmt.Errorf("%w: '%s'", errors.ErrPlaylistNotFound, name)
		}
		return 0, s.storageError(guildID, name, err)
	}

	s.cache.Set(cacheKey(guildID, name), playlist.Clone())
	s.logger.WithGuild(guildID).WithFields(map[string]interface{}{
		"playlist": name,
		"added":    len(cleaned),
		"total":    playlist.Len(),
	}).Info("Items appended to playlist")

	return len(cleaned), nil
}

// loadLocked returns a private copy of a playlist. Caller holds the playlist lock.
func (s *PlaylistService) loadLocked(ctx context.Context, guildID, name string) (*entities.Playlist, error) {
	key := cacheKey(guildID, name)
	if cached, ok := s.cache.Get(key); ok {
		return cached.Clone(), nil
	}

	playlist, err := s.repo.Load(ctx, guildID, name)
	if err != nil {
		return nil, s.storageError(guildID, name, err)
	}
	if playlist == nil {
		return nil, fmt.Errorf("%w: '%s'", errors.ErrPlaylistNotFound, name)
	}

	s.cache.Set(key, playlist.Clone())
	return playlist, nil
}

func (s *PlaylistService) lock(ctx context.Context, guildID, name string) (func(), error) {
	unlock, err := s.locks.Lock(ctx, cacheKey(guildID, name))
	if err != nil {
		return nil, s.storageError(guildID, name, fmt.Errorf("waiting for playlist lock: %w", err))
	}
	return unlock, nil
}

// storageError wraps unexpected repository failures so they are never mistaken
// for a missing playlist
func (s *PlaylistService) storageError(guildID, name string, err error) error {
	if errors.Is(err, errors.ErrStorage) || errors.Is(err, errors.ErrInvalidInput) {
		return err
	}

	s.logger.WithGuild(guildID).WithField("playlist", name).WithError(err).Error("Playlist storage failure")
	return fmt.Errorf("%w: %w", errors.ErrStorage, err)
}

func (s *PlaylistService) observe(op string, start time.Time, err error) {
	metrics.ObserveStore(op, resultLabel(err), start)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, errors.ErrPlaylistNotFound):
		return "not_found"
	case errors.Is(err, errors.ErrPlaylistExists):
		return "exists"
	case errors.Is(err, errors.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}

func cacheKey(guildID, name string) string {
	return guildID + "/" + name
}
