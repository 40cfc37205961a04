package voice

import "sync"

// PlaybackTracker records which guilds are currently playing audio.
// The audio player, which runs outside this module, reports playback start
// through SetPlaying; this module only clears the flag on leave or disconnect.
type PlaybackTracker struct {
	mu      sync.RWMutex
	playing map[string]bool
}

// NewPlaybackTracker creates an empty tracker
func NewPlaybackTracker() *PlaybackTracker {
	return &PlaybackTracker{
		playing: make(map[string]bool),
	}
}

// SetPlaying records the playback state for a guild
func (t *PlaybackTracker) SetPlaying(guildID string, playing bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if playing {
		t.playing[guildID] = true
		return
	}
	delete(t.playing, guildID)
}

// IsPlaying returns true if audio is playing in the guild
func (t *PlaybackTracker) IsPlaying(guildID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.playing[guildID]
}

// ActiveGuilds returns how many guilds are playing
func (t *PlaybackTracker) ActiveGuilds() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.playing)
}
