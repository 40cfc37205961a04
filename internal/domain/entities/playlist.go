package entities

import "time"

// Playlist represents a saved, ordered list of track references owned by a guild
type Playlist struct {
	GuildID   string
	Name      string
	Items     []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewPlaylist creates a new empty playlist
func NewPlaylist(guildID, name string) *Playlist {
	now := time.Now()
	return &Playlist{
		GuildID:   guildID,
		Name:      name,
		Items:     make([]string, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Append adds items to the end of the playlist, keeping duplicates
func (p *Playlist) Append(items ...string) {
	if len(items) == 0 {
		return
	}
	p.Items = append(p.Items, items...)
	p.UpdatedAt = time.Now()
}

// Len returns the number of items in the playlist
func (p *Playlist) Len() int {
	return len(p.Items)
}

// IsEmpty reports whether the playlist holds no items
func (p *Playlist) IsEmpty() bool {
	return len(p.Items) == 0
}

// Clone returns a deep copy so callers can't mutate shared state
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}
	c := *p
	c.Items = make([]string, len(p.Items))
	copy(c.Items, p.Items)
	return &c
}
