package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"

	"github.com/vuongmanhnghia/playlist-bot/internal/services/gate"
	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

var (
	// ErrNotConnected is returned when not connected to a voice channel
	ErrNotConnected = errors.New("not connected to voice channel")
	// ErrConnectionFailed is returned when connection fails
	ErrConnectionFailed = errors.New("failed to connect to voice channel")
)

const (
	readyPollInterval = 100 * time.Millisecond
	disconnectTimeout = 5 * time.Second
)

// Link is an established or pending voice connection
type Link interface {
	IsReady() bool
	Disconnect(ctx context.Context) error
}

// Dialer opens a voice connection (mute=false, deaf=true)
type Dialer func(ctx context.Context, guildID, channelID string) (Link, error)

type discordLink struct {
	vc *discordgo.VoiceConnection
}

func (l *discordLink) IsReady() bool {
	l.vc.Cond.L.Lock()
	defer l.vc.Cond.L.Unlock()
	return l.vc.Status == discordgo.VoiceConnectionStatusReady
}

func (l *discordLink) Disconnect(ctx context.Context) error {
	return l.vc.Disconnect(ctx)
}

// SessionDialer dials through a discordgo session. The join itself waits for
// the connection to become ready or ctx to end.
func SessionDialer(s *discordgo.Session) Dialer {
	return func(ctx context.Context, guildID, channelID string) (Link, error) {
		vc, err := s.ChannelVoiceJoin(ctx, guildID, channelID, false, true)
		if err != nil {
			if vc != nil {
				vc.Kill()
			}
			return nil, err
		}
		return &discordLink{vc: vc}, nil
	}
}

type connection struct {
	channelID string
	link      Link
}

// Manager tracks the bot's voice connection per guild
type Manager struct {
	state      *discordgo.State
	dial       Dialer
	tracker    *PlaybackTracker
	configured map[string]string // guildID -> fallback voice channel ID
	logger     *logger.Logger

	mu    sync.RWMutex
	conns map[string]*connection
}

// NewManager creates a voice manager. configured maps guild IDs to the voice
// channel the bot is expected to use there.
func NewManager(state *discordgo.State, dial Dialer, tracker *PlaybackTracker, configured map[string]string, log *logger.Logger) *Manager {
	if configured == nil {
		configured = map[string]string{}
	}
	return &Manager{
		state:      state,
		dial:       dial,
		tracker:    tracker,
		configured: configured,
		logger:     log,
		conns:      make(map[string]*connection),
	}
}

// Join connects to channel and waits until the connection is ready or ctx ends
func (m *Manager) Join(ctx context.Context, guildID string, channel gate.Channel) error {
	channelID := channel.ID.String()
	log := m.logger.WithGuild(guildID).WithField("channel", channelID)

	m.mu.Lock()
	var stale *connection
	if conn, ok := m.conns[guildID]; ok {
		if conn.channelID == channelID && conn.link.IsReady() {
			m.mu.Unlock()
			log.Debug("Already connected to this channel")
			return nil
		}
		delete(m.conns, guildID)
		stale = conn
	}
	m.mu.Unlock()

	if stale != nil {
		if err := disconnect(stale.link); err != nil {
			log.WithError(err).Warn("Failed to disconnect before moving")
		}
	}

	log.Info("Connecting to voice channel...")

	link, err := m.dial(ctx, guildID, channelID)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()

	for !link.IsReady() {
		select {
		case <-ctx.Done():
			if err := disconnect(link); err != nil {
				log.WithError(err).Debug("Failed to drop unready connection")
			}
			return fmt.Errorf("%w: connection not ready: %w", ErrConnectionFailed, ctx.Err())
		case <-ticker.C:
		}
	}

	m.mu.Lock()
	prev, replaced := m.conns[guildID]
	m.conns[guildID] = &connection{channelID: channelID, link: link}
	m.mu.Unlock()

	if replaced && prev.link != link {
		if err := disconnect(prev.link); err != nil {
			log.WithError(err).Warn("Failed to drop replaced connection")
		}
	}

	log.Info("✅ Successfully connected to voice channel")
	return nil
}

// Leave disconnects from the guild's voice channel and clears its playing flag
func (m *Manager) Leave(guildID string) error {
	m.mu.Lock()
	conn, ok := m.conns[guildID]
	delete(m.conns, guildID)
	m.mu.Unlock()

	m.tracker.SetPlaying(guildID, false)

	if !ok {
		return ErrNotConnected
	}
	if err := disconnect(conn.link); err != nil {
		return fmt.Errorf("failed to disconnect: %w", err)
	}

	m.logger.WithGuild(guildID).Info("✅ Disconnected from voice channel")
	return nil
}

// CurrentChannel returns the bot's voice channel in a guild, or nil
func (m *Manager) CurrentChannel(guildID string) *gate.Channel {
	m.mu.RLock()
	conn, ok := m.conns[guildID]
	m.mu.RUnlock()

	if ok {
		return m.resolve(conn.channelID)
	}

	// Connections made before a restart are only visible in session state
	if m.state != nil && m.state.User != nil {
		if vs, err := m.state.VoiceState(guildID, m.state.User.ID); err == nil && vs.ChannelID != "" {
			return m.resolve(vs.ChannelID)
		}
	}
	return nil
}

// ConfiguredChannel returns the guild's configured voice channel, or nil
func (m *Manager) ConfiguredChannel(guildID string) *gate.Channel {
	channelID, ok := m.configured[guildID]
	if !ok || channelID == "" {
		return nil
	}
	return m.resolve(channelID)
}

// ListenerOf returns a member's voice state as the gate sees it
func (m *Manager) ListenerOf(guildID, userID string) gate.Listener {
	if m.state == nil {
		return gate.Listener{}
	}

	vs, err := m.state.VoiceState(guildID, userID)
	if err != nil || vs.ChannelID == "" {
		return gate.Listener{}
	}

	return gate.Listener{
		Channel:  m.resolve(vs.ChannelID),
		Deafened: vs.Deaf || vs.SelfDeaf,
	}
}

// HandleVoiceStateUpdate keeps connections in sync when the bot is moved or
// disconnected by someone else
func (m *Manager) HandleVoiceStateUpdate(_ *discordgo.Session, vsu *discordgo.VoiceStateUpdate) {
	if vsu == nil || vsu.VoiceState == nil || m.state == nil || m.state.User == nil {
		return
	}
	if vsu.UserID != m.state.User.ID {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[vsu.GuildID]
	if !ok {
		return
	}

	if vsu.ChannelID == "" {
		delete(m.conns, vsu.GuildID)
		m.tracker.SetPlaying(vsu.GuildID, false)
		m.logger.WithGuild(vsu.GuildID).Info("Bot was disconnected from voice")
		return
	}
	conn.channelID = vsu.ChannelID
}

// Connected returns the number of guilds with an active connection
func (m *Manager) Connected() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns)
}

// Shutdown disconnects every voice connection
func (m *Manager) Shutdown() {
	m.mu.Lock()
	conns := m.conns
	m.conns = make(map[string]*connection)
	m.mu.Unlock()

	for guildID, conn := range conns {
		if err := disconnect(conn.link); err != nil {
			m.logger.WithGuild(guildID).WithError(err).Warn("Failed to disconnect during shutdown")
		}
		m.tracker.SetPlaying(guildID, false)
	}
}

// resolve turns a channel ID into a gate channel, using session state for
// the name and type when available
func (m *Manager) resolve(channelID string) *gate.Channel {
	id, err := snowflake.Parse(channelID)
	if err != nil {
		m.logger.WithError(err).WithField("channel", channelID).Warn("Invalid channel ID")
		return nil
	}

	ch := &gate.Channel{ID: id, Name: channelID}
	if m.state == nil {
		return ch
	}
	if dc, err := m.state.Channel(channelID); err == nil {
		ch.Name = dc.Name
		ch.Stage = dc.Type == discordgo.ChannelTypeGuildStageVoice
	}
	return ch
}

func disconnect(link Link) error {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	return link.Disconnect(ctx)
}
