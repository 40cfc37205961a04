package voice

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
	"github.com/vuongmanhnghia/playlist-bot/internal/services/gate"
	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

const (
	testGuild = "1"
	botID     = "999"
)

type fakeLink struct {
	ready        atomic.Bool
	disconnected atomic.Int32
}

func (f *fakeLink) IsReady() bool { return f.ready.Load() }

func (f *fakeLink) Disconnect(context.Context) error {
	f.disconnected.Add(1)
	return nil
}

type fakeDialer struct {
	links   []*fakeLink
	dialed  []string
	err     error
	noReady bool
}

func (d *fakeDialer) dial(_ context.Context, _, channelID string) (Link, error) {
	d.dialed = append(d.dialed, channelID)
	if d.err != nil {
		return nil, d.err
	}
	l := &fakeLink{}
	l.ready.Store(!d.noReady)
	d.links = append(d.links, l)
	return l, nil
}

func newTestState(t *testing.T, voiceStates ...*discordgo.VoiceState) *discordgo.State {
	t.Helper()
	state := discordgo.NewState()
	state.User = &discordgo.User{ID: botID}

	require.NoError(t, state.GuildAdd(&discordgo.Guild{
		ID: testGuild,
		Channels: []*discordgo.Channel{
			{ID: "100", GuildID: testGuild, Name: "Lounge", Type: discordgo.ChannelTypeGuildVoice},
			{ID: "300", GuildID: testGuild, Name: "Stage", Type: discordgo.ChannelTypeGuildStageVoice},
		},
		VoiceStates: voiceStates,
	}))
	return state
}

func newTestManager(t *testing.T, d *fakeDialer, state *discordgo.State) (*Manager, *PlaybackTracker) {
	t.Helper()
	tracker := NewPlaybackTracker()
	m := NewManager(state, d.dial, tracker, map[string]string{testGuild: "300"}, logger.Discard())
	return m, tracker
}

func TestJoinAndCurrentChannel(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, newTestState(t))

	assert.Nil(t, m.CurrentChannel(testGuild))

	require.NoError(t, m.Join(context.Background(), testGuild, gate.Channel{ID: snowflake.ID(100)}))

	ch := m.CurrentChannel(testGuild)
	require.NotNil(t, ch)
	assert.Equal(t, snowflake.ID(100), ch.ID)
	assert.Equal(t, "Lounge", ch.Name)
	assert.False(t, ch.Stage)
	assert.Equal(t, 1, m.Connected())
}

func TestJoinSameChannelIsNoop(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, newTestState(t))
	target := gate.Channel{ID: snowflake.ID(100)}

	require.NoError(t, m.Join(context.Background(), testGuild, target))
	require.NoError(t, m.Join(context.Background(), testGuild, target))

	assert.Len(t, d.dialed, 1)
}

func TestJoinMovesChannels(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, newTestState(t))

	require.NoError(t, m.Join(context.Background(), testGuild, gate.Channel{ID: snowflake.ID(100)}))
	require.NoError(t, m.Join(context.Background(), testGuild, gate.Channel{ID: snowflake.ID(300)}))

	require.Len(t, d.links, 2)
	assert.Equal(t, int32(1), d.links[0].disconnected.Load())
	assert.True(t, m.CurrentChannel(testGuild).Stage)
}

func TestJoinDialError(t *testing.T) {
	d := &fakeDialer{err: fmt.Errorf("missing permissions")}
	m, _ := newTestManager(t, d, newTestState(t))

	err := m.Join(context.Background(), testGuild, gate.Channel{ID: snowflake.ID(100)})
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Nil(t, m.CurrentChannel(testGuild))
}

func TestJoinTimesOutWhenNeverReady(t *testing.T) {
	d := &fakeDialer{noReady: true}
	m, _ := newTestManager(t, d, newTestState(t))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := m.Join(ctx, testGuild, gate.Channel{ID: snowflake.ID(100)})
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	require.Len(t, d.links, 1)
	assert.Equal(t, int32(1), d.links[0].disconnected.Load())
	assert.Zero(t, m.Connected())
}

func TestLeaveClearsPlaying(t *testing.T) {
	d := &fakeDialer{}
	m, tracker := newTestManager(t, d, newTestState(t))

	assert.ErrorIs(t, m.Leave(testGuild), ErrNotConnected)

	require.NoError(t, m.Join(context.Background(), testGuild, gate.Channel{ID: snowflake.ID(100)}))
	tracker.SetPlaying(testGuild, true)

	require.NoError(t, m.Leave(testGuild))
	assert.False(t, tracker.IsPlaying(testGuild))
	assert.Nil(t, m.CurrentChannel(testGuild))
	assert.Equal(t, int32(1), d.links[0].disconnected.Load())
}

func TestCurrentChannelFromSessionState(t *testing.T) {
	state := newTestState(t, &discordgo.VoiceState{GuildID: testGuild, UserID: botID, ChannelID: "100"})
	m, _ := newTestManager(t, &fakeDialer{}, state)

	ch := m.CurrentChannel(testGuild)
	require.NotNil(t, ch)
	assert.Equal(t, snowflake.ID(100), ch.ID)
}

func TestConfiguredChannel(t *testing.T) {
	m, _ := newTestManager(t, &fakeDialer{}, newTestState(t))

	ch := m.ConfiguredChannel(testGuild)
	require.NotNil(t, ch)
	assert.Equal(t, "Stage", ch.Name)
	assert.True(t, ch.Stage)

	assert.Nil(t, m.ConfiguredChannel("other"))
}

func TestListenerOf(t *testing.T) {
	state := newTestState(t,
		&discordgo.VoiceState{GuildID: testGuild, UserID: "10", ChannelID: "100"},
		&discordgo.VoiceState{GuildID: testGuild, UserID: "11", ChannelID: "100", SelfDeaf: true},
		&discordgo.VoiceState{GuildID: testGuild, UserID: "12", ChannelID: "100", Deaf: true},
	)
	m, _ := newTestManager(t, &fakeDialer{}, state)

	l := m.ListenerOf(testGuild, "10")
	require.NotNil(t, l.Channel)
	assert.Equal(t, "Lounge", l.Channel.Name)
	assert.False(t, l.Deafened)

	assert.True(t, m.ListenerOf(testGuild, "11").Deafened)
	assert.True(t, m.ListenerOf(testGuild, "12").Deafened)
	assert.Nil(t, m.ListenerOf(testGuild, "13").Channel)
}

func TestHandleVoiceStateUpdate(t *testing.T) {
	d := &fakeDialer{}
	m, tracker := newTestManager(t, d, newTestState(t))
	require.NoError(t, m.Join(context.Background(), testGuild, gate.Channel{ID: snowflake.ID(100)}))
	tracker.SetPlaying(testGuild, true)

	// Someone else moving is ignored
	m.HandleVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{GuildID: testGuild, UserID: "10", ChannelID: ""},
	})
	assert.Equal(t, 1, m.Connected())

	m.HandleVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{GuildID: testGuild, UserID: botID, ChannelID: "300"},
	})
	assert.Equal(t, snowflake.ID(300), m.CurrentChannel(testGuild).ID)

	m.HandleVoiceStateUpdate(nil, &discordgo.VoiceStateUpdate{
		VoiceState: &discordgo.VoiceState{GuildID: testGuild, UserID: botID, ChannelID: ""},
	})
	assert.Zero(t, m.Connected())
	assert.False(t, tracker.IsPlaying(testGuild))
}

func TestShutdown(t *testing.T) {
	d := &fakeDialer{}
	m, _ := newTestManager(t, d, newTestState(t))
	require.NoError(t, m.Join(context.Background(), testGuild, gate.Channel{ID: snowflake.ID(100)}))

	m.Shutdown()

	assert.Zero(t, m.Connected())
	assert.Equal(t, int32(1), d.links[0].disconnected.Load())
}

func TestPlaybackTracker(t *testing.T) {
	tracker := NewPlaybackTracker()

	assert.False(t, tracker.IsPlaying("g1"))
	tracker.SetPlaying("g1", true)
	tracker.SetPlaying("g2", true)
	assert.True(t, tracker.IsPlaying("g1"))
	assert.Equal(t, 2, tracker.ActiveGuilds())

	tracker.SetPlaying("g1", false)
	assert.False(t, tracker.IsPlaying("g1"))
	assert.Equal(t, 1, tracker.ActiveGuilds())
}

func TestTrackerDrivesPlayingRequirement(t *testing.T) {
	state := newTestState(t, &discordgo.VoiceState{GuildID: testGuild, UserID: "10", ChannelID: "100"})
	d := &fakeDialer{}
	m, tracker := newTestManager(t, d, state)
	evaluator := gate.NewEvaluator(tracker, m, m, time.Second, logger.Discard())

	req := gate.Request{
		Requirements: gate.Requirements{MustBePlaying: true, MustBeListening: true},
		GuildID:      testGuild,
		User:         m.ListenerOf(testGuild, "10"),
	}

	out := evaluator.Evaluate(context.Background(), req)
	assert.Equal(t, gate.StatusRejected, out.Status)
	assert.ErrorIs(t, out.Err, errors.ErrNotPlaying)
	assert.Empty(t, d.dialed)

	require.NoError(t, m.Join(context.Background(), testGuild, gate.Channel{ID: snowflake.ID(100)}))
	tracker.SetPlaying(testGuild, true)

	out = evaluator.Evaluate(context.Background(), req)
	assert.Equal(t, gate.StatusProceed, out.Status)
	require.NotNil(t, out.Channel)
	assert.Equal(t, snowflake.ID(100), out.Channel.ID)

	require.NoError(t, m.Leave(testGuild))
	out = evaluator.Evaluate(context.Background(), req)
	assert.ErrorIs(t, out.Err, errors.ErrNotPlaying)
}

var (
	_ gate.VoiceSessionManager = (*Manager)(nil)
	_ gate.ChannelDirectory    = (*Manager)(nil)
	_ gate.AudioOracle         = (*PlaybackTracker)(nil)
)
