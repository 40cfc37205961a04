package gate

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

type mockOracle struct {
	playing bool
	calls   int
}

func (m *mockOracle) IsPlaying(_ string) bool {
	m.calls++
	return m.playing
}

type mockVoice struct {
	current      *Channel
	joinErr      error
	currentCalls int
	joined       []Channel
	joinDeadline bool
}

func (m *mockVoice) CurrentChannel(_ string) *Channel {
	m.currentCalls++
	return m.current
}

func (m *mockVoice) Join(ctx context.Context, _ string, c Channel) error {
	_, m.joinDeadline = ctx.Deadline()
	m.joined = append(m.joined, c)
	if m.joinErr != nil {
		return m.joinErr
	}
	m.current = &c
	return nil
}

type mockDirectory struct {
	channels map[string]*Channel
}

func (m *mockDirectory) ConfiguredChannel(guildID string) *Channel {
	return m.channels[guildID]
}

func newTestEvaluator(oracle *mockOracle, voice *mockVoice, dir ChannelDirectory) *Evaluator {
	return NewEvaluator(oracle, voice, dir, time.Second, logger.Discard())
}

func TestEvaluateNotPlayingNeverTouchesVoice(t *testing.T) {
	oracle := &mockOracle{}
	voice := &mockVoice{}
	e := newTestEvaluator(oracle, voice, nil)

	out := e.Evaluate(context.Background(), Request{
		GuildID:      "g1",
		Requirements: Requirements{MustBePlaying: true, MustBeListening: true},
		User:         Listener{Channel: lounge},
	})

	assert.Equal(t, StatusRejected, out.Status)
	assert.ErrorIs(t, out.Err, errors.ErrNotPlaying)
	assert.Equal(t, 1, oracle.calls)
	assert.Zero(t, voice.currentCalls)
	assert.Empty(t, voice.joined)
}

func TestEvaluateNoRequirementsReadsNothing(t *testing.T) {
	oracle := &mockOracle{}
	voice := &mockVoice{}
	e := newTestEvaluator(oracle, voice, nil)

	out := e.Evaluate(context.Background(), Request{GuildID: "g1"})

	assert.Equal(t, StatusProceed, out.Status)
	assert.Zero(t, oracle.calls)
	assert.Zero(t, voice.currentCalls)
}

func TestEvaluateJoinsUserChannel(t *testing.T) {
	voice := &mockVoice{}
	e := newTestEvaluator(&mockOracle{}, voice, nil)

	out := e.Evaluate(context.Background(), Request{
		GuildID:      "g1",
		Requirements: Requirements{MustBeListening: true},
		User:         Listener{Channel: studio},
	})

	require.Equal(t, StatusProceed, out.Status)
	assert.True(t, out.Joined)
	require.NotNil(t, out.Channel)
	assert.Equal(t, studio.ID, out.Channel.ID)
	assert.Empty(t, out.Notice)
	require.Len(t, voice.joined, 1)
	assert.Equal(t, studio.ID, voice.joined[0].ID)
	assert.True(t, voice.joinDeadline, "join should be bounded by the timeout")
}

func TestEvaluateJoinFailure(t *testing.T) {
	voice := &mockVoice{joinErr: fmt.Errorf("voice handshake timed out")}
	e := newTestEvaluator(&mockOracle{}, voice, nil)

	out := e.Evaluate(context.Background(), Request{
		GuildID:      "g1",
		Requirements: Requirements{MustBeListening: true},
		User:         Listener{Channel: studio},
	})

	assert.Equal(t, StatusJoinFailed, out.Status)
	assert.ErrorIs(t, out.Err, errors.ErrJoinFailed)
	assert.Contains(t, errors.GetUserMessage(out.Err), "Studio")
	assert.False(t, out.Joined)
}

func TestEvaluateStageJoinAddsNotice(t *testing.T) {
	e := newTestEvaluator(&mockOracle{}, &mockVoice{}, nil)

	out := e.Evaluate(context.Background(), Request{
		GuildID:      "g1",
		Requirements: Requirements{MustBeListening: true},
		User:         Listener{Channel: stage},
	})

	assert.Equal(t, StatusProceed, out.Status)
	assert.Equal(t, StageNotice, out.Notice)
}

func TestEvaluateDeafenedNeverJoins(t *testing.T) {
	for _, current := range []*Channel{nil, lounge} {
		voice := &mockVoice{current: current}
		e := newTestEvaluator(&mockOracle{}, voice, nil)

		out := e.Evaluate(context.Background(), Request{
			GuildID:      "g1",
			Requirements: Requirements{MustBeListening: true},
			User:         Listener{Channel: lounge, Deafened: true},
		})

		assert.Equal(t, StatusRejected, out.Status)
		assert.Empty(t, voice.joined)
	}
}

func TestEvaluateUsesConfiguredChannel(t *testing.T) {
	dir := &mockDirectory{channels: map[string]*Channel{"g1": lounge}}
	voice := &mockVoice{}
	e := newTestEvaluator(&mockOracle{}, voice, dir)

	out := e.Evaluate(context.Background(), Request{
		GuildID:      "g1",
		Requirements: Requirements{MustBeListening: true},
		User:         Listener{Channel: studio},
	})
	assert.Equal(t, StatusRejected, out.Status)
	assert.ErrorIs(t, out.Err, errors.ErrWrongChannel)
	assert.Contains(t, errors.GetUserMessage(out.Err), "Lounge")

	out = e.Evaluate(context.Background(), Request{
		GuildID:      "g1",
		Requirements: Requirements{MustBeListening: true},
		User:         Listener{Channel: lounge},
	})
	assert.Equal(t, StatusProceed, out.Status)
	assert.True(t, out.Joined)
}

func TestEvaluateAlreadyTogether(t *testing.T) {
	oracle := &mockOracle{playing: true}
	voice := &mockVoice{current: lounge}
	e := newTestEvaluator(oracle, voice, nil)

	out := e.Evaluate(context.Background(), Request{
		GuildID:      "g1",
		Requirements: Requirements{MustBePlaying: true, MustBeListening: true},
		User:         Listener{Channel: lounge},
	})

	assert.Equal(t, StatusProceed, out.Status)
	assert.False(t, out.Joined)
	assert.Equal(t, lounge.ID, out.Channel.ID)
	assert.Empty(t, voice.joined)
}
