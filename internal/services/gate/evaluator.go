package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
	"github.com/vuongmanhnghia/playlist-bot/internal/metrics"
	"github.com/vuongmanhnghia/playlist-bot/pkg/logger"
)

// StageNotice is sent after auto-joining a stage channel
const StageNotice = "🎙️ I joined a stage channel. A stage moderator has to invite me to speak before anyone can hear me."

// AudioOracle reports whether audio is playing in a guild
type AudioOracle interface {
	IsPlaying(guildID string) bool
}

// VoiceSessionManager owns the bot's voice connections
type VoiceSessionManager interface {
	// CurrentChannel returns the channel the bot is connected to, or nil
	CurrentChannel(guildID string) *Channel
	// Join connects to the channel and returns once connected or failed
	Join(ctx context.Context, guildID string, channel Channel) error
}

// ChannelDirectory resolves a guild's configured fallback voice channel
type ChannelDirectory interface {
	ConfiguredChannel(guildID string) *Channel
}

// Status is the outcome of an evaluation
type Status int

const (
	StatusProceed Status = iota
	StatusRejected
	StatusJoinFailed
)

func (s Status) String() string {
	switch s {
	case StatusProceed:
		return "proceed"
	case StatusRejected:
		return "rejected"
	case StatusJoinFailed:
		return "join_failed"
	default:
		return "unknown"
	}
}

// Request is one command's preconditions plus the invoker's voice state
type Request struct {
	Requirements

	GuildID string
	User    Listener
}

// Outcome tells the dispatcher whether the command body may run
type Outcome struct {
	Status  Status
	Err     error    // rejection or join failure, nil on proceed
	Channel *Channel // the bot's channel after evaluation, when known
	Joined  bool     // the bot joined Channel during this evaluation
	Notice  string   // extra informational message, sent separately
}

// Evaluator gathers state for the gate and carries out joins
type Evaluator struct {
	oracle      AudioOracle
	voice       VoiceSessionManager
	directory   ChannelDirectory
	joinTimeout time.Duration
	logger      *logger.Logger
}

// NewEvaluator creates a gate evaluator. directory may be nil.
func NewEvaluator(oracle AudioOracle, voice VoiceSessionManager, directory ChannelDirectory, joinTimeout time.Duration, log *logger.Logger) *Evaluator {
	return &Evaluator{
		oracle:      oracle,
		voice:       voice,
		directory:   directory,
		joinTimeout: joinTimeout,
		logger:      log,
	}
}

// Evaluate checks req's preconditions. State is only read when a requirement
// needs it, so a not-playing rejection never touches the voice manager.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) Outcome {
	snap := Snapshot{
		Requirements: req.Requirements,
		User:         req.User,
	}

	if req.MustBePlaying {
		snap.Playing = e.oracle.IsPlaying(req.GuildID)
	}

	if req.MustBeListening && (!req.MustBePlaying || snap.Playing) {
		snap.BotChannel = e.voice.CurrentChannel(req.GuildID)
		if snap.BotChannel == nil && e.directory != nil {
			snap.Configured = e.directory.ConfiguredChannel(req.GuildID)
		}
	}

	decision := Decide(snap)

	var out Outcome
	switch decision.Action {
	case ActionReject:
		out = Outcome{Status: StatusRejected, Err: decision.Err}
	case ActionJoin:
		out = e.join(ctx, req.GuildID, *decision.Target)
	default:
		out = Outcome{Status: StatusProceed, Channel: snap.BotChannel}
	}

	metrics.RecordGate(out.Status.String(), reason(out))
	if out.Status != StatusProceed {
		e.logger.WithGuild(req.GuildID).WithError(out.Err).Debug("Gate rejected command")
	}
	return out
}

func (e *Evaluator) join(ctx context.Context, guildID string, target Channel) Outcome {
	if e.joinTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.joinTimeout)
		defer cancel()
	}

	if err := e.voice.Join(ctx, guildID, target); err != nil {
		e.logger.WithGuild(guildID).WithError(err).WithField("channel", target.ID.String()).Warn("Failed to join voice channel")
		return Outcome{
			Status: StatusJoinFailed,
			Err: errors.WrapUserError(
				fmt.Errorf("%w: %s: %w", errors.ErrJoinFailed, target.Name, err),
				"❌ Unable to connect to **%s**", target.Name,
			),
		}
	}

	e.logger.WithGuild(guildID).WithField("channel", target.ID.String()).Info("Joined voice channel")

	out := Outcome{Status: StatusProceed, Channel: &target, Joined: true}
	if target.Stage {
		out.Notice = StageNotice
	}
	return out
}

func reason(out Outcome) string {
	switch {
	case out.Err == nil && out.Joined:
		return "joined"
	case out.Err == nil:
		return "ok"
	case errors.Is(out.Err, errors.ErrNotPlaying):
		return "not_playing"
	case errors.Is(out.Err, errors.ErrNotInVoiceChannel):
		return "not_listening"
	case errors.Is(out.Err, errors.ErrWrongChannel):
		return "wrong_channel"
	case errors.Is(out.Err, errors.ErrJoinFailed):
		return "join_failed"
	default:
		return "other"
	}
}
