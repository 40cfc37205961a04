// Package gate decides whether a music command may run given the listener's
// voice state and the bot's playback state.
package gate

import (
	"fmt"

	"github.com/disgoorg/snowflake/v2"

	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
)

// Channel identifies a voice channel. Equality is by ID; Name is for display only.
type Channel struct {
	ID    snowflake.ID
	Name  string
	Stage bool
}

// Mention returns the Discord channel mention
func (c Channel) Mention() string {
	return fmt.Sprintf("<#%s>", c.ID)
}

// Listener is the invoking member's voice state
type Listener struct {
	Channel  *Channel
	Deafened bool // server or self deafened
}

// Requirements are the preconditions a command declares
type Requirements struct {
	MustBePlaying   bool
	MustBeListening bool
}

// Snapshot is everything the gate looks at for one invocation
type Snapshot struct {
	Requirements

	Playing    bool
	BotChannel *Channel
	Configured *Channel // guild fallback channel, nil when none
	User       Listener
}

// Action is what the gate wants done
type Action int

const (
	ActionProceed Action = iota
	ActionReject
	ActionJoin
)

func (a Action) String() string {
	switch a {
	case ActionProceed:
		return "proceed"
	case ActionReject:
		return "reject"
	case ActionJoin:
		return "join"
	default:
		return "unknown"
	}
}

// Decision is the result of Decide
type Decision struct {
	Action Action
	Err    error    // set when Action is ActionReject
	Target *Channel // set when Action is ActionJoin
}

// Decide applies the precondition rules to a snapshot. It performs no I/O.
func Decide(s Snapshot) Decision {
	if s.MustBePlaying && !s.Playing {
		return reject(errors.ErrNotPlaying)
	}

	if !s.MustBeListening {
		return Decision{Action: ActionProceed}
	}

	current := s.BotChannel
	if current == nil {
		current = s.Configured
	}

	if s.User.Channel == nil || s.User.Deafened || (current != nil && s.User.Channel.ID != current.ID) {
		if current == nil {
			return reject(errors.ErrNotInVoiceChannel)
		}
		return reject(errors.WrapUserError(
			fmt.Errorf("%w: %s", errors.ErrWrongChannel, current.Name),
			"🔊 You must be listening in **%s** to use that!", current.Name,
		))
	}

	if s.BotChannel == nil {
		target := *s.User.Channel
		return Decision{Action: ActionJoin, Target: &target}
	}

	return Decision{Action: ActionProceed}
}

func reject(err error) Decision {
	return Decision{Action: ActionReject, Err: err}
}
