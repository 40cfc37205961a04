package errors

import (
	"errors"
	"fmt"
)

// Common error types for better error handling
var (
	// Validation errors
	ErrInvalidInput = errors.New("invalid input")

	// Gate errors
	ErrNotPlaying        = errors.New("no song is currently playing")
	ErrNotInVoiceChannel = errors.New("you must be in a voice channel")
	ErrWrongChannel      = errors.New("you must be in the same voice channel as the bot")
	ErrJoinFailed        = errors.New("failed to join voice channel")

	// Playlist errors
	ErrPlaylistNotFound = errors.New("playlist not found")
	ErrPlaylistExists   = errors.New("playlist already exists")
	ErrStorage          = errors.New("playlist storage failure")

	// Permission errors
	ErrNoPermission = errors.New("insufficient permissions")
)

// UserError wraps an error with a user-friendly message
type UserError struct {
	Err     error
	Message string
}

func (e *UserError) Error() string {
	return e.Err.Error()
}

func (e *UserError) Unwrap() error {
	return e.Err
}

func (e *UserError) UserMessage() string {
	return e.Message
}

// NewUserError creates a new user error
func NewUserError(err error, message string) *UserError {
	return &UserError{
		Err:     err,
		Message: message,
	}
}

// WrapUserError wraps an error with a user-friendly message
func WrapUserError(err error, format string, args ...interface{}) *UserError {
	return &UserError{
		Err:     err,
		Message: fmt.Sprintf(format, args...),
	}
}

// Is reports whether any error in err's chain matches target.
// Re-exported so callers importing this package as "errors" keep the stdlib helper.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetUserMessage extracts user-friendly message from error
func GetUserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage()
	}

	switch {
	case errors.Is(err, ErrInvalidInput):
		return "⚠️ Invalid input. Check the command arguments and try again"
	case errors.Is(err, ErrNotPlaying):
		return "❌ Music must be playing to use this command"
	case errors.Is(err, ErrNotInVoiceChannel):
		return "🔊 You must be listening in a voice channel to use this"
	case errors.Is(err, ErrWrongChannel):
		return "⚠️ You must be in the same voice channel as the bot"
	case errors.Is(err, ErrJoinFailed):
		return "❌ Unable to connect to the voice channel"
	case errors.Is(err, ErrPlaylistNotFound):
		return "📋 Playlist not found"
	case errors.Is(err, ErrPlaylistExists):
		return "📋 Playlist already exists"
	case errors.Is(err, ErrStorage):
		return "💾 Playlist storage failed. Please try again later"
	case errors.Is(err, ErrNoPermission):
		return "⛔ You don't have permission to do that"
	default:
		return "❌ An error occurred. Please try again later"
	}
}
