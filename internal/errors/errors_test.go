package errors

import (
	"fmt"
	"testing"
)

func TestGetUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"wrapped not found", fmt.Errorf("%w: 'x'", ErrPlaylistNotFound), "📋 Playlist not found"},
		{"exists", ErrPlaylistExists, "📋 Playlist already exists"},
		{"storage", fmt.Errorf("%w: %w", ErrStorage, fmt.Errorf("disk full")), "💾 Playlist storage failed. Please try again later"},
		{"permission", ErrNoPermission, "⛔ You don't have permission to do that"},
		{"not playing", ErrNotPlaying, "❌ Music must be playing to use this command"},
		{"unknown", fmt.Errorf("boom"), "❌ An error occurred. Please try again later"},
		{"user error wins", WrapUserError(ErrPlaylistNotFound, "no `%s` here", "mix"), "no `mix` here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetUserMessage(tt.err); got != tt.expected {
				t.Errorf("GetUserMessage() = %q, expected %q", got, tt.expected)
			}
		})
	}
}

func TestStorageNeverLooksLikeNotFound(t *testing.T) {
	err := fmt.Errorf("%w: %w", ErrStorage, fmt.Errorf("permission denied"))

	if Is(err, ErrPlaylistNotFound) {
		t.Error("storage failure must not match ErrPlaylistNotFound")
	}
	if !Is(err, ErrStorage) {
		t.Error("expected ErrStorage in chain")
	}
}

func TestUserErrorUnwrap(t *testing.T) {
	err := NewUserError(ErrPlaylistExists, "taken")

	if !Is(err, ErrPlaylistExists) {
		t.Error("UserError should unwrap to its cause")
	}
	if err.Error() != ErrPlaylistExists.Error() {
		t.Errorf("Error() = %q", err.Error())
	}
}
