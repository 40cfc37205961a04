package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vuongmanhnghia/playlist-bot/internal/errors"
)

const (
	// MaxPlaylistNameLength is the longest normalized playlist name accepted
	MaxPlaylistNameLength = 100

	// MaxMessageLength is Discord's message content ceiling
	MaxMessageLength = 2000

	// NameJoiner replaces whitespace runs inside playlist names
	NameJoiner = "_"

	ellipsis = "..."
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	validName     = regexp.MustCompile(`^[\p{L}\p{N}_\-.]+$`)
	refSeparator  = regexp.MustCompile(`[|\r\n]`)
)

// SanitizeInput sanitizes user input by removing potentially dangerous characters
func SanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}

// NormalizePlaylistName turns user input into a playlist key.
// Whitespace runs become a single "_"; empty input is rejected, never defaulted.
func NormalizePlaylistName(name string) (string, error) {
	name = SanitizeInput(name)
	if name == "" {
		return "", fmt.Errorf("%w: playlist name cannot be empty", errors.ErrInvalidInput)
	}

	name = whitespaceRun.ReplaceAllString(name, NameJoiner)

	if err := ValidatePlaylistName(name); err != nil {
		return "", err
	}
	return name, nil
}

// ValidatePlaylistName validates an already normalized playlist name
func ValidatePlaylistName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: playlist name cannot be empty", errors.ErrInvalidInput)
	}

	if utf8.RuneCountInString(name) > MaxPlaylistNameLength {
		return fmt.Errorf("%w: playlist name too long (max %d characters)", errors.ErrInvalidInput, MaxPlaylistNameLength)
	}

	// Names double as file names
	if strings.HasPrefix(name, ".") || !validName.MatchString(name) {
		return fmt.Errorf("%w: playlist name contains invalid characters", errors.ErrInvalidInput)
	}

	return nil
}

// StripAngleBrackets removes one surrounding "<" ">" pair, which Discord users add
// to suppress link embeds. Anything else is returned unchanged.
func StripAngleBrackets(ref string) string {
	if len(ref) >= 2 && strings.HasPrefix(ref, "<") && strings.HasSuffix(ref, ">") {
		return ref[1 : len(ref)-1]
	}
	return ref
}

// ParseTrackRefs splits a "a | b | c" list of track references. Each piece is
// trimmed and stripped of angle brackets; empty pieces are dropped.
func ParseTrackRefs(input string) ([]string, error) {
	parts := refSeparator.Split(input, -1)

	refs := make([]string, 0, len(parts))
	for _, part := range parts {
		ref := strings.TrimSpace(StripAngleBrackets(SanitizeInput(part)))
		if ref == "" {
			continue
		}
		refs = append(refs, ref)
	}

	if len(refs) == 0 {
		return nil, fmt.Errorf("%w: at least one URL or search term is required", errors.ErrInvalidInput)
	}
	return refs, nil
}

// TruncateMessage cuts s to fit Discord's message ceiling, marking the cut with "..."
func TruncateMessage(s string) string {
	return TruncateString(s, MaxMessageLength)
}

// TruncateString safely truncates a string to maxLen runes, ending with "..." when cut
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}

	runes := []rune(s)
	if maxLen <= len(ellipsis) {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-len(ellipsis)]) + ellipsis
}
