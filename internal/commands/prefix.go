package commands

import (
	"strings"
	"unicode"
)

// ParsePrefix splits "<prefix><command> <args>" and reports whether content
// starts with the prefix at all. The command is lower-cased.
func ParsePrefix(content, prefix string) (command, args string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", "", false
	}

	rest := strings.TrimSpace(content[len(prefix):])
	if rest == "" {
		return "", "", false
	}

	command, args = splitFirst(rest)
	return strings.ToLower(command), args, true
}

// ParsePrefixRequest turns prefix command text into a Request. For playlist
// commands the first argument is the sub-command; for append the next word is
// the playlist name and the remainder is the URL list. Other sub-commands take
// the whole remainder as the name.
func ParsePrefixRequest(command, args string) Request {
	req := Request{Command: command}
	if command != CommandPlaylist {
		return req
	}

	req.Sub, args = splitFirst(args)
	sub, _ := ResolveSub(req.Sub)
	if sub == SubAppend {
		req.Name, req.URLs = splitFirst(args)
		return req
	}
	req.Name = args
	return req
}

// splitFirst returns the first whitespace-delimited word and the trimmed rest
func splitFirst(s string) (string, string) {
	s = strings.TrimSpace(s)
	idx := strings.IndexFunc(s, unicode.IsSpace)
	if idx < 0 {
		return s, ""
	}
	return s[:idx], strings.TrimSpace(s[idx:])
}
