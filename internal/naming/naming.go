// Package naming derives the stable string keys the bot uses to find
// entities it created in the guild: ticket channel names and the ids
// hidden inside user-typed mentions.
package naming

import (
	"strconv"
	"strings"
)

const (
	ticketPrefix = "ticket-"
	maxNameLen   = 20
)

// TicketChannelName derives the channel name for a user's ticket from
// their display name: lowercased, restricted to [a-z0-9-_] and capped at
// 20 runes. Two users whose display names sanitize to the same string
// collide on purpose; the duplicate-ticket check treats the name as the
// key.
func TicketChannelName(displayName string) string {
	return ticketPrefix + Sanitize(displayName)
}

// LegacyTicketChannelName is the pre-rename convention that keyed ticket
// channels by raw user id. Still recognised when checking for an existing
// ticket, never used for new ones.
func LegacyTicketChannelName(userID string) string {
	return ticketPrefix + userID
}

// Sanitize lowercases s and drops every rune outside [a-z0-9-_],
// truncating the result to 20 runes.
func Sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
		if b.Len() >= maxNameLen {
			break
		}
	}
	return b.String()
}

// StripMention removes mention decorations (<@...>, <@!...>, <@&...>)
// from a user-typed identifier, leaving the bare id.
func StripMention(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "<")
	s = strings.TrimSuffix(s, ">")
	s = strings.TrimPrefix(s, "@")
	s = strings.TrimPrefix(s, "!")
	s = strings.TrimPrefix(s, "&")
	return s
}

// ParseID strips mention decorations and checks the remainder parses as
// an integer id.
func ParseID(s string) (string, bool) {
	id := StripMention(s)
	if id == "" {
		return "", false
	}
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return "", false
	}
	return id, true
}
