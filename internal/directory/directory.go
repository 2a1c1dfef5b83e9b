// Package directory abstracts the guild side of the chat platform:
// channels, roles, members and notices. The workflow packages depend on
// the Service interface only; the discordgo implementation lives in
// discord.go and a test double in fake.go.
package directory

import (
	"context"
	"errors"
	"io"
	"time"
)

// Sentinel lookup failures. Callers branch on these to produce the
// user-facing "not found" messages.
var (
	ErrNotFound         = errors.New("directory: not found")
	ErrCategoryNotFound = errors.New("directory: ticket category not found")
)

// Channel is a text channel owned by the guild.
type Channel struct {
	ID   string
	Name string
}

// Role is a guild role, resolved by id at use time.
type Role struct {
	ID   string
	Name string
}

// Member is a guild member.
type Member struct {
	ID          string
	Username    string
	DisplayName string
	Roles       []string
}

// HasRole reports whether the member currently holds roleID.
func (m Member) HasRole(roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// HistoryMessage is one message from a channel's history replay.
type HistoryMessage struct {
	Author        string
	Content       string
	Timestamp     time.Time
	FromBot       bool
	HasEmbed      bool
	HasAttachment bool
}

// Button is an interactive control attached to a notice. The custom id
// is the persistence mechanism: it must carry everything a handler needs
// to resume after a restart.
type Button struct {
	Label    string
	Style    ButtonStyle
	CustomID string
	Emoji    string
	Disabled bool
}

// ButtonStyle maps onto the platform's button palette.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// File is an attachment uploaded with a notice.
type File struct {
	Name   string
	Reader io.Reader
}

// Field is a labelled section inside a notice.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Notice is the structured block the bot sends everywhere: title,
// description, color, footer, optional fields, buttons and a file.
type Notice struct {
	Title       string
	Description string
	Color       int
	Footer      string
	Image       string
	Fields      []Field
	Buttons     []Button
	File        *File
}

// Service is the guild directory consumed by the workflow engine.
type Service interface {
	// CreateTicketChannel provisions a private text channel under the
	// configured ticket category, readable by ownerID, the bot and every
	// role holding administrative privilege; everyone else is denied.
	CreateTicketChannel(ctx context.Context, name, ownerID string) (Channel, error)
	// DeleteChannel removes a channel. Deleting an already-gone channel
	// returns ErrNotFound.
	DeleteChannel(ctx context.Context, channelID string) error
	// ChannelByName looks up a channel by exact name.
	ChannelByName(ctx context.Context, name string) (Channel, bool, error)
	// History returns a channel's full message history, oldest first.
	History(ctx context.Context, channelID string) ([]HistoryMessage, error)

	// Role resolves a role by id.
	Role(ctx context.Context, roleID string) (Role, error)
	// GrantRole adds a role to a member with an audit reason.
	GrantRole(ctx context.Context, userID, roleID, reason string) error
	// RevokeRole removes a role from a member with an audit reason.
	RevokeRole(ctx context.Context, userID, roleID, reason string) error

	// Member resolves a member by id.
	Member(ctx context.Context, userID string) (Member, error)
	// SetNickname renames a member with an audit reason.
	SetNickname(ctx context.Context, userID, nick, reason string) error
	// Ban and Unban act on a bare user id with an audit reason.
	Ban(ctx context.Context, userID, reason string) error
	Unban(ctx context.Context, userID, reason string) error

	// Send posts a notice to a channel and returns the message id.
	Send(ctx context.Context, channelID string, n Notice) (string, error)
	// Edit rewrites a previously sent notice, dropping its buttons when
	// the new notice carries none.
	Edit(ctx context.Context, channelID, messageID string, n Notice) error
	// Direct sends a notice to a user's direct channel.
	Direct(ctx context.Context, userID string, n Notice) error
	// DeleteMessage removes a single message; already-gone is ErrNotFound.
	DeleteMessage(ctx context.Context, channelID, messageID string) error
}
