// Package bot is the discordgo-facing layer: it registers the slash
// commands, routes interactions to the workflow managers and relays
// gateway events (messages, member joins) into them.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/xunintzx/antlove/internal/config"
	"github.com/xunintzx/antlove/internal/directory"
	"github.com/xunintzx/antlove/internal/logbuf"
	"github.com/xunintzx/antlove/internal/moderation"
	"github.com/xunintzx/antlove/internal/rolereq"
	"github.com/xunintzx/antlove/internal/scheduler"
	"github.com/xunintzx/antlove/internal/ticket"
)

// Deps are the workflow components the bot routes events into.
type Deps struct {
	Dir        directory.Service
	Tickets    *ticket.Manager
	Requests   *rolereq.Manager
	Resolver   *rolereq.Resolver
	Moderation *moderation.Dispatcher
	Scheduler  *scheduler.Scheduler
	Logs       *logbuf.Buffer
}

// Bot owns the gateway session and the event-to-workflow routing.
type Bot struct {
	session *discordgo.Session
	cfg     *config.Config
	deps    Deps
	logger  *slog.Logger

	// Per-user challenge sessions: the role snapshot for the follow-up
	// form plus the interaction whose response carries the challenge
	// message, so the deferred cleanup can delete it. Lost on restart, in
	// which case the user restarts the request.
	sessMu   sync.Mutex
	sessions map[string]*challengeSession
}

type challengeSession struct {
	roles       []directory.Role
	interaction *discordgo.Interaction
}

// New wires the bot onto an unopened session.
func New(session *discordgo.Session, cfg *config.Config, deps Deps, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Bot{
		session:  session,
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		sessions: make(map[string]*challengeSession),
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentMessageContent

	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	session.AddHandler(b.onMessage)
	session.AddHandler(b.onMemberJoin)
	return b
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("bot: open gateway: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("gateway ready", "bot", r.User.Username, "guilds", len(r.Guilds))

	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, b.cfg.Bot.GuildID, commands()); err != nil {
		b.logger.Error("command registration failed", "error", err)
	}
	if err := s.UpdateGameStatus(0, "watching over the community"); err != nil {
		b.logger.Warn("status update failed", "error", err)
	}
}

// onMessage feeds every qualifying message in an open ticket channel into
// the transcript cache. Plain bot chatter is skipped; bot messages with
// an embed or attachment still count.
func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil {
		return
	}
	if m.Author.Bot && len(m.Embeds) == 0 && len(m.Attachments) == 0 {
		return
	}
	b.deps.Tickets.Record(m.ChannelID, ticket.Entry{
		Timestamp: m.Timestamp,
		Author:    m.Author.Username,
		Content:   m.Content,
	})
}

// onMemberJoin grants the configured starter role to new members.
func (b *Bot) onMemberJoin(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if b.cfg.Bot.AutoRoleID == "" || m.GuildID != b.cfg.Bot.GuildID {
		return
	}
	err := b.deps.Dir.GrantRole(context.Background(), m.User.ID, b.cfg.Bot.AutoRoleID, "auto role on join")
	if err != nil {
		b.logger.Warn("auto role grant failed", "user", m.User.ID, "error", err)
		return
	}
	b.logger.Info("auto role granted", "user", m.User.ID)
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleComponent(s, i)
	case discordgo.InteractionModalSubmit:
		b.handleModal(s, i)
	}
}

func (b *Bot) invoker(i *discordgo.InteractionCreate) directory.Member {
	return directory.Member{
		ID:          interactionUserID(i),
		Username:    interactionUsername(i),
		DisplayName: interactionDisplayName(i),
	}
}

func (b *Bot) putSession(userID string, sess *challengeSession) {
	b.sessMu.Lock()
	defer b.sessMu.Unlock()
	b.sessions[userID] = sess
}

func (b *Bot) getSession(userID string) (*challengeSession, bool) {
	b.sessMu.Lock()
	defer b.sessMu.Unlock()
	sess, ok := b.sessions[userID]
	return sess, ok
}

func (b *Bot) dropSession(userID string) (*challengeSession, bool) {
	b.sessMu.Lock()
	defer b.sessMu.Unlock()
	sess, ok := b.sessions[userID]
	delete(b.sessions, userID)
	return sess, ok
}
