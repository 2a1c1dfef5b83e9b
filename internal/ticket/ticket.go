// Package ticket implements the support ticket lifecycle: one open
// ticket per user, a private channel per ticket, transcript capture and
// the admin-only close that archives the transcript before the channel
// is deleted.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xunintzx/antlove/internal/alert"
	"github.com/xunintzx/antlove/internal/directory"
	"github.com/xunintzx/antlove/internal/naming"
	"github.com/xunintzx/antlove/internal/panel"
	"github.com/xunintzx/antlove/internal/scheduler"
)

var (
	// ErrAlreadyOpen rejects a second ticket while one is open.
	ErrAlreadyOpen = errors.New("ticket: user already has an open ticket")
	// ErrNotFound means no lifecycle record exists for the channel.
	ErrNotFound = errors.New("ticket: record not found")
)

// Config holds the manager's fixed destinations and timings.
type Config struct {
	LogsChannelID string
	LogDir        string
	GraceDelay    time.Duration
}

// Manager owns the open-ticket store and drives every lifecycle
// transition. A single mutex serializes open and close so the duplicate
// checks stay valid across the external calls they straddle.
type Manager struct {
	mu     sync.Mutex
	dir    directory.Service
	store  Store
	sched  *scheduler.Scheduler
	alerts alert.Notifier
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewManager wires the lifecycle manager. alerts may be nil.
func NewManager(dir directory.Service, store Store, sched *scheduler.Scheduler, alerts alert.Notifier, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:    dir,
		store:  store,
		sched:  sched,
		alerts: alerts,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Open creates a ticket for the user: a private channel named after
// their sanitized display name, a lifecycle record, and a welcome notice
// carrying the close button. Fails with ErrAlreadyOpen when any marker
// of an existing ticket is found, whether in the record store or under
// either channel naming convention.
func (m *Manager) Open(ctx context.Context, user directory.Member) (directory.Channel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, open, err := m.store.ByUser(user.ID); err != nil {
		return directory.Channel{}, fmt.Errorf("ticket: open: %w", err)
	} else if open {
		return directory.Channel{}, ErrAlreadyOpen
	}

	name := naming.TicketChannelName(user.DisplayName)
	if _, found, err := m.dir.ChannelByName(ctx, name); err != nil {
		return directory.Channel{}, fmt.Errorf("ticket: open: %w", err)
	} else if found {
		return directory.Channel{}, ErrAlreadyOpen
	}
	// Tickets created before the naming scheme changed are keyed by raw
	// user id; both markers count.
	if _, found, err := m.dir.ChannelByName(ctx, naming.LegacyTicketChannelName(user.ID)); err != nil {
		return directory.Channel{}, fmt.Errorf("ticket: open: %w", err)
	} else if found {
		return directory.Channel{}, ErrAlreadyOpen
	}

	ch, err := m.dir.CreateTicketChannel(ctx, name, user.ID)
	if err != nil {
		return directory.Channel{}, err
	}

	t := &Ticket{ID: ch.ID, UserID: user.ID, CreatedAt: m.now()}
	if err := m.store.Put(t); err != nil {
		return directory.Channel{}, fmt.Errorf("ticket: open: %w", err)
	}

	welcome := directory.Notice{
		Title: "🎫 Ticket Created",
		Description: fmt.Sprintf("Hello <@%s>! Your ticket has been created.\n\n"+
			"Describe your problem or question and an administrator will help you shortly.", user.ID),
		Color:  0x00FF00,
		Footer: "Ticket ID: " + ch.ID,
		Buttons: []directory.Button{{
			Label:    "Close Ticket",
			Style:    directory.ButtonDanger,
			CustomID: panel.TicketCloseID(ch.ID),
			Emoji:    "🔒",
		}},
	}
	if _, err := m.dir.Send(ctx, ch.ID, welcome); err != nil {
		m.logger.Warn("failed to send ticket welcome", "ticket", ch.ID, "error", err)
	}

	m.logger.Info("ticket opened", "ticket", ch.ID, "user", user.ID, "channel", name)
	m.notify(ctx, "ticket-opened", fmt.Sprintf("ticket %s opened by %s", ch.ID, user.Username))
	return ch, nil
}

// Record appends a message to an open ticket's transcript cache. Unknown
// channels are ignored; the cache is advisory since close replays the
// real channel history.
func (m *Manager) Record(channelID string, e Entry) {
	_, open, err := m.store.Get(channelID)
	if err != nil {
		m.logger.Warn("transcript lookup failed", "ticket", channelID, "error", err)
		return
	}
	if !open {
		return
	}
	if err := m.store.AppendEntry(channelID, e); err != nil {
		m.logger.Warn("transcript append failed", "ticket", channelID, "error", err)
	}
}

// CloseResult reports what Close archived.
type CloseResult struct {
	Ticket     *Ticket
	Path       string
	EntryCount int
	GraceDelay time.Duration
}

// Close archives the ticket and schedules the channel's deletion after
// the grace delay. The channel history is re-walked oldest-first as the
// authoritative transcript; the file write and the log-channel upload
// happen before the delete is scheduled so late messages are captured.
// A missing record fails closed: no deletion.
func (m *Manager) Close(ctx context.Context, channelID string, actor directory.Member) (*CloseResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, open, err := m.store.Get(channelID)
	if err != nil {
		return nil, fmt.Errorf("ticket: close: %w", err)
	}
	if !open {
		return nil, ErrNotFound
	}

	entries := m.replayHistory(ctx, t)
	closedAt := m.now()
	path, content, err := WriteTranscript(m.cfg.LogDir, t, entries, closedAt)
	if err != nil {
		return nil, err
	}

	closure := directory.Notice{
		Title: "🔒 Ticket Closed",
		Description: fmt.Sprintf("**User:** <@%s>\n**Closed by:** <@%s>\n**Date:** %s",
			t.UserID, actor.ID, closedAt.Format(stampLayout)),
		Color:  0xFF0000,
		Footer: "Ticket ID: " + t.ID,
		File: &directory.File{
			Name:   TranscriptFilename(t.ID, closedAt),
			Reader: strings.NewReader(content),
		},
	}
	if _, err := m.dir.Send(ctx, m.cfg.LogsChannelID, closure); err != nil {
		m.logger.Warn("failed to post closure notice", "ticket", t.ID, "error", err)
	}

	if err := m.store.Remove(t.ID); err != nil {
		return nil, fmt.Errorf("ticket: close: %w", err)
	}

	m.sched.After("ticket-delete:"+t.ID, m.cfg.GraceDelay, func() {
		err := m.dir.DeleteChannel(context.Background(), t.ID)
		if err != nil && !errors.Is(err, directory.ErrNotFound) {
			m.logger.Warn("deferred channel delete failed", "ticket", t.ID, "error", err)
		}
	})

	m.logger.Info("ticket closed", "ticket", t.ID, "by", actor.ID, "entries", len(entries), "transcript", path)
	m.notify(ctx, "ticket-closed", fmt.Sprintf("ticket %s closed by %s", t.ID, actor.Username))
	return &CloseResult{Ticket: t, Path: path, EntryCount: len(entries), GraceDelay: m.cfg.GraceDelay}, nil
}

// OpenCount returns the number of currently open tickets.
func (m *Manager) OpenCount() int {
	n, err := m.store.Count()
	if err != nil {
		m.logger.Warn("ticket count failed", "error", err)
		return 0
	}
	return n
}

// replayHistory walks the channel's messages oldest-first, keeping every
// non-bot message plus bot messages carrying an embed or attachment. If
// the walk fails, the cached entries stand in so the close can finish.
func (m *Manager) replayHistory(ctx context.Context, t *Ticket) []Entry {
	history, err := m.dir.History(ctx, t.ID)
	if err != nil {
		m.logger.Warn("history replay failed, using cached transcript", "ticket", t.ID, "error", err)
		return t.Entries
	}

	entries := make([]Entry, 0, len(history))
	for _, msg := range history {
		if msg.FromBot && !msg.HasEmbed && !msg.HasAttachment {
			continue
		}
		content := msg.Content
		if content == "" {
			content = PlaceholderContent
		}
		entries = append(entries, Entry{
			Timestamp: msg.Timestamp,
			Author:    msg.Author,
			Content:   content,
		})
	}
	return entries
}

func (m *Manager) notify(ctx context.Context, event, text string) {
	if m.alerts == nil {
		return
	}
	if err := m.alerts.Notify(ctx, event, text); err != nil {
		m.logger.Warn("alert delivery failed", "event", event, "error", err)
	}
}
