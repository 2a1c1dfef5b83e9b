// Package rolereq implements the role request workflow: the challenge
// entry gate, the form validation and pending queue, and the admin
// approve/deny resolution.
package rolereq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xunintzx/antlove/internal/captcha"
	"github.com/xunintzx/antlove/internal/directory"
	"github.com/xunintzx/antlove/internal/panel"
)

// Form field limits, enforced both by the modal definition and again on
// submit.
const (
	MaxRecruiterLen = 100
	MaxGameIDLen    = 50
	MaxRPNameLen    = 80
	MaxSelectionLen = 2
)

var (
	// ErrPendingExists rejects a new request while one awaits review.
	ErrPendingExists = errors.New("rolereq: user already has a pending request")
	// ErrNoRoles means no configured role id resolved to a live role.
	ErrNoRoles = errors.New("rolereq: no roles available")
	// ErrNotANumber means the role selection field did not parse.
	ErrNotANumber = errors.New("rolereq: role selection must be a number")
	// ErrInvalidRole means the parsed selection fell outside the offered list.
	ErrInvalidRole = errors.New("rolereq: invalid role number")
	// ErrFieldTooLong means a free-text field exceeded its limit.
	ErrFieldTooLong = errors.New("rolereq: field too long")
)

// Request is a pending role request awaiting admin review.
type Request struct {
	ID          string
	UserID      string
	Role        directory.Role
	Recruiter   string
	GameID      string
	RPName      string
	SubmittedAt time.Time
}

// RequestID synthesizes the composite request id. Seconds granularity is
// enough: a user can hold only one pending request at a time.
func RequestID(userID string, at time.Time) string {
	return userID + "_" + strconv.FormatInt(at.Unix(), 10)
}

// Form carries the raw field values from the request modal.
type Form struct {
	Recruiter string
	GameID    string
	RPName    string
	Selection string
}

// Pending is the queue of unresolved requests, keyed by user id. Review
// buttons carry the request id, so lookups by id scan the map.
type Pending struct {
	mu     sync.Mutex
	byUser map[string]*Request
}

// NewPending returns an empty queue.
func NewPending() *Pending {
	return &Pending{byUser: make(map[string]*Request)}
}

// Put registers a pending request, replacing any earlier one by the same
// user.
func (p *Pending) Put(r *Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[r.UserID] = r
}

// ByUser returns a user's pending request, if any.
func (p *Pending) ByUser(userID string) (*Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	r, ok := p.byUser[userID]
	return r, ok
}

// ByID finds a request by its composite id.
func (p *Pending) ByID(requestID string) (*Request, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.byUser {
		if r.ID == requestID {
			return r, true
		}
	}
	return nil, false
}

// Remove drops a request by id. Reports whether it was present, so a
// second concurrent resolution observes the first.
func (p *Pending) Remove(requestID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for user, r := range p.byUser {
		if r.ID == requestID {
			delete(p.byUser, user)
			return true
		}
	}
	return false
}

// Count returns the number of pending requests.
func (p *Pending) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.byUser)
}

// Config holds the workflow's configured role offer and destinations.
type Config struct {
	// RoleIDs are the requestable roles, in offer order. Unresolvable ids
	// are skipped at challenge time.
	RoleIDs []string
	// ReviewChannelID receives the admin review messages.
	ReviewChannelID string
}

// Manager drives the request workflow from challenge entry to the posted
// review message.
type Manager struct {
	mu      sync.Mutex
	dir     directory.Service
	pending *Pending
	gate    *captcha.Gate
	cfg     Config
	logger  *slog.Logger
	now     func() time.Time
}

// NewManager wires the workflow manager.
func NewManager(dir directory.Service, pending *Pending, gate *captcha.Gate, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		dir:     dir,
		pending: pending,
		gate:    gate,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Begin starts a request attempt: rejects users with a pending request,
// resolves the configured roles, and generates a fresh challenge whose
// option buttons the caller renders.
func (m *Manager) Begin(ctx context.Context, userID string) (*captcha.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pending.ByUser(userID); ok {
		return nil, ErrPendingExists
	}

	roles := make([]directory.Role, 0, len(m.cfg.RoleIDs))
	for _, id := range m.cfg.RoleIDs {
		role, err := m.dir.Role(ctx, id)
		if err != nil {
			m.logger.Warn("configured role did not resolve", "role", id, "error", err)
			continue
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		return nil, ErrNoRoles
	}

	ch := m.gate.Begin(userID, roles)
	m.logger.Info("role request started", "user", userID, "roles_offered", len(roles))
	return ch, nil
}

// Answer consumes the user's challenge with the selected option index.
// The returned challenge carries the role list snapshot for the form.
func (m *Manager) Answer(userID, nonce string, option int) (*captcha.Challenge, bool, error) {
	return m.gate.Resolve(userID, nonce, option)
}

// Submit validates the form and, on success, queues the request and posts
// the review message. roles is the snapshot captured at challenge time.
func (m *Manager) Submit(ctx context.Context, user directory.Member, roles []directory.Role, f Form) (*Request, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// The entry check happened before the challenge; re-validate after the
	// round trips through the challenge and the modal.
	if _, ok := m.pending.ByUser(user.ID); ok {
		return nil, ErrPendingExists
	}

	if len(f.Recruiter) > MaxRecruiterLen || len(f.GameID) > MaxGameIDLen ||
		len(f.RPName) > MaxRPNameLen || len(f.Selection) > MaxSelectionLen {
		return nil, ErrFieldTooLong
	}

	n, err := strconv.Atoi(strings.TrimSpace(f.Selection))
	if err != nil {
		return nil, ErrNotANumber
	}
	if n < 1 || n > len(roles) {
		return nil, ErrInvalidRole
	}
	role := roles[n-1]

	submitted := m.now()
	req := &Request{
		ID:          RequestID(user.ID, submitted),
		UserID:      user.ID,
		Role:        role,
		Recruiter:   strings.TrimSpace(f.Recruiter),
		GameID:      strings.TrimSpace(f.GameID),
		RPName:      strings.TrimSpace(f.RPName),
		SubmittedAt: submitted,
	}
	m.pending.Put(req)

	if _, err := m.dir.Send(ctx, m.cfg.ReviewChannelID, reviewNotice(req)); err != nil {
		// Without a review message no admin can resolve the request, so a
		// failed post must not strand the user in the pending state.
		m.pending.Remove(req.ID)
		return nil, fmt.Errorf("rolereq: post review: %w", err)
	}

	m.logger.Info("role request queued", "request", req.ID, "user", user.ID, "role", role.Name)
	return req, nil
}

func reviewNotice(r *Request) directory.Notice {
	return directory.Notice{
		Title:       "📋 New Role Request",
		Description: fmt.Sprintf("<@%s> is requesting the <@&%s> role.", r.UserID, r.Role.ID),
		Color:       0x3498DB,
		Footer:      "Request ID: " + r.ID,
		Fields: []directory.Field{
			{Name: "Recruiter", Value: r.Recruiter, Inline: true},
			{Name: "Game ID", Value: r.GameID, Inline: true},
			{Name: "RP Name", Value: r.RPName, Inline: true},
			{Name: "Submitted", Value: r.SubmittedAt.Format("02/01/2006 15:04:05"), Inline: false},
		},
		Buttons: []directory.Button{
			{Label: "Approve", Style: directory.ButtonSuccess, CustomID: panel.RequestApproveID(r.ID), Emoji: "✅"},
			{Label: "Deny", Style: directory.ButtonDanger, CustomID: panel.RequestDenyID(r.ID), Emoji: "❌"},
		},
	}
}
