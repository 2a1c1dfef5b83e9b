// Package captcha implements the human-verification challenge that gates
// role requests: four shuffled code buttons, exactly one correct, with an
// absolute expiry deadline.
package captcha

import (
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/xunintzx/antlove/internal/directory"
)

const (
	// CodeLength is the number of characters in each displayed code.
	CodeLength = 4
	// OptionCount is how many codes are displayed (one correct).
	OptionCount = 4

	alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	nonceLength = 8
)

var (
	// ErrNotFound means the user has no live challenge (never started,
	// already resolved, or lost to a restart).
	ErrNotFound = errors.New("captcha: no active challenge")
	// ErrExpired means the deadline passed before any selection.
	ErrExpired = errors.New("captcha: challenge expired")
	// ErrReplaced means the selection came from a challenge that a later
	// Begin superseded. The live challenge stays untouched.
	ErrReplaced = errors.New("captcha: challenge replaced by a newer one")
)

// Option is one displayed code with its correctness verdict bound at
// generation time.
type Option struct {
	Code    string
	Correct bool
}

// Challenge is a single verification attempt. Not reusable: the first
// selection resolves it, and a new attempt draws a fresh code. The nonce
// identifies this instance, so buttons from a superseded attempt cannot
// act on its replacement.
type Challenge struct {
	UserID    string
	Nonce     string
	Options   []Option
	Roles     []directory.Role // role list snapshot offered with this attempt
	ExpiresAt time.Time
}

// Expired reports whether the absolute deadline has passed.
func (c *Challenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// CorrectCode returns the code of the single correct option.
func (c *Challenge) CorrectCode() string {
	for _, o := range c.Options {
		if o.Correct {
			return o.Code
		}
	}
	return ""
}

// Gate tracks in-flight challenges, one per user. Challenges live only in
// memory; a restart voids them, which is safe because resolving a voided
// challenge just reports it gone.
type Gate struct {
	mu     sync.Mutex
	byUser map[string]*Challenge
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewGate creates a gate whose challenges expire ttl after generation.
func NewGate(ttl time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		byUser: make(map[string]*Challenge),
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
}

// Begin generates a fresh challenge for the user, replacing any earlier
// one, and snapshots the offered role list for the follow-up form.
func (g *Gate) Begin(userID string, roles []directory.Role) *Challenge {
	ch := &Challenge{
		UserID:    userID,
		Nonce:     randomString(nonceLength),
		Options:   generateOptions(),
		Roles:     roles,
		ExpiresAt: g.now().Add(g.ttl),
	}

	g.mu.Lock()
	g.byUser[userID] = ch
	g.mu.Unlock()

	g.logger.Debug("challenge generated", "user", userID, "expires_at", ch.ExpiresAt)
	return ch
}

// Resolve consumes the user's challenge with the given option index.
// First selection wins: whatever the verdict, the challenge is spent and
// a retry requires a brand-new Begin. An expired challenge resolves to
// ErrExpired and accepts nothing afterwards. A nonce from a superseded
// challenge resolves to ErrReplaced without spending the live one.
func (g *Gate) Resolve(userID, nonce string, option int) (*Challenge, bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	ch, ok := g.byUser[userID]
	if !ok {
		return nil, false, ErrNotFound
	}
	if ch.Nonce != nonce {
		return nil, false, ErrReplaced
	}
	delete(g.byUser, userID)

	if ch.Expired(g.now()) {
		return nil, false, ErrExpired
	}
	if option < 0 || option >= len(ch.Options) {
		return nil, false, ErrNotFound
	}
	return ch, ch.Options[option].Correct, nil
}

// Sweep drops expired challenges and returns how many were removed.
// Their buttons stay rendered but resolve to ErrNotFound, which the
// caller surfaces by disabling them in place.
func (g *Gate) Sweep() int {
	now := g.now()
	g.mu.Lock()
	defer g.mu.Unlock()

	n := 0
	for user, ch := range g.byUser {
		if ch.Expired(now) {
			delete(g.byUser, user)
			n++
		}
	}
	if n > 0 {
		g.logger.Debug("expired challenges swept", "count", n)
	}
	return n
}

// generateOptions draws one correct code and three distractors, all
// pairwise distinct, and shuffles the display order.
func generateOptions() []Option {
	correct := randomCode()
	codes := map[string]bool{correct: true}

	options := make([]Option, 0, OptionCount)
	options = append(options, Option{Code: correct, Correct: true})
	for len(options) < OptionCount {
		code := randomCode()
		if codes[code] {
			continue
		}
		codes[code] = true
		options = append(options, Option{Code: code})
	}

	rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})
	return options
}

func randomCode() string {
	return randomString(CodeLength)
}

func randomString(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(alphabet[rand.IntN(len(alphabet))])
	}
	return b.String()
}
