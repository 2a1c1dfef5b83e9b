package directory

import (
	"context"
	"fmt"
	"sync"
)

// SentNotice records one Send/Edit/Direct call on the Fake.
type SentNotice struct {
	ChannelID string
	UserID    string
	MessageID string
	Notice    Notice
}

// Fake is an in-memory Service for tests. Zero value is not usable; call
// NewFake.
type Fake struct {
	mu sync.Mutex

	Channels  map[string]Channel
	Roles     map[string]Role
	Members   map[string]Member
	Histories map[string][]HistoryMessage

	Sent    []SentNotice
	Directs []SentNotice
	Edits   []SentNotice
	Deleted []string
	Banned  []string
	Unbans  []string
	Nicks   map[string]string

	// Error injection, keyed by operation name ("GrantRole", "Send", ...).
	Fail map[string]error

	CategoryMissing bool

	nextID int
}

// NewFake returns an empty fake directory.
func NewFake() *Fake {
	return &Fake{
		Channels:  make(map[string]Channel),
		Roles:     make(map[string]Role),
		Members:   make(map[string]Member),
		Histories: make(map[string][]HistoryMessage),
		Nicks:     make(map[string]string),
		Fail:      make(map[string]error),
	}
}

func (f *Fake) fail(op string) error {
	if err, ok := f.Fail[op]; ok {
		return err
	}
	return nil
}

func (f *Fake) genID(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *Fake) CreateTicketChannel(_ context.Context, name, ownerID string) (Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("CreateTicketChannel"); err != nil {
		return Channel{}, err
	}
	if f.CategoryMissing {
		return Channel{}, ErrCategoryNotFound
	}
	ch := Channel{ID: f.genID("chan"), Name: name}
	f.Channels[ch.ID] = ch
	return ch, nil
}

func (f *Fake) DeleteChannel(_ context.Context, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteChannel"); err != nil {
		return err
	}
	if _, ok := f.Channels[channelID]; !ok {
		return ErrNotFound
	}
	delete(f.Channels, channelID)
	f.Deleted = append(f.Deleted, channelID)
	return nil
}

func (f *Fake) ChannelByName(_ context.Context, name string) (Channel, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.Channels {
		if ch.Name == name {
			return ch, true, nil
		}
	}
	return Channel{}, false, nil
}

func (f *Fake) History(_ context.Context, channelID string) ([]HistoryMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("History"); err != nil {
		return nil, err
	}
	return append([]HistoryMessage(nil), f.Histories[channelID]...), nil
}

func (f *Fake) Role(_ context.Context, roleID string) (Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.Roles[roleID]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (f *Fake) GrantRole(_ context.Context, userID, roleID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("GrantRole"); err != nil {
		return err
	}
	m, ok := f.Members[userID]
	if !ok {
		return ErrNotFound
	}
	if !m.HasRole(roleID) {
		m.Roles = append(m.Roles, roleID)
		f.Members[userID] = m
	}
	return nil
}

func (f *Fake) RevokeRole(_ context.Context, userID, roleID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("RevokeRole"); err != nil {
		return err
	}
	m, ok := f.Members[userID]
	if !ok {
		return ErrNotFound
	}
	kept := m.Roles[:0]
	for _, r := range m.Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	m.Roles = kept
	f.Members[userID] = m
	return nil
}

func (f *Fake) Member(_ context.Context, userID string) (Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.Members[userID]
	if !ok {
		return Member{}, ErrNotFound
	}
	return m, nil
}

func (f *Fake) SetNickname(_ context.Context, userID, nick, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("SetNickname"); err != nil {
		return err
	}
	f.Nicks[userID] = nick
	return nil
}

func (f *Fake) Ban(_ context.Context, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Ban"); err != nil {
		return err
	}
	f.Banned = append(f.Banned, userID)
	return nil
}

func (f *Fake) Unban(_ context.Context, userID, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Unban"); err != nil {
		return err
	}
	f.Unbans = append(f.Unbans, userID)
	return nil
}

func (f *Fake) Send(_ context.Context, channelID string, n Notice) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Send"); err != nil {
		return "", err
	}
	id := f.genID("msg")
	f.Sent = append(f.Sent, SentNotice{ChannelID: channelID, MessageID: id, Notice: n})
	return id, nil
}

func (f *Fake) Edit(_ context.Context, channelID, messageID string, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Edit"); err != nil {
		return err
	}
	f.Edits = append(f.Edits, SentNotice{ChannelID: channelID, MessageID: messageID, Notice: n})
	return nil
}

func (f *Fake) Direct(_ context.Context, userID string, n Notice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("Direct"); err != nil {
		return err
	}
	f.Directs = append(f.Directs, SentNotice{UserID: userID, Notice: n})
	return nil
}

func (f *Fake) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail("DeleteMessage"); err != nil {
		return err
	}
	f.Deleted = append(f.Deleted, channelID+"/"+messageID)
	return nil
}

// LastSent returns the most recent channel notice, for assertions.
func (f *Fake) LastSent() (SentNotice, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sent) == 0 {
		return SentNotice{}, false
	}
	return f.Sent[len(f.Sent)-1], true
}
