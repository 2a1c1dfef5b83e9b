package ticket

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/xunintzx/antlove/internal/directory"
	"github.com/xunintzx/antlove/internal/scheduler"
)

func newTestManager(t *testing.T) (*Manager, *directory.Fake, *SQLiteStore) {
	t.Helper()
	fake := directory.NewFake()
	store := newTestStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewManager(fake, store, scheduler.New(logger), nil, Config{
		LogsChannelID: "logs",
		LogDir:        t.TempDir(),
		GraceDelay:    10 * time.Millisecond,
	}, logger)
	return m, fake, store
}

func alice() directory.Member {
	return directory.Member{ID: "111", Username: "alice", DisplayName: "Alice W."}
}

func TestOpenCreatesChannelAndRecord(t *testing.T) {
	m, fake, store := newTestManager(t)

	ch, err := m.Open(context.Background(), alice())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if ch.Name != "ticket-alicew" {
		t.Errorf("channel name = %q, want ticket-alicew", ch.Name)
	}
	if _, open, _ := store.ByUser("111"); !open {
		t.Error("no record stored for the opener")
	}

	sent, ok := fake.LastSent()
	if !ok || sent.ChannelID != ch.ID {
		t.Fatalf("welcome not sent to ticket channel: %+v", sent)
	}
	if len(sent.Notice.Buttons) != 1 {
		t.Fatalf("welcome buttons = %d, want 1", len(sent.Notice.Buttons))
	}
	if want := "ticket:close:" + ch.ID; sent.Notice.Buttons[0].CustomID != want {
		t.Errorf("close button id = %q, want %q", sent.Notice.Buttons[0].CustomID, want)
	}
}

func TestOpenRejectsSecondTicket(t *testing.T) {
	m, _, _ := newTestManager(t)

	if _, err := m.Open(context.Background(), alice()); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if _, err := m.Open(context.Background(), alice()); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("second Open = %v, want ErrAlreadyOpen", err)
	}
}

func TestOpenDetectsLegacyChannel(t *testing.T) {
	m, fake, _ := newTestManager(t)

	// A channel from before the naming change, with no store record.
	fake.Channels["old"] = directory.Channel{ID: "old", Name: "ticket-111"}

	if _, err := m.Open(context.Background(), alice()); !errors.Is(err, ErrAlreadyOpen) {
		t.Errorf("Open = %v, want ErrAlreadyOpen", err)
	}
}

func TestOpenCategoryMissing(t *testing.T) {
	m, fake, _ := newTestManager(t)
	fake.CategoryMissing = true

	if _, err := m.Open(context.Background(), alice()); !errors.Is(err, directory.ErrCategoryNotFound) {
		t.Errorf("Open = %v, want ErrCategoryNotFound", err)
	}
}

func TestRecordIgnoresUnknownChannel(t *testing.T) {
	m, _, store := newTestManager(t)

	m.Record("nosuch", Entry{Timestamp: time.Now(), Author: "alice", Content: "hi"})
	if n, _ := store.Count(); n != 0 {
		t.Errorf("Count = %d, want 0", n)
	}
}

func TestCloseArchivesAndSchedulesDelete(t *testing.T) {
	m, fake, store := newTestManager(t)

	ch, err := m.Open(context.Background(), alice())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	fake.Histories[ch.ID] = []directory.HistoryMessage{
		{Author: "antlove", FromBot: true, Content: "welcome"},
		{Author: "alice", Content: "my account is locked", Timestamp: time.Now()},
		{Author: "antlove", FromBot: true, HasEmbed: true, Timestamp: time.Now()},
		{Author: "mod", Content: "fixed it", Timestamp: time.Now()},
	}

	res, err := m.Close(context.Background(), ch.ID, directory.Member{ID: "999", Username: "mod"})
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if res.EntryCount != 3 {
		t.Errorf("EntryCount = %d, want 3 (plain bot messages dropped)", res.EntryCount)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "=== TICKET LOG #"+ch.ID+" ===") {
		t.Error("transcript missing header")
	}
	if !strings.Contains(text, "alice: my account is locked") {
		t.Error("transcript missing user message")
	}
	if !strings.Contains(text, PlaceholderContent) {
		t.Error("transcript missing embed placeholder")
	}

	sent, ok := fake.LastSent()
	if !ok || sent.ChannelID != "logs" {
		t.Fatalf("closure notice not posted to logs channel: %+v", sent)
	}
	if sent.Notice.File == nil {
		t.Error("closure notice missing transcript attachment")
	}

	if _, open, _ := store.Get(ch.ID); open {
		t.Error("record still present after close")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, found, _ := fake.ChannelByName(context.Background(), ch.Name); !found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("channel never deleted after grace delay")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCloseUnknownChannel(t *testing.T) {
	m, _, _ := newTestManager(t)

	if _, err := m.Close(context.Background(), "nosuch", alice()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Close = %v, want ErrNotFound", err)
	}
}

func TestCloseFallsBackToCachedTranscript(t *testing.T) {
	m, fake, _ := newTestManager(t)

	ch, err := m.Open(context.Background(), alice())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	m.Record(ch.ID, Entry{Timestamp: time.Now(), Author: "alice", Content: "cached line"})
	fake.Fail["History"] = errors.New("gateway timeout")

	res, err := m.Close(context.Background(), ch.ID, alice())
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	if !strings.Contains(string(data), "alice: cached line") {
		t.Error("cached entries not used when history replay fails")
	}
}
