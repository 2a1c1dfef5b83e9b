package logbuf

import (
	"io"
	"log/slog"
	"testing"
	"time"
)

func TestRecent_WrapAround(t *testing.T) {
	b := New(3)
	for i := 0; i < 5; i++ {
		b.Write(Entry{Time: time.Now(), Level: slog.LevelInfo, Message: string(rune('a' + i))})
	}

	got := b.Recent(slog.LevelInfo, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	// Oldest surviving entry is "c"
	if got[0].Message != "c" || got[2].Message != "e" {
		t.Errorf("unexpected order: %q .. %q", got[0].Message, got[2].Message)
	}
}

func TestRecent_LevelFilterAndLimit(t *testing.T) {
	b := New(10)
	b.Write(Entry{Level: slog.LevelDebug, Message: "dbg"})
	b.Write(Entry{Level: slog.LevelWarn, Message: "w1"})
	b.Write(Entry{Level: slog.LevelError, Message: "e1"})
	b.Write(Entry{Level: slog.LevelWarn, Message: "w2"})

	got := b.Recent(slog.LevelWarn, 2)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Message != "e1" || got[1].Message != "w2" {
		t.Errorf("expected newest two warn+ entries, got %v", got)
	}
}

func TestCountSince(t *testing.T) {
	b := New(10)
	cut := time.Now()
	b.Write(Entry{Time: cut.Add(-time.Minute), Level: slog.LevelError, Message: "old"})
	b.Write(Entry{Time: cut.Add(time.Minute), Level: slog.LevelError, Message: "new"})
	b.Write(Entry{Time: cut.Add(time.Minute), Level: slog.LevelInfo, Message: "info"})

	if n := b.CountSince(cut, slog.LevelWarn); n != 1 {
		t.Errorf("expected 1, got %d", n)
	}
}

func TestHandler_CapturesBelowInnerLevel(t *testing.T) {
	buf := New(10)
	inner := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
	logger := slog.New(NewHandler(inner, buf))

	logger.Info("captured anyway")

	if got := buf.Recent(slog.LevelInfo, 0); len(got) != 1 || got[0].Message != "captured anyway" {
		t.Fatalf("expected captured entry, got %v", got)
	}
}
