package ticket

import (
	"strings"
	"testing"
	"time"
)

func TestRenderTranscript(t *testing.T) {
	tk := &Ticket{
		ID:        "chan-7",
		UserID:    "111",
		CreatedAt: time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	entries := []Entry{
		{Timestamp: time.Date(2025, 3, 14, 9, 27, 1, 0, time.UTC), Author: "alice", Content: "hello"},
		{Timestamp: time.Date(2025, 3, 14, 9, 28, 30, 0, time.UTC), Author: "mod", Content: ""},
	}

	got := RenderTranscript(tk, entries)
	lines := strings.Split(got, "\n")

	if lines[0] != "=== TICKET LOG #chan-7 ===" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "Created at: 14/03/2025 09:26:53" {
		t.Errorf("creation line = %q", lines[1])
	}
	if lines[2] != strings.Repeat("=", 50) {
		t.Errorf("separator = %q", lines[2])
	}
	if !strings.Contains(got, "[14/03/2025 09:27:01] alice: hello") {
		t.Errorf("entry line missing in:\n%s", got)
	}
	if !strings.Contains(got, "mod: "+PlaceholderContent) {
		t.Error("empty content not replaced with placeholder")
	}
}

func TestTranscriptFilename(t *testing.T) {
	closedAt := time.Date(2025, 3, 14, 15, 4, 5, 0, time.UTC)
	got := TranscriptFilename("chan-7", closedAt)
	if got != "ticket_chan-7_20250314_150405.txt" {
		t.Errorf("filename = %q", got)
	}
}
