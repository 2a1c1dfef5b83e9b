package ticket

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	stampLayout    = "02/01/2006 15:04:05"
	filenameLayout = "20060102_150405"
)

// PlaceholderContent substitutes for messages that carry only an embed
// or attachment.
const PlaceholderContent = "[embed/attachment]"

// RenderTranscript produces the plain-text transcript body: a header
// identifying the ticket and its creation time, a separator, then one
// line per entry in arrival order.
func RenderTranscript(t *Ticket, entries []Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== TICKET LOG #%s ===\n", t.ID)
	fmt.Fprintf(&b, "Created at: %s\n", t.CreatedAt.Format(stampLayout))
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	for _, e := range entries {
		content := e.Content
		if content == "" {
			content = PlaceholderContent
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", e.Timestamp.Format(stampLayout), e.Author, content)
	}
	return b.String()
}

// TranscriptFilename derives the durable file name from the ticket id
// and the close timestamp.
func TranscriptFilename(ticketID string, closedAt time.Time) string {
	return fmt.Sprintf("ticket_%s_%s.txt", ticketID, closedAt.Format(filenameLayout))
}

// WriteTranscript renders the transcript and writes it under dir,
// creating the directory if needed. Returns the file path and the
// rendered content.
func WriteTranscript(dir string, t *Ticket, entries []Entry, closedAt time.Time) (string, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("ticket: create log dir: %w", err)
	}
	content := RenderTranscript(t, entries)
	path := filepath.Join(dir, TranscriptFilename(t.ID, closedAt))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", "", fmt.Errorf("ticket: write transcript: %w", err)
	}
	return path, content, nil
}
