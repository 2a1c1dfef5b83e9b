// Package moderation implements the admin action surface: ban/unban,
// role edits, embed authoring and the flat-file warning log.
package moderation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Warning is one recorded infraction.
type Warning struct {
	ID        string    `json:"id"`
	Reason    string    `json:"reason"`
	Moderator string    `json:"moderator"`
	Date      time.Time `json:"date"`
}

// WarningLog stores warnings per user in a single JSON document,
// rewritten in full on every mutation. The mutex makes the
// read-modify-write atomic within the process.
type WarningLog struct {
	mu   sync.Mutex
	path string
}

// NewWarningLog points the log at its backing file. The file is created
// on first write.
func NewWarningLog(path string) *WarningLog {
	return &WarningLog{path: path}
}

// Add records a warning and returns it with its generated id.
func (l *WarningLog) Add(userID, reason, moderatorID string) (Warning, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load()
	if err != nil {
		return Warning{}, err
	}
	w := Warning{
		ID:        uuid.NewString(),
		Reason:    reason,
		Moderator: moderatorID,
		Date:      time.Now().UTC(),
	}
	all[userID] = append(all[userID], w)
	if err := l.save(all); err != nil {
		return Warning{}, err
	}
	return w, nil
}

// List returns a user's warnings in the order they were recorded.
func (l *WarningLog) List(userID string) ([]Warning, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load()
	if err != nil {
		return nil, err
	}
	return all[userID], nil
}

// Remove deletes one warning by id. Reports whether it existed.
func (l *WarningLog) Remove(userID, warningID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load()
	if err != nil {
		return false, err
	}
	warnings, ok := all[userID]
	if !ok {
		return false, nil
	}

	kept := warnings[:0]
	removed := false
	for _, w := range warnings {
		if w.ID == warningID {
			removed = true
			continue
		}
		kept = append(kept, w)
	}
	if !removed {
		return false, nil
	}
	if len(kept) == 0 {
		delete(all, userID)
	} else {
		all[userID] = kept
	}
	return true, l.save(all)
}

// Clear drops every warning for a user. Reports how many were removed.
func (l *WarningLog) Clear(userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all, err := l.load()
	if err != nil {
		return 0, err
	}
	n := len(all[userID])
	if n == 0 {
		return 0, nil
	}
	delete(all, userID)
	return n, l.save(all)
}

func (l *WarningLog) load() (map[string][]Warning, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string][]Warning), nil
	}
	if err != nil {
		return nil, fmt.Errorf("warnings: read: %w", err)
	}

	all := make(map[string][]Warning)
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("warnings: parse: %w", err)
	}
	return all, nil
}

func (l *WarningLog) save(all map[string][]Warning) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("warnings: encode: %w", err)
	}
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("warnings: create dir: %w", err)
		}
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("warnings: write: %w", err)
	}
	return nil
}
