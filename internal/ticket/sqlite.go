package ticket

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS open_tickets (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ticket_entries (
			seq       INTEGER PRIMARY KEY AUTOINCREMENT,
			ticket_id TEXT NOT NULL REFERENCES open_tickets(id),
			author    TEXT NOT NULL,
			content   TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_entries_ticket ON ticket_entries(ticket_id);
		CREATE INDEX IF NOT EXISTS idx_tickets_user ON open_tickets(user_id);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Put(t *Ticket) error {
	_, err := s.db.Exec(`INSERT INTO open_tickets (id, user_id, created_at) VALUES (?, ?, ?)`,
		t.ID, t.UserID, t.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ticket store: put: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (*Ticket, bool, error) {
	row := s.db.QueryRow(`SELECT id, user_id, created_at FROM open_tickets WHERE id = ?`, id)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ticket store: get: %w", err)
	}

	entries, err := s.loadEntries(id)
	if err != nil {
		return nil, false, err
	}
	t.Entries = entries
	return t, true, nil
}

func (s *SQLiteStore) ByUser(userID string) (*Ticket, bool, error) {
	row := s.db.QueryRow(`SELECT id, user_id, created_at FROM open_tickets WHERE user_id = ?`, userID)
	t, err := scanTicket(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("ticket store: by user: %w", err)
	}
	return t, true, nil
}

func (s *SQLiteStore) AppendEntry(id string, e Entry) error {
	_, err := s.db.Exec(`INSERT INTO ticket_entries (ticket_id, author, content, timestamp) VALUES (?, ?, ?, ?)`,
		id, e.Author, e.Content, e.Timestamp.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ticket store: append entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Remove(id string) error {
	if _, err := s.db.Exec(`DELETE FROM ticket_entries WHERE ticket_id = ?`, id); err != nil {
		return fmt.Errorf("ticket store: remove entries: %w", err)
	}
	result, err := s.db.Exec(`DELETE FROM open_tickets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("ticket store: remove: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("ticket %q not found", id)
	}
	return nil
}

func (s *SQLiteStore) Count() (int, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM open_tickets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("ticket store: count: %w", err)
	}
	return count, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers ---

func (s *SQLiteStore) loadEntries(id string) ([]Entry, error) {
	rows, err := s.db.Query(`SELECT author, content, timestamp FROM ticket_entries WHERE ticket_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("ticket store: load entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.Author, &e.Content, &ts); err != nil {
			return nil, fmt.Errorf("ticket store: scan entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, ts)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func scanTicket(row *sql.Row) (*Ticket, error) {
	var t Ticket
	var createdAt string
	if err := row.Scan(&t.ID, &t.UserID, &createdAt); err != nil {
		return nil, err
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}
