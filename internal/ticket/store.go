package ticket

import "time"

// Entry is one line of a ticket's transcript.
type Entry struct {
	Timestamp time.Time
	Author    string
	Content   string
}

// Ticket is an open support ticket. Its id is the backing channel's id;
// the record exists only while the ticket is open.
type Ticket struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	Entries   []Entry
}

// Store persists open tickets so lifecycle records survive restarts
// alongside the persistent close buttons.
type Store interface {
	// Put registers a newly opened ticket.
	Put(t *Ticket) error
	// Get retrieves an open ticket by channel id, with its cached entries.
	Get(id string) (*Ticket, bool, error)
	// ByUser finds a user's open ticket, if any.
	ByUser(userID string) (*Ticket, bool, error)
	// AppendEntry adds a transcript entry to an open ticket.
	AppendEntry(id string, e Entry) error
	// Remove deletes the lifecycle record at close.
	Remove(id string) error
	// Count returns the number of open tickets.
	Count() (int, error)
}
