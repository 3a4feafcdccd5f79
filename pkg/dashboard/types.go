package dashboard

import (
	"context"
	"time"
)

// Event is a calendar entry. EndsAt is optional; an event without it is a point in time.
type Event struct {
	ID          int64      `json:"id"`
	OrgID       int64      `json:"org_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	AllDay      bool       `json:"all_day"`
	CreatedAt   time.Time  `json:"created_at"`
}

// EventInput creates or replaces an event
type EventInput struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	AllDay      bool       `json:"all_day"`
}

// NoteColor is the background of a sticky note
type NoteColor string

const (
	NoteYellow NoteColor = "yellow"
	NoteBlue   NoteColor = "blue"
	NoteGreen  NoteColor = "green"
	NotePink   NoteColor = "pink"
	NotePurple NoteColor = "purple"
)

// Valid reports whether c is a known color
func (c NoteColor) Valid() bool {
	switch c {
	case NoteYellow, NoteBlue, NoteGreen, NotePink, NotePurple:
		return true
	}
	return false
}

// Note is a sticky note
type Note struct {
	ID        int64     `json:"id"`
	OrgID     int64     `json:"org_id"`
	Content   string    `json:"content"`
	Color     NoteColor `json:"color"`
	Pinned    bool      `json:"pinned"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteInput creates or replaces a note. An empty color defaults to yellow.
type NoteInput struct {
	Content string    `json:"content"`
	Color   NoteColor `json:"color"`
	Pinned  bool      `json:"pinned"`
}

// Service defines the dashboard operations
type Service interface {
	CreateEvent(ctx context.Context, orgID int64, in *EventInput) (*Event, error)
	GetEvent(ctx context.Context, orgID, id int64) (*Event, error)
	ListEvents(ctx context.Context, orgID int64, from, to time.Time) ([]*Event, error)
	UpdateEvent(ctx context.Context, orgID, id int64, in *EventInput) (*Event, error)
	DeleteEvent(ctx context.Context, orgID, id int64) error

	CreateNote(ctx context.Context, orgID int64, in *NoteInput) (*Note, error)
	ListNotes(ctx context.Context, orgID int64) ([]*Note, error)
	UpdateNote(ctx context.Context, orgID, id int64, in *NoteInput) (*Note, error)
	DeleteNote(ctx context.Context, orgID, id int64) error
}
