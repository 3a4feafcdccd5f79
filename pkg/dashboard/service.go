package dashboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	eventColumns = `id, org_id, title, description, starts_at, ends_at, all_day, created_at`
	noteColumns  = `id, org_id, content, color, pinned, created_at, updated_at`
)

// PostgresService implements Service on PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateEvent adds a calendar event
func (s *PostgresService) CreateEvent(ctx context.Context, orgID int64, in *EventInput) (*Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO dashboard_events (org_id, title, description, starts_at, ends_at, all_day)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + eventColumns
	return scanEvent(s.db.QueryRowContext(ctx, query,
		orgID, in.Title, in.Description, in.StartsAt, in.EndsAt, in.AllDay,
	))
}

// GetEvent retrieves an event
func (s *PostgresService) GetEvent(ctx context.Context, orgID, id int64) (*Event, error) {
	query := `SELECT ` + eventColumns + ` FROM dashboard_events WHERE org_id = $1 AND id = $2`
	return scanEvent(s.db.QueryRowContext(ctx, query, orgID, id))
}

// ListEvents returns the events overlapping [from, to), earliest first
func (s *PostgresService) ListEvents(ctx context.Context, orgID int64, from, to time.Time) ([]*Event, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	query := `
		SELECT ` + eventColumns + `
		FROM dashboard_events
		WHERE org_id = $1 AND starts_at < $3 AND COALESCE(ends_at, starts_at) >= $2
		ORDER BY starts_at, id
	`
	rows, err := s.db.QueryContext(ctx, query, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

// UpdateEvent replaces an event
func (s *PostgresService) UpdateEvent(ctx context.Context, orgID, id int64, in *EventInput) (*Event, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE dashboard_events
		SET title = $3, description = $4, starts_at = $5, ends_at = $6, all_day = $7
		WHERE org_id = $1 AND id = $2
		RETURNING ` + eventColumns
	return scanEvent(s.db.QueryRowContext(ctx, query,
		orgID, id, in.Title, in.Description, in.StartsAt, in.EndsAt, in.AllDay,
	))
}

// DeleteEvent removes an event
func (s *PostgresService) DeleteEvent(ctx context.Context, orgID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dashboard_events WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// CreateNote adds a sticky note
func (s *PostgresService) CreateNote(ctx context.Context, orgID int64, in *NoteInput) (*Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO dashboard_notes (org_id, content, color, pinned)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + noteColumns
	return scanNote(s.db.QueryRowContext(ctx, query, orgID, in.Content, in.Color, in.Pinned))
}

// ListNotes returns pinned notes first, then the most recently updated
func (s *PostgresService) ListNotes(ctx context.Context, orgID int64) ([]*Note, error) {
	query := `
		SELECT ` + noteColumns + `
		FROM dashboard_notes
		WHERE org_id = $1
		ORDER BY pinned DESC, updated_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := []*Note{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// UpdateNote replaces a note
func (s *PostgresService) UpdateNote(ctx context.Context, orgID, id int64, in *NoteInput) (*Note, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE dashboard_notes
		SET content = $3, color = $4, pinned = $5, updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		RETURNING ` + noteColumns
	return scanNote(s.db.QueryRowContext(ctx, query, orgID, id, in.Content, in.Color, in.Pinned))
}

// DeleteNote removes a note
func (s *PostgresService) DeleteNote(ctx context.Context, orgID, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM dashboard_notes WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNoteNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*Event, error) {
	e := &Event{}
	var endsAt sql.NullTime
	err := row.Scan(&e.ID, &e.OrgID, &e.Title, &e.Description, &e.StartsAt, &endsAt, &e.AllDay, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	if endsAt.Valid {
		t := endsAt.Time
		e.EndsAt = &t
	}
	return e, nil
}

func scanNote(row rowScanner) (*Note, error) {
	n := &Note{}
	err := row.Scan(&n.ID, &n.OrgID, &n.Content, &n.Color, &n.Pinned, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan note: %w", err)
	}
	return n, nil
}
