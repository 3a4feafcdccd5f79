package notifications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/platinummonkey/clientbill/pkg/apperr"
	"github.com/platinummonkey/clientbill/pkg/observability"
	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

var (
	ErrNotFound      = apperr.NotFound("Notificação não encontrada")
	ErrTitleRequired = apperr.Invalid("Título da notificação é obrigatório")
	ErrInvalidType   = apperr.Invalid("Tipo de notificação inválido")
)

const notificationColumns = `id, org_id, type, title, message, client_id, invoice_id, send_email, send_whatsapp,
	read_at, created_at`

// Valid reports whether t is a known notification type
func (t Type) Valid() bool {
	switch t {
	case TypeInvoiceGenerated, TypeInvoiceOverdue, TypeInvoicePaid, TypeInstallmentLate,
		TypeInstallmentPaid, TypeAutomationFailed, TypeGeneral:
		return true
	}
	return false
}

// Sender hands stored notifications to external channels
type Sender interface {
	Dispatch(orgID int64, n *Notification)
}

// PostgresService implements Service using PostgreSQL
type PostgresService struct {
	db     *sql.DB
	sender Sender
	logger *observability.Logger
}

// NewPostgresService creates a new PostgresService. sender may be nil to keep notifications in-app only.
func NewPostgresService(db *sql.DB, sender Sender, logger *observability.Logger) *PostgresService {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &PostgresService{db: db, sender: sender, logger: logger}
}

// Create stores a notification and schedules its external delivery
func (s *PostgresService) Create(ctx context.Context, orgID int64, req *CreateRequest) (*Notification, error) {
	if req.Type == "" {
		req.Type = TypeGeneral
	}
	if !req.Type.Valid() {
		return nil, ErrInvalidType
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	query := `
		INSERT INTO notifications (org_id, type, title, message, client_id, invoice_id, send_email, send_whatsapp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + notificationColumns
	n, err := scanNotification(s.db.QueryRowContext(ctx, query,
		orgID, req.Type, title, req.Message, req.ClientID, req.InvoiceID, req.SendEmail, req.SendWhatsApp))
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.sender != nil && (n.SendEmail || n.SendWhatsApp) {
		s.sender.Dispatch(orgID, n)
	}
	return n, nil
}

// List lists notifications newest first
func (s *PostgresService) List(ctx context.Context, orgID int64, filter ListFilter) ([]*Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE org_id = $1`
	args := []interface{}{orgID}
	if filter.UnreadOnly {
		query += ` AND read_at IS NULL`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var list []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return list, nil
}

// MarkRead marks one notification read. Marking an already read notification is a no-op.
func (s *PostgresService) MarkRead(ctx context.Context, orgID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = COALESCE(read_at, NOW()) WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if postgres.RowsAffected(result) == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification read and returns how many changed
func (s *PostgresService) MarkAllRead(ctx context.Context, orgID int64) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = NOW() WHERE org_id = $1 AND read_at IS NULL`, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return postgres.RowsAffected(result), nil
}

// UnreadCount counts unread notifications
func (s *PostgresService) UnreadCount(ctx context.Context, orgID int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE org_id = $1 AND read_at IS NULL`, orgID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanNotification(row rowScanner) (*Notification, error) {
	n := &Notification{}
	var clientID, invoiceID sql.NullInt64
	var readAt sql.NullTime
	err := row.Scan(&n.ID, &n.OrgID, &n.Type, &n.Title, &n.Message, &clientID, &invoiceID,
		&n.SendEmail, &n.SendWhatsApp, &readAt, &n.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan notification: %w", err)
	}
	if clientID.Valid {
		n.ClientID = &clientID.Int64
	}
	if invoiceID.Valid {
		n.InvoiceID = &invoiceID.Int64
	}
	if readAt.Valid {
		n.ReadAt = &readAt.Time
	}
	return n, nil
}
