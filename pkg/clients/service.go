package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

const clientColumns = `id, org_id, name, email, phone, document, payment_mode, monthly_fee, due_day,
	contract_start, contract_end, installment_count, installment_total, installment_first_due,
	installment_interval_days, payment_status, active, notes, created_at, updated_at`

// PostgresService implements Service on PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateClient validates and stores a new active client
func (s *PostgresService) CreateClient(ctx context.Context, orgID int64, in *ClientInput) (*Client, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	count, total, firstDue, interval := planColumns(in.Plan)
	query := `
		INSERT INTO clients (org_id, name, email, phone, document, payment_mode, monthly_fee, due_day,
		                     contract_start, contract_end, installment_count, installment_total,
		                     installment_first_due, installment_interval_days, payment_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING ` + clientColumns

	row := s.db.QueryRowContext(ctx, query,
		orgID, in.Name, in.Email, in.Phone, in.Document, in.PaymentMode, in.MonthlyFee, in.DueDay,
		in.ContractStart, in.ContractEnd, count, total, firstDue, interval, PaymentStatusPending, in.Notes)

	client, err := scanClient(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// GetClient retrieves a client of the organization
func (s *PostgresService) GetClient(ctx context.Context, orgID, id int64) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE org_id = $1 AND id = $2`
	return scanClient(s.db.QueryRowContext(ctx, query, orgID, id))
}

// ListClients lists clients ordered by name
func (s *PostgresService) ListClients(ctx context.Context, orgID int64, filter ListFilter) ([]*Client, error) {
	conditions := []string{"org_id = $1"}
	args := []interface{}{orgID}

	if filter.Active != nil {
		args = append(args, *filter.Active)
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)))
	}
	if filter.PaymentMode != "" {
		args = append(args, filter.PaymentMode)
		conditions = append(conditions, fmt.Sprintf("payment_mode = $%d", len(args)))
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR email ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + clientColumns + ` FROM clients WHERE ` + strings.Join(conditions, " AND ") + ` ORDER BY name, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	defer rows.Close()

	var result []*Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clients: %w", err)
	}
	return result, nil
}

// UpdateClient replaces the writable fields of a client
func (s *PostgresService) UpdateClient(ctx context.Context, orgID, id int64, in *ClientInput) (*Client, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	count, total, firstDue, interval := planColumns(in.Plan)
	query := `
		UPDATE clients
		SET name = $3, email = $4, phone = $5, document = $6, payment_mode = $7, monthly_fee = $8,
		    due_day = $9, contract_start = $10, contract_end = $11, installment_count = $12,
		    installment_total = $13, installment_first_due = $14, installment_interval_days = $15,
		    notes = $16, updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		RETURNING ` + clientColumns

	row := s.db.QueryRowContext(ctx, query,
		orgID, id, in.Name, in.Email, in.Phone, in.Document, in.PaymentMode, in.MonthlyFee, in.DueDay,
		in.ContractStart, in.ContractEnd, count, total, firstDue, interval, in.Notes)
	return scanClient(row)
}

// DeactivateClient marks a client inactive; history is kept
func (s *PostgresService) DeactivateClient(ctx context.Context, orgID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE clients SET active = false, updated_at = NOW() WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate client: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func planColumns(plan *InstallmentPlan) (int, decimal.Decimal, *time.Time, int) {
	if plan == nil {
		return 0, decimal.Zero, nil, 0
	}
	firstDue := plan.FirstDueDate
	return plan.Count, plan.TotalAmount, &firstDue, plan.IntervalDays
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClient(row rowScanner) (*Client, error) {
	c := &Client{}
	var (
		contractEnd sql.NullTime
		count       int
		total       decimal.Decimal
		firstDue    sql.NullTime
		interval    int
	)
	err := row.Scan(
		&c.ID, &c.OrgID, &c.Name, &c.Email, &c.Phone, &c.Document, &c.PaymentMode, &c.MonthlyFee, &c.DueDay,
		&c.ContractStart, &contractEnd, &count, &total, &firstDue,
		&interval, &c.PaymentStatus, &c.Active, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan client: %w", err)
	}

	if contractEnd.Valid {
		end := contractEnd.Time
		c.ContractEnd = &end
	}
	if c.PaymentMode == PaymentModeInstallments && count > 0 {
		c.Plan = &InstallmentPlan{
			Count:        count,
			TotalAmount:  total,
			FirstDueDate: firstDue.Time,
			IntervalDays: interval,
		}
	}
	return c, nil
}

// UpdatePaymentStatus sets the aggregate payment status of the given clients through db,
// which may be a transaction
func UpdatePaymentStatus(ctx context.Context, db postgres.DBTX, orgID int64, ids []int64, status PaymentStatus) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.ExecContext(ctx, `
		UPDATE clients SET payment_status = $1, updated_at = NOW()
		WHERE org_id = $2 AND id = ANY($3)
	`, status, orgID, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to update client payment status: %w", err)
	}
	return nil
}
