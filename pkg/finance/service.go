package finance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const transactionColumns = `id, org_id, type, amount, category, description, occurred_at,
	client_id, invoice_id, installment_id, subscription_id, reference_month, created_at`

// PostgresService implements Service on PostgreSQL
type PostgresService struct {
	db *sql.DB
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB) *PostgresService {
	return &PostgresService{db: db}
}

// CreateTransaction records a manual ledger entry
func (s *PostgresService) CreateTransaction(ctx context.Context, orgID int64, req *CreateTransactionRequest) (*Transaction, error) {
	t := &Transaction{
		OrgID:       orgID,
		Type:        req.Type,
		Amount:      req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
		OccurredAt:  req.OccurredAt,
		ClientID:    req.ClientID,
	}
	if err := InsertTransaction(ctx, s.db, t); err != nil {
		return nil, err
	}
	return t, nil
}

// GetTransaction retrieves a ledger entry
func (s *PostgresService) GetTransaction(ctx context.Context, orgID, id int64) (*Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE org_id = $1 AND id = $2`
	return scanTransaction(s.db.QueryRowContext(ctx, query, orgID, id))
}

// ListTransactions lists entries newest first
func (s *PostgresService) ListTransactions(ctx context.Context, orgID int64, filter ListFilter) ([]*Transaction, error) {
	conditions := []string{"org_id = $1"}
	args := []interface{}{orgID}

	if filter.Type != "" {
		if !filter.Type.Valid() {
			return nil, ErrInvalidType
		}
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(args)))
	}
	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("occurred_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("occurred_at < $%d", len(args)))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(conditions, " AND ") + ` ORDER BY occurred_at DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var result []*Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return result, nil
}

// DeleteTransaction removes a manual entry. Entries produced by billing flows stay.
func (s *PostgresService) DeleteTransaction(ctx context.Context, orgID, id int64) error {
	t, err := s.GetTransaction(ctx, orgID, id)
	if err != nil {
		return err
	}
	if t.Linked() {
		return ErrLinkedEntry
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Summary totals income and expense over [from, to)
func (s *PostgresService) Summary(ctx context.Context, orgID int64, from, to time.Time) (*Summary, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	summary := &Summary{From: from, To: to, Categories: []CategoryTotal{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT type, category, SUM(amount), COUNT(*)
		FROM transactions
		WHERE org_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		GROUP BY type, category
		ORDER BY type, SUM(amount) DESC
	`, orgID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ct    CategoryTotal
			count int
		)
		if err := rows.Scan(&ct.Type, &ct.Category, &ct.Total, &count); err != nil {
			return nil, fmt.Errorf("failed to scan summary row: %w", err)
		}
		switch ct.Type {
		case TransactionIncome:
			summary.Income = summary.Income.Add(ct.Total)
		case TransactionExpense:
			summary.Expense = summary.Expense.Add(ct.Total)
		}
		summary.Count += count
		summary.Categories = append(summary.Categories, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate summary: %w", err)
	}

	summary.Net = summary.Income.Sub(summary.Expense)
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*Transaction, error) {
	t := &Transaction{}
	var (
		clientID, invoiceID, installmentID, subscriptionID sql.NullInt64
		referenceMonth                                     sql.NullTime
	)
	err := row.Scan(
		&t.ID, &t.OrgID, &t.Type, &t.Amount, &t.Category, &t.Description, &t.OccurredAt,
		&clientID, &invoiceID, &installmentID, &subscriptionID, &referenceMonth, &t.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	t.ClientID = nullInt64(clientID)
	t.InvoiceID = nullInt64(invoiceID)
	t.InstallmentID = nullInt64(installmentID)
	t.SubscriptionID = nullInt64(subscriptionID)
	if referenceMonth.Valid {
		m := referenceMonth.Time
		t.ReferenceMonth = &m
	}
	return t, nil
}

func nullInt64(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}
