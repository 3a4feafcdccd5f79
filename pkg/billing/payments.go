package billing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

// PaymentColumns is the column list read by ScanPayments
const PaymentColumns = `id, org_id, client_id, invoice_id, installment_id, amount, method, status, paid_at, created_at`

// InsertPayment writes a payment row through db, which may be a transaction
func InsertPayment(ctx context.Context, db postgres.DBTX, p *Payment) error {
	if !p.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if p.Status == "" {
		p.Status = PaymentStatusConfirmed
	}

	err := db.QueryRowContext(ctx, `
		INSERT INTO payments (org_id, client_id, invoice_id, installment_id, amount, method, status, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, p.OrgID, p.ClientID, p.InvoiceID, p.InstallmentID, p.Amount.Round(2), p.Method, p.Status, p.PaidAt,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// ScanPayments reads PaymentColumns rows
func ScanPayments(rows *sql.Rows) ([]*Payment, error) {
	var payments []*Payment
	for rows.Next() {
		p := &Payment{}
		var invoiceID, installmentID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.OrgID, &p.ClientID, &invoiceID, &installmentID,
			&p.Amount, &p.Method, &p.Status, &p.PaidAt, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if invoiceID.Valid {
			id := invoiceID.Int64
			p.InvoiceID = &id
		}
		if installmentID.Valid {
			id := installmentID.Int64
			p.InstallmentID = &id
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}
