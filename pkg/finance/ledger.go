package finance

import (
	"context"
	"fmt"

	"github.com/platinummonkey/clientbill/pkg/apperr"
	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

var (
	ErrNotFound        = apperr.NotFound("Lançamento não encontrado")
	ErrInvalidType     = apperr.Invalid("Tipo de lançamento deve ser INCOME ou EXPENSE")
	ErrInvalidAmount   = apperr.Invalid("Valor do lançamento deve ser maior que zero")
	ErrMissingDate     = apperr.Invalid("Data do lançamento é obrigatória")
	ErrInvalidRange    = apperr.Invalid("Período inválido")
	ErrLinkedEntry     = apperr.Conflict("Lançamento vinculado a cobrança não pode ser excluído")
	ErrCategoryMissing = apperr.Invalid("Categoria é obrigatória")
)

// Validate checks the ledger invariants shared by manual and generated entries
func (t *Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.OccurredAt.IsZero() {
		return ErrMissingDate
	}
	if t.Category == "" {
		return ErrCategoryMissing
	}
	return nil
}

// InsertTransaction validates t and writes it through db, which may be a transaction.
// Billing flows call it inside their own database transaction.
func InsertTransaction(ctx context.Context, db postgres.DBTX, t *Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (org_id, type, amount, category, description, occurred_at,
		                          client_id, invoice_id, installment_id, subscription_id, reference_month)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at
	`
	err := db.QueryRowContext(ctx, query,
		t.OrgID, t.Type, t.Amount.Round(2), t.Category, t.Description, t.OccurredAt,
		t.ClientID, t.InvoiceID, t.InstallmentID, t.SubscriptionID, t.ReferenceMonth,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}
