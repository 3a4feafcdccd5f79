package finance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the ledger direction
type TransactionType string

const (
	TransactionIncome  TransactionType = "INCOME"
	TransactionExpense TransactionType = "EXPENSE"
)

// Valid reports whether t is INCOME or EXPENSE
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// Categories written by the billing flows
const (
	CategoryInvoicePayment = "Faturamento"
	CategoryInstallment    = "Parcelamento"
	CategoryRecurringCost  = "Custos recorrentes"
)

// Transaction is one ledger entry. The optional links record which billing event produced it.
type Transaction struct {
	ID             int64           `json:"id"`
	OrgID          int64           `json:"org_id"`
	Type           TransactionType `json:"type"`
	Amount         decimal.Decimal `json:"amount"`
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	OccurredAt     time.Time       `json:"occurred_at"`
	ClientID       *int64          `json:"client_id,omitempty"`
	InvoiceID      *int64          `json:"invoice_id,omitempty"`
	InstallmentID  *int64          `json:"installment_id,omitempty"`
	SubscriptionID *int64          `json:"subscription_id,omitempty"`
	ReferenceMonth *time.Time      `json:"reference_month,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Linked reports whether the entry was produced by a billing flow
func (t *Transaction) Linked() bool {
	return t.InvoiceID != nil || t.InstallmentID != nil || t.SubscriptionID != nil
}

// CreateTransactionRequest is a manual ledger entry
type CreateTransactionRequest struct {
	Type        TransactionType `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurred_at"`
	ClientID    *int64          `json:"client_id,omitempty"`
}

// ListFilter narrows ListTransactions. From is inclusive, To exclusive.
type ListFilter struct {
	Type     TransactionType
	Category string
	ClientID *int64
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// CategoryTotal is the sum of one category within a summary window
type CategoryTotal struct {
	Type     TransactionType `json:"type"`
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Summary aggregates the ledger over [From, To)
type Summary struct {
	From       time.Time       `json:"from"`
	To         time.Time       `json:"to"`
	Income     decimal.Decimal `json:"income"`
	Expense    decimal.Decimal `json:"expense"`
	Net        decimal.Decimal `json:"net"`
	Count      int             `json:"count"`
	Categories []CategoryTotal `json:"categories"`
}

// Service defines ledger operations
type Service interface {
	CreateTransaction(ctx context.Context, orgID int64, req *CreateTransactionRequest) (*Transaction, error)
	GetTransaction(ctx context.Context, orgID, id int64) (*Transaction, error)
	ListTransactions(ctx context.Context, orgID int64, filter ListFilter) ([]*Transaction, error)
	DeleteTransaction(ctx context.Context, orgID, id int64) error
	Summary(ctx context.Context, orgID int64, from, to time.Time) (*Summary, error)
}
