package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus represents the status of an invoice
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusOpen    InvoiceStatus = "OPEN"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
	InvoiceStatusVoid    InvoiceStatus = "VOID"
)

// Valid reports whether s is a known status
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusOpen, InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed
func (s InvoiceStatus) Terminal() bool {
	return s == InvoiceStatusPaid || s == InvoiceStatusVoid
}

// Receivable reports whether the invoice is issued and still awaiting payment
func (s InvoiceStatus) Receivable() bool {
	return s == InvoiceStatusOpen || s == InvoiceStatusOverdue
}

var transitions = map[InvoiceStatus][]InvoiceStatus{
	InvoiceStatusDraft:   {InvoiceStatusOpen, InvoiceStatusVoid},
	InvoiceStatusOpen:    {InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid},
	InvoiceStatusOverdue: {InvoiceStatusPaid, InvoiceStatusVoid},
}

// CanTransition reports whether from -> to is a legal lifecycle step
func CanTransition(from, to InvoiceStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// InvoiceItem is one billed line
type InvoiceItem struct {
	ID          int64           `json:"id"`
	InvoiceID   int64           `json:"invoice_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// Invoice is a billable document issued to a client
type Invoice struct {
	ID          int64           `json:"id"`
	OrgID       int64           `json:"org_id"`
	ClientID    int64           `json:"client_id"`
	Number      string          `json:"number"`
	Status      InvoiceStatus   `json:"status"`
	IssueDate   time.Time       `json:"issue_date"`
	DueDate     time.Time       `json:"due_date"`
	PeriodStart *time.Time      `json:"period_start,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency"`
	Notes       string          `json:"notes,omitempty"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	VoidedAt    *time.Time      `json:"voided_at,omitempty"`
	Items       []InvoiceItem   `json:"items,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// CalculateTotals recomputes item totals, subtotal and total = subtotal - discount + tax
func (inv *Invoice) CalculateTotals() {
	subtotal := decimal.Zero
	for i := range inv.Items {
		item := &inv.Items[i]
		item.Total = item.Quantity.Mul(item.UnitPrice).Round(2)
		subtotal = subtotal.Add(item.Total)
	}
	inv.Subtotal = subtotal
	inv.Total = subtotal.Sub(inv.Discount).Add(inv.Tax).Round(2)
}

// Validate checks the document rules. Call CalculateTotals first.
func (inv *Invoice) Validate() error {
	if len(inv.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range inv.Items {
		if strings.TrimSpace(item.Description) == "" {
			return ErrItemDescription
		}
		if !item.Quantity.IsPositive() {
			return ErrItemQuantity
		}
		if item.UnitPrice.IsNegative() {
			return ErrItemPrice
		}
	}
	if inv.Discount.IsNegative() {
		return ErrNegativeDiscount
	}
	if inv.Tax.IsNegative() {
		return ErrNegativeTax
	}
	if inv.Total.IsNegative() {
		return ErrNegativeTotal
	}
	if inv.IssueDate.IsZero() || inv.DueDate.IsZero() {
		return ErrMissingDates
	}
	if inv.DueDate.Before(inv.IssueDate) {
		return ErrDueBeforeIssue
	}
	return nil
}

// IsOverdue reports whether an issued, unpaid invoice is past its due date.
// The due date is a calendar day; the invoice becomes overdue the day after it.
func (inv *Invoice) IsOverdue(now time.Time) bool {
	if !inv.Status.Receivable() {
		return false
	}
	return inv.DueDate.Before(StartOfDay(now))
}

// Issue moves a draft to OPEN
func (inv *Invoice) Issue() error {
	if inv.Status != InvoiceStatusDraft {
		return ErrNotDraft
	}
	inv.Status = InvoiceStatusOpen
	return nil
}

// Cancel voids the invoice. hasPayments reports whether any payment row references it.
func (inv *Invoice) Cancel(now time.Time, hasPayments bool) error {
	switch inv.Status {
	case InvoiceStatusPaid:
		return ErrAlreadyPaid
	case InvoiceStatusVoid:
		return ErrAlreadyVoid
	}
	if hasPayments {
		return ErrHasPayments
	}
	inv.Status = InvoiceStatusVoid
	inv.VoidedAt = &now
	return nil
}

// MarkPaid settles an OPEN or OVERDUE invoice
func (inv *Invoice) MarkPaid(paidAt time.Time) error {
	if !CanTransition(inv.Status, InvoiceStatusPaid) {
		return ErrNotPayable
	}
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &paidAt
	return nil
}

// MarkOverdue moves an OPEN invoice past its due date to OVERDUE
func (inv *Invoice) MarkOverdue(now time.Time) error {
	if inv.Status != InvoiceStatusOpen || !inv.IsOverdue(now) {
		return ErrNotOverdue
	}
	inv.Status = InvoiceStatusOverdue
	return nil
}

// DefaultTolerance is the shortfall accepted when settling an invoice
var DefaultTolerance = decimal.RequireFromString("0.05")

// SettlementThreshold is the amount that must be received for total to count as paid
func SettlementThreshold(total, tolerance decimal.Decimal) decimal.Decimal {
	return total.Mul(decimal.NewFromInt(1).Sub(tolerance))
}

// Balance is what is still owed on the invoice after paid was received, never negative
func (inv *Invoice) Balance(paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(inv.Total.Sub(paid), decimal.Zero)
}

// PaymentStatus distinguishes settling payments from partial ones
type PaymentStatus string

const (
	PaymentStatusConfirmed PaymentStatus = "CONFIRMED"
	PaymentStatusPartial   PaymentStatus = "PARTIAL"
)

// Payment is money received against an invoice or an installment
type Payment struct {
	ID            int64           `json:"id"`
	OrgID         int64           `json:"org_id"`
	ClientID      int64           `json:"client_id"`
	InvoiceID     *int64          `json:"invoice_id,omitempty"`
	InstallmentID *int64          `json:"installment_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Method        string          `json:"method"`
	Status        PaymentStatus   `json:"status"`
	PaidAt        time.Time       `json:"paid_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ItemInput is a requested invoice line
type ItemInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceRequest creates a manual invoice. Issue creates it directly as OPEN.
type CreateInvoiceRequest struct {
	ClientID    int64           `json:"client_id"`
	IssueDate   time.Time       `json:"issue_date"`
	DueDate     time.Time       `json:"due_date"`
	PeriodStart *time.Time      `json:"period_start,omitempty"`
	Items       []ItemInput     `json:"items"`
	Discount    decimal.Decimal `json:"discount"`
	Tax         decimal.Decimal `json:"tax"`
	Notes       string          `json:"notes,omitempty"`
	Issue       bool            `json:"issue"`
}

// PayRequest applies money to an invoice. A nil Amount pays the outstanding balance.
type PayRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Method string           `json:"method"`
	PaidAt *time.Time       `json:"paid_at,omitempty"`
}

// PaymentOutcome is the result of applying a payment to an invoice
type PaymentOutcome struct {
	Invoice   *Invoice
	Payment   *Payment
	PaidTotal decimal.Decimal
	Remaining decimal.Decimal
}

// Settled reports whether the payment moved the invoice to PAID
func (o *PaymentOutcome) Settled() bool {
	return o.Invoice != nil && o.Invoice.Status == InvoiceStatusPaid
}

// ListFilter narrows ListInvoices
type ListFilter struct {
	ClientID *int64
	Status   InvoiceStatus
	Limit    int
	Offset   int
}

// GenerationResult reports a monthly invoice generation run
type GenerationResult struct {
	Month    string     `json:"month"`
	Created  int        `json:"created"`
	Skipped  int        `json:"skipped"`
	Invoices []*Invoice `json:"invoices,omitempty"`
	Errors   []string   `json:"errors,omitempty"`
}

// Service defines invoice operations
type Service interface {
	CreateInvoice(ctx context.Context, orgID int64, req *CreateInvoiceRequest) (*Invoice, error)
	GetInvoice(ctx context.Context, orgID, id int64) (*Invoice, error)
	ListInvoices(ctx context.Context, orgID int64, filter ListFilter) ([]*Invoice, error)
	IssueInvoice(ctx context.Context, orgID, id int64) (*Invoice, error)
	CancelInvoice(ctx context.Context, orgID, id int64) (*Invoice, error)
	MarkInvoicePaid(ctx context.Context, orgID, id int64, req *PayRequest) (*Invoice, error)
	MarkOverdueInvoices(ctx context.Context, orgID int64, now time.Time) ([]*Invoice, error)
	GenerateMonthlyInvoices(ctx context.Context, orgID int64, month time.Time) (*GenerationResult, error)
	ListInvoicePayments(ctx context.Context, orgID, invoiceID int64) ([]*Payment, error)
}

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// MonthStart returns the first day of t's month at midnight UTC
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// DueDateInMonth places dueDay inside the month of monthStart, clamped to the month length
func DueDateInMonth(monthStart time.Time, dueDay int) time.Time {
	last := monthStart.AddDate(0, 1, -1).Day()
	if dueDay > last {
		dueDay = last
	}
	if dueDay < 1 {
		dueDay = 1
	}
	return time.Date(monthStart.Year(), monthStart.Month(), dueDay, 0, 0, 0, 0, monthStart.Location())
}

// FormatNumber renders an invoice number, e.g. FAT-202403-0007
func FormatNumber(period time.Time, seq int) string {
	return fmt.Sprintf("FAT-%s-%04d", period.Format("200601"), seq)
}
