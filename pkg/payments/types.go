package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/clients"
)

// InstallmentStatus is the state of a single installment
type InstallmentStatus string

const (
	InstallmentPending   InstallmentStatus = "PENDING"
	InstallmentConfirmed InstallmentStatus = "CONFIRMED"
	InstallmentLate      InstallmentStatus = "LATE"
)

// Installment is one scheduled payment of a parcelled contract
type Installment struct {
	ID          int64             `json:"id"`
	OrgID       int64             `json:"org_id"`
	ClientID    int64             `json:"client_id"`
	Number      int               `json:"number"`
	TotalCount  int               `json:"total_count"`
	Amount      decimal.Decimal   `json:"amount"`
	DueDate     time.Time         `json:"due_date"`
	Status      InstallmentStatus `json:"status"`
	PaidAmount  *decimal.Decimal  `json:"paid_amount,omitempty"`
	ConfirmedAt *time.Time        `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Label renders the installment position, e.g. 3/10
func (i *Installment) Label() string {
	return fmt.Sprintf("%d/%d", i.Number, i.TotalCount)
}

// ScheduledInstallment is a planned installment not yet stored
type ScheduledInstallment struct {
	Number  int
	Amount  decimal.Decimal
	DueDate time.Time
}

// ConfirmMonthlyRequest records a payment for the invoice of a month
type ConfirmMonthlyRequest struct {
	ClientID int64           `json:"client_id"`
	Month    time.Time       `json:"month"`
	Amount   decimal.Decimal `json:"amount"`
	Method   string          `json:"method"`
	PaidAt   *time.Time      `json:"paid_at,omitempty"`
}

// MonthlyResult is the outcome of ConfirmMonthlyPayment
type MonthlyResult struct {
	Status    string          `json:"status"`
	InvoiceID int64           `json:"invoice_id"`
	Total     decimal.Decimal `json:"total"`
	PaidTotal decimal.Decimal `json:"paid_total"`
	Remaining decimal.Decimal `json:"remaining"`
}

const (
	ResultPaid    = "PAID"
	ResultPartial = "PARTIAL"
)

// ConfirmInstallmentRequest confirms an installment. A nil Amount pays the scheduled amount.
type ConfirmInstallmentRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Method string           `json:"method"`
	PaidAt *time.Time       `json:"paid_at,omitempty"`
}

// GenerationResult reports an installment generation run for one client
type GenerationResult struct {
	ClientID  int64          `json:"client_id"`
	Created   []*Installment `json:"created"`
	Existing  int            `json:"existing"`
	Remaining int            `json:"remaining"`
}

// BatchResult reports installment generation across the clients of an org
type BatchResult struct {
	Clients int      `json:"clients"`
	Created int      `json:"created"`
	Errors  []string `json:"errors,omitempty"`
}

// LateResult reports a MarkLateInstallments run
type LateResult struct {
	Installments []*Installment `json:"installments"`
	ClientIDs    []int64        `json:"client_ids"`
}

// Service defines payment reconciliation operations
type Service interface {
	ConfirmMonthlyPayment(ctx context.Context, orgID int64, req *ConfirmMonthlyRequest) (*MonthlyResult, error)
	GenerateInstallments(ctx context.Context, orgID, clientID int64) (*GenerationResult, error)
	GenerateAllInstallments(ctx context.Context, orgID int64) (*BatchResult, error)
	ConfirmInstallment(ctx context.Context, orgID, id int64, req *ConfirmInstallmentRequest) (*Installment, error)
	MarkLateInstallments(ctx context.Context, orgID int64, now time.Time) (*LateResult, error)
	ListInstallments(ctx context.Context, orgID, clientID int64) ([]*Installment, error)
	ListPayments(ctx context.Context, orgID, clientID int64) ([]*billing.Payment, error)
}

// Schedule expands a plan into its installments. Installment k is due IntervalDays*(k-1)
// days after the first due date, or k-1 calendar months later when IntervalDays is zero.
// The amount is the total split evenly with the rounding remainder on the last installment.
func Schedule(plan *clients.InstallmentPlan) []ScheduledInstallment {
	if plan == nil || plan.Count <= 0 {
		return nil
	}

	count := decimal.NewFromInt(int64(plan.Count))
	base := plan.TotalAmount.Div(count).RoundDown(2)
	last := plan.TotalAmount.Sub(base.Mul(decimal.NewFromInt(int64(plan.Count - 1))))

	schedule := make([]ScheduledInstallment, plan.Count)
	for k := 1; k <= plan.Count; k++ {
		due := plan.FirstDueDate.AddDate(0, 0, plan.IntervalDays*(k-1))
		if plan.IntervalDays == 0 {
			due = addMonths(plan.FirstDueDate, k-1)
		}
		amount := base
		if k == plan.Count {
			amount = last
		}
		schedule[k-1] = ScheduledInstallment{Number: k, Amount: amount, DueDate: due}
	}
	return schedule
}

// addMonths moves t by n calendar months keeping the day of month, clamped to the month length
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	return billing.DueDateInMonth(first, t.Day())
}

// AggregateStatus derives the client payment status from its installments
func AggregateStatus(totalCount int, installments []*Installment) clients.PaymentStatus {
	confirmed := 0
	late := false
	for _, inst := range installments {
		switch inst.Status {
		case InstallmentConfirmed:
			confirmed++
		case InstallmentLate:
			late = true
		}
	}

	switch {
	case totalCount > 0 && confirmed >= totalCount:
		return clients.PaymentStatusSettled
	case late:
		return clients.PaymentStatusLate
	case confirmed > 0:
		return clients.PaymentStatusCurrent
	default:
		return clients.PaymentStatusPending
	}
}
