package analytics

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Trend is the direction of a metric against its previous value
type Trend string

const (
	TrendUp     Trend = "UP"
	TrendDown   Trend = "DOWN"
	TrendStable Trend = "STABLE"
)

// Metric is a value compared with the same figure of the previous period
type Metric struct {
	Value    decimal.Decimal `json:"value"`
	Previous decimal.Decimal `json:"previous"`
}

// NewMetric creates a metric
func NewMetric(value, previous decimal.Decimal) Metric {
	return Metric{Value: value, Previous: previous}
}

// Trend compares the value with the previous one
func (m Metric) Trend() Trend {
	switch m.Value.Cmp(m.Previous) {
	case 1:
		return TrendUp
	case -1:
		return TrendDown
	default:
		return TrendStable
	}
}

// ChangePercent is the relative change in percent, rounded to two places.
// It is 0 when the previous value is zero.
func (m Metric) ChangePercent() float64 {
	if m.Previous.IsZero() {
		return 0
	}
	return m.Value.Sub(m.Previous).
		Div(m.Previous.Abs()).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
}

// MarshalJSON includes the derived trend and change percent
func (m Metric) MarshalJSON() ([]byte, error) {
	type metric Metric
	return json.Marshal(struct {
		metric
		Trend         Trend   `json:"trend"`
		ChangePercent float64 `json:"change_percent"`
	}{metric(m), m.Trend(), m.ChangePercent()})
}

// Overview is the main dashboard of an organization
type Overview struct {
	Month           string          `json:"month"`
	Revenue         Metric          `json:"revenue"`
	Expense         Metric          `json:"expense"`
	Profit          Metric          `json:"profit"`
	OpenReceivables decimal.Decimal `json:"open_receivables"`
	OverdueAmount   decimal.Decimal `json:"overdue_amount"`
	OverdueCount    int64           `json:"overdue_count"`
	ActiveClients   int64           `json:"active_clients"`
	InstallmentsDue decimal.Decimal `json:"installments_due"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// CashFlowMonth is the ledger movement of one calendar month
type CashFlowMonth struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

// ClientRevenue is the income received from one client
type ClientRevenue struct {
	ClientID   int64           `json:"client_id"`
	ClientName string          `json:"client_name"`
	Revenue    decimal.Decimal `json:"revenue"`
	Share      float64         `json:"share"`
}

// AgingBucket groups outstanding balances by days past due
type AgingBucket struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// AgingReport lists receivables not yet due and the past due buckets
type AgingReport struct {
	Current AgingBucket     `json:"current"`
	Buckets []AgingBucket   `json:"buckets"`
	PastDue decimal.Decimal `json:"past_due"`
	Total   decimal.Decimal `json:"total"`
}

// CollectionBucket counts installments of one status
type CollectionBucket struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// InstallmentCollection summarizes installment collection
type InstallmentCollection struct {
	Confirmed      CollectionBucket `json:"confirmed"`
	Pending        CollectionBucket `json:"pending"`
	Late           CollectionBucket `json:"late"`
	Collected      decimal.Decimal  `json:"collected"`
	CollectionRate float64          `json:"collection_rate"`
}

var agingLabels = []string{"0-30", "31-60", "61-90", "90+"}

// AgingBucketIndex maps days past due to a bucket of agingLabels.
// It returns -1 for receivables that are not past due.
func AgingBucketIndex(daysPastDue int) int {
	switch {
	case daysPastDue <= 0:
		return -1
	case daysPastDue <= 30:
		return 0
	case daysPastDue <= 60:
		return 1
	case daysPastDue <= 90:
		return 2
	default:
		return 3
	}
}

// DaysPastDue counts whole days between the due date and today
func DaysPastDue(due, now time.Time) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	return int(today.Sub(dueDay).Hours() / 24)
}
