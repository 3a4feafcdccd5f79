package costs

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CostItem is a cost in the organization catalogue. Recurring items are charged every month
// a subscription covers; the others once, in the month the subscription starts.
type CostItem struct {
	ID            int64           `json:"id"`
	OrgID         int64           `json:"org_id"`
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	DefaultAmount decimal.Decimal `json:"default_amount"`
	Recurring     bool            `json:"recurring"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// CostItemInput creates or replaces a cost item
type CostItemInput struct {
	Name          string          `json:"name"`
	Category      string          `json:"category"`
	DefaultAmount decimal.Decimal `json:"default_amount"`
	Recurring     *bool           `json:"recurring,omitempty"`
}

// Subscription attaches a cost item to a client for a date range
type Subscription struct {
	ID           int64            `json:"id"`
	OrgID        int64            `json:"org_id"`
	ClientID     int64            `json:"client_id"`
	CostItemID   int64            `json:"cost_item_id"`
	CostItemName string           `json:"cost_item_name,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	StartDate    time.Time        `json:"start_date"`
	EndDate      *time.Time       `json:"end_date,omitempty"`
	Active       bool             `json:"active"`
	CreatedAt    time.Time        `json:"created_at"`
}

// EffectiveAmount returns the override amount or the cost item default
func (s *Subscription) EffectiveAmount(defaultAmount decimal.Decimal) decimal.Decimal {
	if s.Amount != nil {
		return *s.Amount
	}
	return defaultAmount
}

// Covers reports whether an active subscription overlaps the month starting at monthStart
func (s *Subscription) Covers(monthStart time.Time) bool {
	if !s.Active {
		return false
	}
	next := monthStart.AddDate(0, 1, 0)
	if !s.StartDate.Before(next) {
		return false
	}
	return s.EndDate == nil || !s.EndDate.Before(monthStart)
}

// ChargedIn reports whether the subscription is billed for the month starting at monthStart.
// A one-off cost is billed only in the month its subscription starts.
func (s *Subscription) ChargedIn(monthStart time.Time, recurring bool) bool {
	if !s.Covers(monthStart) {
		return false
	}
	return recurring || !s.StartDate.Before(monthStart)
}

// SubscriptionInput creates a subscription
type SubscriptionInput struct {
	ClientID   int64            `json:"client_id"`
	CostItemID int64            `json:"cost_item_id"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	StartDate  time.Time        `json:"start_date"`
	EndDate    *time.Time       `json:"end_date,omitempty"`
}

// MaterializeResult reports a MaterializeMonth run
type MaterializeResult struct {
	Month   string   `json:"month"`
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// CostLine is one subscription's share of a client's monthly cost
type CostLine struct {
	SubscriptionID int64           `json:"subscription_id"`
	CostItemID     int64           `json:"cost_item_id"`
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
}

// ClientSummary totals a client's recurring costs for a month
type ClientSummary struct {
	ClientID int64           `json:"client_id"`
	Month    string          `json:"month"`
	Lines    []CostLine      `json:"lines"`
	Total    decimal.Decimal `json:"total"`
}

// Service defines cost tracking operations
type Service interface {
	CreateCostItem(ctx context.Context, orgID int64, in *CostItemInput) (*CostItem, error)
	GetCostItem(ctx context.Context, orgID, id int64) (*CostItem, error)
	ListCostItems(ctx context.Context, orgID int64, activeOnly bool) ([]*CostItem, error)
	UpdateCostItem(ctx context.Context, orgID, id int64, in *CostItemInput) (*CostItem, error)
	DeactivateCostItem(ctx context.Context, orgID, id int64) error
	CreateSubscription(ctx context.Context, orgID int64, in *SubscriptionInput) (*Subscription, error)
	ListSubscriptions(ctx context.Context, orgID int64, clientID *int64) ([]*Subscription, error)
	DeactivateSubscription(ctx context.Context, orgID, id int64) error
	MaterializeMonth(ctx context.Context, orgID int64, month time.Time) (*MaterializeResult, error)
	ClientCostSummary(ctx context.Context, orgID, clientID int64, month time.Time) (*ClientSummary, error)
}
