package clients

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMode selects how a client is billed
type PaymentMode string

const (
	PaymentModeMonthly      PaymentMode = "MONTHLY"
	PaymentModeInstallments PaymentMode = "INSTALLMENTS"
)

// Valid reports whether m is a known payment mode
func (m PaymentMode) Valid() bool {
	return m == PaymentModeMonthly || m == PaymentModeInstallments
}

// PaymentStatus is the aggregate payment standing of a client
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusCurrent PaymentStatus = "CURRENT"
	PaymentStatusLate    PaymentStatus = "LATE"
	PaymentStatusSettled PaymentStatus = "SETTLED"
)

// InstallmentPlan describes a parcelled contract. IntervalDays of zero means calendar monthly.
type InstallmentPlan struct {
	Count        int             `json:"count"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	FirstDueDate time.Time       `json:"first_due_date"`
	IntervalDays int             `json:"interval_days"`
}

// Client is a billed customer of an organization
type Client struct {
	ID            int64            `json:"id"`
	OrgID         int64            `json:"org_id"`
	Name          string           `json:"name"`
	Email         string           `json:"email,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	Document      string           `json:"document,omitempty"`
	PaymentMode   PaymentMode      `json:"payment_mode"`
	MonthlyFee    decimal.Decimal  `json:"monthly_fee"`
	DueDay        int              `json:"due_day"`
	ContractStart time.Time        `json:"contract_start"`
	ContractEnd   *time.Time       `json:"contract_end,omitempty"`
	Plan          *InstallmentPlan `json:"installment_plan,omitempty"`
	PaymentStatus PaymentStatus    `json:"payment_status"`
	Active        bool             `json:"active"`
	Notes         string           `json:"notes,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ActiveDuring reports whether the contract overlaps the half-open interval [from, to)
func (c *Client) ActiveDuring(from, to time.Time) bool {
	if !c.ContractStart.Before(to) {
		return false
	}
	if c.ContractEnd != nil && c.ContractEnd.Before(from) {
		return false
	}
	return true
}

// ClientInput is the writable part of a client, used for create and full update
type ClientInput struct {
	Name          string           `json:"name"`
	Email         string           `json:"email,omitempty"`
	Phone         string           `json:"phone,omitempty"`
	Document      string           `json:"document,omitempty"`
	PaymentMode   PaymentMode      `json:"payment_mode"`
	MonthlyFee    decimal.Decimal  `json:"monthly_fee"`
	DueDay        int              `json:"due_day"`
	ContractStart time.Time        `json:"contract_start"`
	ContractEnd   *time.Time       `json:"contract_end,omitempty"`
	Plan          *InstallmentPlan `json:"installment_plan,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

// ListFilter narrows ListClients
type ListFilter struct {
	Active      *bool
	PaymentMode PaymentMode
	Search      string
	Limit       int
	Offset      int
}

// Service defines client management operations
type Service interface {
	CreateClient(ctx context.Context, orgID int64, in *ClientInput) (*Client, error)
	GetClient(ctx context.Context, orgID, id int64) (*Client, error)
	ListClients(ctx context.Context, orgID int64, filter ListFilter) ([]*Client, error)
	UpdateClient(ctx context.Context, orgID, id int64, in *ClientInput) (*Client, error)
	DeactivateClient(ctx context.Context, orgID, id int64) error
}
