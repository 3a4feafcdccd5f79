package notifications

import (
	"context"
	"time"
)

// Type classifies a notification
type Type string

const (
	TypeInvoiceGenerated Type = "INVOICE_GENERATED"
	TypeInvoiceOverdue   Type = "INVOICE_OVERDUE"
	TypeInvoicePaid      Type = "INVOICE_PAID"
	TypeInstallmentLate  Type = "INSTALLMENT_LATE"
	TypeInstallmentPaid  Type = "INSTALLMENT_PAID"
	TypeAutomationFailed Type = "AUTOMATION_FAILED"
	TypeGeneral          Type = "GENERAL"
)

// Notification is an in-app message that may also be delivered by email or WhatsApp
type Notification struct {
	ID           int64      `json:"id"`
	OrgID        int64      `json:"org_id"`
	Type         Type       `json:"type"`
	Title        string     `json:"title"`
	Message      string     `json:"message"`
	ClientID     *int64     `json:"client_id,omitempty"`
	InvoiceID    *int64     `json:"invoice_id,omitempty"`
	SendEmail    bool       `json:"send_email"`
	SendWhatsApp bool       `json:"send_whatsapp"`
	ReadAt       *time.Time `json:"read_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Read reports whether the notification was marked read
func (n *Notification) Read() bool {
	return n.ReadAt != nil
}

// CreateRequest describes a new notification
type CreateRequest struct {
	Type         Type   `json:"type"`
	Title        string `json:"title"`
	Message      string `json:"message"`
	ClientID     *int64 `json:"client_id,omitempty"`
	InvoiceID    *int64 `json:"invoice_id,omitempty"`
	SendEmail    bool   `json:"send_email"`
	SendWhatsApp bool   `json:"send_whatsapp"`
}

// ListFilter narrows List
type ListFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Service defines notification operations
type Service interface {
	Create(ctx context.Context, orgID int64, req *CreateRequest) (*Notification, error)
	List(ctx context.Context, orgID int64, filter ListFilter) ([]*Notification, error)
	MarkRead(ctx context.Context, orgID, id int64) error
	MarkAllRead(ctx context.Context, orgID int64) (int64, error)
	UnreadCount(ctx context.Context, orgID int64) (int, error)
}
