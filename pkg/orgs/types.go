package orgs

import (
	"context"
	"time"
)

// OrgStatus represents organization status
type OrgStatus string

const (
	OrgStatusActive    OrgStatus = "active"
	OrgStatusSuspended OrgStatus = "suspended"
)

// Valid reports whether s is a known status
func (s OrgStatus) Valid() bool {
	return s == OrgStatusActive || s == OrgStatusSuspended
}

// Organization is a tenant. Every client, invoice and ledger row belongs to exactly one.
type Organization struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Slug        string         `json:"slug"`
	DisplayName string         `json:"display_name"`
	Status      OrgStatus      `json:"status"`
	Settings    map[string]any `json:"settings,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// IsActive reports whether the tenant may be served
func (o *Organization) IsActive() bool {
	return o.Status == OrgStatusActive
}

// CreateOrgRequest represents request to create an organization
type CreateOrgRequest struct {
	Name        string         `json:"name"`
	Slug        string         `json:"slug,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
}

// UpdateOrgRequest represents request to update an organization
type UpdateOrgRequest struct {
	DisplayName *string        `json:"display_name,omitempty"`
	Status      *OrgStatus     `json:"status,omitempty"`
	Settings    map[string]any `json:"settings,omitempty"`
}

// Service defines the interface for organization management
type Service interface {
	CreateOrganization(ctx context.Context, req *CreateOrgRequest) (*Organization, error)
	GetOrganization(ctx context.Context, id int64) (*Organization, error)
	GetOrganizationBySlug(ctx context.Context, slug string) (*Organization, error)
	ListOrganizations(ctx context.Context, status OrgStatus) ([]*Organization, error)
	UpdateOrganization(ctx context.Context, id int64, req *UpdateOrgRequest) (*Organization, error)
}
