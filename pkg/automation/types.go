package automation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/costs"
	"github.com/platinummonkey/clientbill/pkg/orgs"
	"github.com/platinummonkey/clientbill/pkg/payments"
)

// Step names
const (
	StepGenerateInvoices     = "generate_invoices"
	StepGenerateInstallments = "generate_installments"
	StepMaterializeCosts     = "materialize_costs"
	StepMarkOverdueInvoices  = "mark_overdue_invoices"
	StepMarkLateInstallments = "mark_late_installments"
)

// InvoiceJobs is the part of billing.Service automation drives
type InvoiceJobs interface {
	GenerateMonthlyInvoices(ctx context.Context, orgID int64, month time.Time) (*billing.GenerationResult, error)
	MarkOverdueInvoices(ctx context.Context, orgID int64, now time.Time) ([]*billing.Invoice, error)
}

// InstallmentJobs is the part of payments.Service automation drives
type InstallmentJobs interface {
	GenerateAllInstallments(ctx context.Context, orgID int64) (*payments.BatchResult, error)
	MarkLateInstallments(ctx context.Context, orgID int64, now time.Time) (*payments.LateResult, error)
}

// CostJobs is the part of costs.Service automation drives
type CostJobs interface {
	MaterializeMonth(ctx context.Context, orgID int64, month time.Time) (*costs.MaterializeResult, error)
}

// OrgLister lists the organizations to run for
type OrgLister interface {
	ListOrganizations(ctx context.Context, status orgs.OrgStatus) ([]*orgs.Organization, error)
}

// StepResult is the outcome of one step
type StepResult struct {
	Name       string   `json:"name"`
	Summary    string   `json:"summary,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMs int64    `json:"duration_ms"`
}

// Failed reports whether the step returned an error
func (r StepResult) Failed() bool {
	return r.Error != ""
}

// Report is the outcome of one run for one organization
type Report struct {
	OrgID      int64        `json:"org_id"`
	Month      string       `json:"month"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []StepResult `json:"steps"`
}

// FailedSteps returns the steps that returned an error
func (r *Report) FailedSteps() []StepResult {
	var failed []StepResult
	for _, step := range r.Steps {
		if step.Failed() {
			failed = append(failed, step)
		}
	}
	return failed
}

// OK reports whether every step succeeded
func (r *Report) OK() bool {
	return len(r.FailedSteps()) == 0
}

// Err joins the step errors, or returns nil
func (r *Report) Err() error {
	var errs []error
	for _, step := range r.FailedSteps() {
		errs = append(errs, fmt.Errorf("%s: %s", step.Name, step.Error))
	}
	return errors.Join(errs...)
}
