package automation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/platinummonkey/clientbill/pkg/async"
	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/notifications"
	"github.com/platinummonkey/clientbill/pkg/observability"
	"github.com/platinummonkey/clientbill/pkg/orgs"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("clientbill/automation")

const (
	defaultWorkers    = 4
	defaultOrgTimeout = 5 * time.Minute
)

// Options configures Service
type Options struct {
	Workers    int
	OrgTimeout time.Duration
	Metrics    *observability.Metrics
	Logger     *observability.Logger
}

// Service orchestrates the financial jobs
type Service struct {
	orgs         OrgLister
	invoices     InvoiceJobs
	installments InstallmentJobs
	costs        CostJobs
	notifier     billing.Notifier
	workers      int
	orgTimeout   time.Duration
	metrics      *observability.Metrics
	logger       *observability.Logger
}

// NewService creates an automation service. notifier may be nil.
func NewService(orgLister OrgLister, invoices InvoiceJobs, installments InstallmentJobs, costJobs CostJobs,
	notifier billing.Notifier, opts Options) *Service {

	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.OrgTimeout <= 0 {
		opts.OrgTimeout = defaultOrgTimeout
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}
	return &Service{
		orgs:         orgLister,
		invoices:     invoices,
		installments: installments,
		costs:        costJobs,
		notifier:     notifier,
		workers:      opts.Workers,
		orgTimeout:   opts.OrgTimeout,
		metrics:      opts.Metrics,
		logger:       opts.Logger,
	}
}

type step struct {
	name string
	run  func(ctx context.Context) (summary string, warnings []string, err error)
}

// RunMonthly runs every job for the month of now
func (s *Service) RunMonthly(ctx context.Context, orgID int64, now time.Time) *Report {
	month := billing.MonthStart(now)

	steps := []step{
		{StepGenerateInvoices, func(ctx context.Context) (string, []string, error) {
			res, err := s.invoices.GenerateMonthlyInvoices(ctx, orgID, month)
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("%d faturas criadas, %d ignoradas", res.Created, res.Skipped), res.Errors, nil
		}},
		{StepGenerateInstallments, func(ctx context.Context) (string, []string, error) {
			res, err := s.installments.GenerateAllInstallments(ctx, orgID)
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("%d parcelas criadas para %d clientes", res.Created, res.Clients), res.Errors, nil
		}},
		{StepMaterializeCosts, func(ctx context.Context) (string, []string, error) {
			res, err := s.costs.MaterializeMonth(ctx, orgID, month)
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("%d custos lançados, %d ignorados", res.Created, res.Skipped), res.Errors, nil
		}},
	}
	steps = append(steps, s.overdueSteps(orgID, now)...)

	return s.run(ctx, orgID, month, steps)
}

// RunOverdue only flags overdue invoices and late installments
func (s *Service) RunOverdue(ctx context.Context, orgID int64, now time.Time) *Report {
	return s.run(ctx, orgID, billing.MonthStart(now), s.overdueSteps(orgID, now))
}

func (s *Service) overdueSteps(orgID int64, now time.Time) []step {
	return []step{
		{StepMarkOverdueInvoices, func(ctx context.Context) (string, []string, error) {
			invoices, err := s.invoices.MarkOverdueInvoices(ctx, orgID, now)
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("%d faturas vencidas", len(invoices)), nil, nil
		}},
		{StepMarkLateInstallments, func(ctx context.Context) (string, []string, error) {
			res, err := s.installments.MarkLateInstallments(ctx, orgID, now)
			if err != nil {
				return "", nil, err
			}
			return fmt.Sprintf("%d parcelas atrasadas", len(res.Installments)), nil, nil
		}},
	}
}

func (s *Service) run(ctx context.Context, orgID int64, month time.Time, steps []step) *Report {
	logger := s.logger.WithField("org_id", orgID).WithField("month", month.Format("2006-01"))
	report := &Report{
		OrgID:     orgID,
		Month:     month.Format("2006-01"),
		StartedAt: time.Now(),
		Steps:     make([]StepResult, 0, len(steps)),
	}

	ctx, span := tracer.Start(ctx, "automation.run",
		trace.WithAttributes(
			attribute.Int64("org_id", orgID),
			attribute.String("month", report.Month),
		))
	defer span.End()

	for _, st := range steps {
		stepCtx, stepSpan := tracer.Start(ctx, "automation."+st.name)
		start := time.Now()
		summary, warnings, err := st.run(stepCtx)
		duration := time.Since(start)
		s.metrics.RecordAutomationStep(st.name, err, duration)
		if err != nil {
			stepSpan.RecordError(err)
			stepSpan.SetStatus(codes.Error, "step failed")
		}
		stepSpan.SetAttributes(attribute.Int("warnings", len(warnings)))
		stepSpan.End()

		result := StepResult{
			Name:       st.name,
			Summary:    summary,
			Warnings:   warnings,
			DurationMs: duration.Milliseconds(),
		}
		if err != nil {
			result.Error = err.Error()
			logger.WithError(err).WithField("step", st.name).Error("automation step failed")
		} else {
			logger.WithField("step", st.name).WithField("summary", summary).Info("automation step completed")
		}
		report.Steps = append(report.Steps, result)
	}

	report.FinishedAt = time.Now()
	if !report.OK() {
		span.SetStatus(codes.Error, "automation run failed")
		s.notifyFailure(ctx, report)
	}
	return report
}

func (s *Service) notifyFailure(ctx context.Context, report *Report) {
	if s.notifier == nil {
		return
	}

	var lines []string
	for _, step := range report.FailedSteps() {
		lines = append(lines, fmt.Sprintf("%s: %s", step.Name, step.Error))
	}
	req := &notifications.CreateRequest{
		Type:    notifications.TypeAutomationFailed,
		Title:   "Falha na automação financeira " + report.Month,
		Message: strings.Join(lines, "\n"),
	}
	if _, err := s.notifier.Create(ctx, report.OrgID, req); err != nil {
		s.logger.WithError(err).WithField("org_id", report.OrgID).Warn("failed to record automation failure")
	}
}

// RunAll runs the monthly jobs for every active organization
func (s *Service) RunAll(ctx context.Context, now time.Time) ([]*Report, error) {
	return s.forEachOrg(ctx, "automation-monthly", func(ctx context.Context, orgID int64) *Report {
		return s.RunMonthly(ctx, orgID, now)
	})
}

// RunAllOverdue runs the overdue jobs for every active organization
func (s *Service) RunAllOverdue(ctx context.Context, now time.Time) ([]*Report, error) {
	return s.forEachOrg(ctx, "automation-overdue", func(ctx context.Context, orgID int64) *Report {
		return s.RunOverdue(ctx, orgID, now)
	})
}

// forEachOrg returns the reports ordered by org id. The error joins the
// listing failure or tasks that did not produce a report.
func (s *Service) forEachOrg(ctx context.Context, taskName string, fn func(context.Context, int64) *Report) ([]*Report, error) {
	list, err := s.orgs.ListOrganizations(ctx, orgs.OrgStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}

	var mu sync.Mutex
	reports := make([]*Report, 0, len(list))
	errs := async.Batch(ctx, list, s.workers, taskName, s.orgTimeout, s.logger,
		func(ctx context.Context, org *orgs.Organization) error {
			report := fn(ctx, org.ID)
			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})

	sort.Slice(reports, func(i, j int) bool { return reports[i].OrgID < reports[j].OrgID })

	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
	}
	s.logger.WithFields(map[string]interface{}{
		"task":          taskName,
		"organizations": len(list),
		"failed":        failed,
	}).Info("automation run finished")

	return reports, errors.Join(errs...)
}
