package payments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/clients"
	"github.com/platinummonkey/clientbill/pkg/finance"
	"github.com/platinummonkey/clientbill/pkg/notifications"
	"github.com/platinummonkey/clientbill/pkg/observability"
	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

const installmentColumns = `id, org_id, client_id, number, total_count, amount, due_date, status,
	paid_amount, confirmed_at, created_at`

// DefaultBatchSize is the number of installments created per generation run
const DefaultBatchSize = 2

// InvoiceLedger is the part of billing used to settle monthly invoices
type InvoiceLedger interface {
	FindPeriodInvoice(ctx context.Context, orgID, clientID int64, periodStart time.Time) (*billing.Invoice, error)
	ApplyPayment(ctx context.Context, orgID, id int64, req *billing.PayRequest, tolerance decimal.Decimal) (*billing.PaymentOutcome, error)
}

// Options configures PostgresService
type Options struct {
	Tolerance decimal.Decimal
	BatchSize int
	Metrics   *observability.Metrics
	Logger    *observability.Logger
	Now       func() time.Time
}

// PostgresService implements Service using PostgreSQL
type PostgresService struct {
	db        *sql.DB
	invoices  InvoiceLedger
	clients   billing.ClientDirectory
	notifier  billing.Notifier
	tolerance decimal.Decimal
	batchSize int
	metrics   *observability.Metrics
	logger    *observability.Logger
	now       func() time.Time
}

// NewPostgresService creates a new PostgresService. notifier may be nil.
func NewPostgresService(db *sql.DB, invoices InvoiceLedger, clientDir billing.ClientDirectory, notifier billing.Notifier, opts Options) *PostgresService {
	if opts.Tolerance.IsNegative() || opts.Tolerance.IsZero() {
		opts.Tolerance = billing.DefaultTolerance
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &PostgresService{
		db:        db,
		invoices:  invoices,
		clients:   clientDir,
		notifier:  notifier,
		tolerance: opts.Tolerance,
		batchSize: opts.BatchSize,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// ConfirmMonthlyPayment applies a payment to the invoice of req.Month. The invoice is paid
// once everything received reaches total*(1-tolerance); below that the payment is kept as
// partial and the invoice stays open.
func (s *PostgresService) ConfirmMonthlyPayment(ctx context.Context, orgID int64, req *ConfirmMonthlyRequest) (*MonthlyResult, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if req.Month.IsZero() {
		return nil, ErrMonthRequired
	}

	client, err := s.clients.GetClient(ctx, orgID, req.ClientID)
	if err != nil {
		return nil, err
	}
	if client.PaymentMode != clients.PaymentModeMonthly {
		return nil, ErrNotMonthlyClient
	}

	inv, err := s.invoices.FindPeriodInvoice(ctx, orgID, client.ID, billing.MonthStart(req.Month))
	if errors.Is(err, billing.ErrInvoiceNotFound) {
		return nil, ErrNoMonthInvoice
	}
	if err != nil {
		return nil, err
	}
	switch {
	case inv.Status == billing.InvoiceStatusPaid:
		return nil, ErrMonthAlreadyPaid
	case !inv.Status.Receivable():
		return nil, ErrMonthNotPayable
	}

	paidAt := s.now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	amount := req.Amount
	out, err := s.invoices.ApplyPayment(ctx, orgID, inv.ID, &billing.PayRequest{
		Amount: &amount,
		Method: req.Method,
		PaidAt: &paidAt,
	}, s.tolerance)
	if err != nil {
		return nil, err
	}

	result := &MonthlyResult{
		Status:    ResultPartial,
		InvoiceID: inv.ID,
		Total:     out.Invoice.Total,
		PaidTotal: out.PaidTotal,
		Remaining: out.Remaining,
	}
	if out.Settled() {
		result.Status = ResultPaid
	}

	s.metrics.RecordPaymentConfirmed("monthly", result.Status)
	s.logger.WithFields(map[string]interface{}{
		"org_id":     orgID,
		"client_id":  client.ID,
		"invoice_id": inv.ID,
		"result":     result.Status,
	}).Info("monthly payment confirmed")

	return result, nil
}

// GenerateInstallments stores the earliest missing installments of the client's plan, at most
// the configured batch size per call. Installments already stored, matched by due date, are
// left untouched.
func (s *PostgresService) GenerateInstallments(ctx context.Context, orgID, clientID int64) (*GenerationResult, error) {
	client, err := s.clients.GetClient(ctx, orgID, clientID)
	if err != nil {
		return nil, err
	}
	if client.PaymentMode != clients.PaymentModeInstallments || client.Plan == nil {
		return nil, ErrNotInstallmentPlan
	}

	existing, err := s.existingDueDates(ctx, orgID, clientID)
	if err != nil {
		return nil, err
	}

	result := &GenerationResult{ClientID: clientID}
	for _, planned := range Schedule(client.Plan) {
		if existing[dateKey(planned.DueDate)] {
			result.Existing++
			continue
		}
		if len(result.Created) >= s.batchSize {
			result.Remaining++
			continue
		}

		inst, err := s.insertInstallment(ctx, orgID, clientID, client.Plan.Count, planned)
		if err != nil {
			return result, err
		}
		if inst == nil {
			result.Existing++
			continue
		}
		result.Created = append(result.Created, inst)
	}

	s.metrics.RecordInstallmentsCreated(len(result.Created))
	return result, nil
}

// GenerateAllInstallments runs GenerateInstallments for every active installment client.
// A failing client is reported and does not stop the others.
func (s *PostgresService) GenerateAllInstallments(ctx context.Context, orgID int64) (*BatchResult, error) {
	active := true
	list, err := s.clients.ListClients(ctx, orgID, clients.ListFilter{
		Active:      &active,
		PaymentMode: clients.PaymentModeInstallments,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list installment clients: %w", err)
	}

	batch := &BatchResult{}
	for _, c := range list {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		if c.Plan == nil {
			continue
		}

		batch.Clients++
		result, err := s.GenerateInstallments(ctx, orgID, c.ID)
		if result != nil {
			batch.Created += len(result.Created)
		}
		if err != nil {
			s.logger.WithError(err).WithField("client_id", c.ID).Error("failed to generate installments")
			batch.Errors = append(batch.Errors, fmt.Sprintf("cliente %d: %v", c.ID, err))
		}
	}
	return batch, nil
}

func (s *PostgresService) existingDueDates(ctx context.Context, orgID, clientID int64) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT due_date FROM installments WHERE org_id = $1 AND client_id = $2`, orgID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	defer rows.Close()

	dates := make(map[string]bool)
	for rows.Next() {
		var due time.Time
		if err := rows.Scan(&due); err != nil {
			return nil, fmt.Errorf("failed to scan installment due date: %w", err)
		}
		dates[dateKey(due)] = true
	}
	return dates, rows.Err()
}

// insertInstallment returns nil when a concurrent run already stored the same due date
func (s *PostgresService) insertInstallment(ctx context.Context, orgID, clientID int64, total int, planned ScheduledInstallment) (*Installment, error) {
	query := `
		INSERT INTO installments (org_id, client_id, number, total_count, amount, due_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'PENDING')
		ON CONFLICT (client_id, due_date) DO NOTHING
		RETURNING ` + installmentColumns

	inst, err := scanInstallment(s.db.QueryRowContext(ctx, query,
		orgID, clientID, planned.Number, total, planned.Amount, planned.DueDate))
	if errors.Is(err, ErrInstallmentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create installment: %w", err)
	}
	return inst, nil
}

// ConfirmInstallment marks a PENDING or LATE installment CONFIRMED, records the payment and
// its INCOME ledger entry, and recomputes the client payment status in one transaction.
func (s *PostgresService) ConfirmInstallment(ctx context.Context, orgID, id int64, req *ConfirmInstallmentRequest) (*Installment, error) {
	paidAt := s.now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	var inst *Installment
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		inst, err = scanInstallment(tx.QueryRowContext(ctx,
			`SELECT `+installmentColumns+` FROM installments WHERE org_id = $1 AND id = $2 FOR UPDATE`, orgID, id))
		if err != nil {
			return err
		}
		if inst.Status == InstallmentConfirmed {
			return ErrAlreadyConfirmed
		}

		amount := inst.Amount
		if req.Amount != nil {
			amount = *req.Amount
		}
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE installments SET status = 'CONFIRMED', paid_amount = $1, confirmed_at = $2
			WHERE id = $3
		`, amount, paidAt, inst.ID)
		if err != nil {
			return fmt.Errorf("failed to confirm installment: %w", err)
		}
		inst.Status = InstallmentConfirmed
		inst.PaidAmount = &amount
		inst.ConfirmedAt = &paidAt

		installmentID := inst.ID
		clientID := inst.ClientID
		err = billing.InsertPayment(ctx, tx, &billing.Payment{
			OrgID:         orgID,
			ClientID:      clientID,
			InstallmentID: &installmentID,
			Amount:        amount,
			Method:        req.Method,
			Status:        billing.PaymentStatusConfirmed,
			PaidAt:        paidAt,
		})
		if err != nil {
			return err
		}

		err = finance.InsertTransaction(ctx, tx, &finance.Transaction{
			OrgID:         orgID,
			Type:          finance.TransactionIncome,
			Amount:        amount,
			Category:      finance.CategoryInstallment,
			Description:   "Parcela " + inst.Label(),
			OccurredAt:    billing.StartOfDay(paidAt),
			ClientID:      &clientID,
			InstallmentID: &installmentID,
		})
		if err != nil {
			return err
		}

		return s.refreshClientStatus(ctx, tx, orgID, clientID, inst.TotalCount)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPaymentConfirmed("installments", string(InstallmentConfirmed))
	s.notify(ctx, orgID, &notifications.CreateRequest{
		Type:     notifications.TypeInstallmentPaid,
		Title:    "Parcela confirmada",
		Message:  fmt.Sprintf("Parcela %s confirmada (%s).", inst.Label(), inst.PaidAmount.StringFixed(2)),
		ClientID: &inst.ClientID,
	})
	return inst, nil
}

func (s *PostgresService) refreshClientStatus(ctx context.Context, tx *sql.Tx, orgID, clientID int64, totalCount int) error {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE org_id = $1 AND client_id = $2`, orgID, clientID)
	if err != nil {
		return fmt.Errorf("failed to load client installments: %w", err)
	}
	installments, err := scanInstallments(rows)
	if err != nil {
		return err
	}

	status := AggregateStatus(totalCount, installments)
	return clients.UpdatePaymentStatus(ctx, tx, orgID, []int64{clientID}, status)
}

// MarkLateInstallments moves PENDING installments due before today to LATE and flags their
// clients LATE
func (s *PostgresService) MarkLateInstallments(ctx context.Context, orgID int64, now time.Time) (*LateResult, error) {
	result := &LateResult{}

	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `
			UPDATE installments SET status = 'LATE'
			WHERE org_id = $1 AND status = 'PENDING' AND due_date < $2
			RETURNING `+installmentColumns,
			orgID, billing.StartOfDay(now))
		if err != nil {
			return fmt.Errorf("failed to mark late installments: %w", err)
		}
		result.Installments, err = scanInstallments(rows)
		if err != nil {
			return err
		}

		seen := make(map[int64]bool)
		for _, inst := range result.Installments {
			if !seen[inst.ClientID] {
				seen[inst.ClientID] = true
				result.ClientIDs = append(result.ClientIDs, inst.ClientID)
			}
		}
		return clients.UpdatePaymentStatus(ctx, tx, orgID, result.ClientIDs, clients.PaymentStatusLate)
	})
	if err != nil {
		return nil, err
	}

	for _, inst := range result.Installments {
		clientID := inst.ClientID
		s.notify(ctx, orgID, &notifications.CreateRequest{
			Type:  notifications.TypeInstallmentLate,
			Title: "Parcela em atraso",
			Message: fmt.Sprintf("A parcela %s venceu em %s. Valor: %s.",
				inst.Label(), inst.DueDate.Format("02/01/2006"), inst.Amount.StringFixed(2)),
			ClientID:     &clientID,
			SendEmail:    true,
			SendWhatsApp: true,
		})
	}
	return result, nil
}

// ListInstallments lists a client's installments in due date order
func (s *PostgresService) ListInstallments(ctx context.Context, orgID, clientID int64) ([]*Installment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE org_id = $1 AND client_id = $2 ORDER BY due_date, number`,
		orgID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list installments: %w", err)
	}
	return scanInstallments(rows)
}

// ListPayments lists every payment of a client, newest first
func (s *PostgresService) ListPayments(ctx context.Context, orgID, clientID int64) ([]*billing.Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+billing.PaymentColumns+` FROM payments WHERE org_id = $1 AND client_id = $2 ORDER BY paid_at DESC, id DESC`,
		orgID, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()
	return billing.ScanPayments(rows)
}

func (s *PostgresService) notify(ctx context.Context, orgID int64, req *notifications.CreateRequest) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Create(ctx, orgID, req); err != nil {
		s.logger.WithError(err).WithField("org_id", orgID).Warn("failed to record notification")
	}
}

func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInstallment(row rowScanner) (*Installment, error) {
	inst := &Installment{}
	var paidAmount decimal.NullDecimal
	var confirmedAt sql.NullTime
	err := row.Scan(&inst.ID, &inst.OrgID, &inst.ClientID, &inst.Number, &inst.TotalCount, &inst.Amount,
		&inst.DueDate, &inst.Status, &paidAmount, &confirmedAt, &inst.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInstallmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan installment: %w", err)
	}
	if paidAmount.Valid {
		inst.PaidAmount = &paidAmount.Decimal
	}
	if confirmedAt.Valid {
		inst.ConfirmedAt = &confirmedAt.Time
	}
	return inst, nil
}

func scanInstallments(rows *sql.Rows) ([]*Installment, error) {
	defer rows.Close()

	var installments []*Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, err
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installments: %w", err)
	}
	return installments, nil
}
