package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/platinummonkey/clientbill/pkg/clients"
	"github.com/platinummonkey/clientbill/pkg/finance"
	"github.com/platinummonkey/clientbill/pkg/notifications"
	"github.com/platinummonkey/clientbill/pkg/observability"
	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

// periodConstraint is the partial unique index allowing one live invoice per client and period
const periodConstraint = "idx_invoices_client_period"

const invoiceColumns = `id, org_id, client_id, number, status, issue_date, due_date, period_start,
	subtotal, discount, tax, total, currency, notes, paid_at, voided_at, created_at, updated_at`

// ClientDirectory is the part of clients.Service billing reads
type ClientDirectory interface {
	GetClient(ctx context.Context, orgID, id int64) (*clients.Client, error)
	ListClients(ctx context.Context, orgID int64, filter clients.ListFilter) ([]*clients.Client, error)
}

// Notifier records notifications raised by billing events
type Notifier interface {
	Create(ctx context.Context, orgID int64, req *notifications.CreateRequest) (*notifications.Notification, error)
}

// Options configures PostgresService
type Options struct {
	Currency string
	Metrics  *observability.Metrics
	Logger   *observability.Logger
	Now      func() time.Time

	// Tolerance is the shortfall accepted by MarkInvoicePaid. Zero uses DefaultTolerance.
	Tolerance decimal.Decimal
}

// PostgresService implements the billing Service interface using PostgreSQL
type PostgresService struct {
	db       *sql.DB
	clients  ClientDirectory
	notifier Notifier
	currency  string
	tolerance decimal.Decimal
	metrics   *observability.Metrics
	logger    *observability.Logger
	now       func() time.Time
}

// NewPostgresService creates a new PostgresService. notifier may be nil.
func NewPostgresService(db *sql.DB, clientDir ClientDirectory, notifier Notifier, opts Options) *PostgresService {
	if opts.Currency == "" {
		opts.Currency = "BRL"
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if !opts.Tolerance.IsPositive() {
		opts.Tolerance = DefaultTolerance
	}
	return &PostgresService{
		db:        db,
		clients:   clientDir,
		notifier:  notifier,
		currency:  opts.Currency,
		tolerance: opts.Tolerance,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       opts.Now,
	}
}

// CreateInvoice creates a DRAFT invoice, or an OPEN one when req.Issue is set
func (s *PostgresService) CreateInvoice(ctx context.Context, orgID int64, req *CreateInvoiceRequest) (*Invoice, error) {
	if _, err := s.clients.GetClient(ctx, orgID, req.ClientID); err != nil {
		return nil, err
	}

	inv := &Invoice{
		OrgID:       orgID,
		ClientID:    req.ClientID,
		Status:      InvoiceStatusDraft,
		IssueDate:   req.IssueDate,
		DueDate:     req.DueDate,
		PeriodStart: req.PeriodStart,
		Discount:    req.Discount,
		Tax:         req.Tax,
		Currency:    s.currency,
		Notes:       strings.TrimSpace(req.Notes),
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = StartOfDay(s.now())
	}
	for _, item := range req.Items {
		inv.Items = append(inv.Items, InvoiceItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	if req.Issue {
		inv.Status = InvoiceStatusOpen
	}

	inv.CalculateTotals()
	if err := inv.Validate(); err != nil {
		return nil, err
	}

	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return insertInvoice(ctx, tx, inv)
	})
	if postgres.IsConstraintViolation(err, periodConstraint) {
		return nil, ErrDuplicatePeriod
	}
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvoiceGenerated("manual")
	return inv, nil
}

// GetInvoice retrieves an invoice with its items
func (s *PostgresService) GetInvoice(ctx context.Context, orgID, id int64) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE org_id = $1 AND id = $2`
	inv, err := scanInvoice(s.db.QueryRowContext(ctx, query, orgID, id))
	if err != nil {
		return nil, err
	}

	items, err := s.loadItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items
	return inv, nil
}

// ListInvoices lists invoices newest first, without items
func (s *PostgresService) ListInvoices(ctx context.Context, orgID int64, filter ListFilter) ([]*Invoice, error) {
	conditions := []string{"org_id = $1"}
	args := []interface{}{orgID}

	if filter.ClientID != nil {
		args = append(args, *filter.ClientID)
		conditions = append(conditions, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE ` + strings.Join(conditions, " AND ") +
		` ORDER BY issue_date DESC, id DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit, filter.Offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invoices: %w", err)
	}
	return invoices, nil
}

// IssueInvoice moves a DRAFT invoice to OPEN
func (s *PostgresService) IssueInvoice(ctx context.Context, orgID, id int64) (*Invoice, error) {
	inv, err := s.GetInvoice(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	from := inv.Status
	if err := inv.Issue(); err != nil {
		return nil, err
	}

	if err := s.updateStatus(ctx, inv, from); err != nil {
		return nil, err
	}
	return inv, nil
}

// CancelInvoice voids an invoice that is neither paid, already void, nor has payments
func (s *PostgresService) CancelInvoice(ctx context.Context, orgID, id int64) (*Invoice, error) {
	inv, err := s.GetInvoice(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	var hasPayments bool
	err = s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM payments WHERE org_id = $1 AND invoice_id = $2)`, orgID, id).
		Scan(&hasPayments)
	if err != nil {
		return nil, fmt.Errorf("failed to check invoice payments: %w", err)
	}

	from := inv.Status
	if err := inv.Cancel(s.now(), hasPayments); err != nil {
		return nil, err
	}

	if err := s.updateStatus(ctx, inv, from); err != nil {
		return nil, err
	}
	return inv, nil
}

// updateStatus persists inv.Status guarded by the status it was read with
func (s *PostgresService) updateStatus(ctx context.Context, inv *Invoice, from InvoiceStatus) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET status = $1, voided_at = $2, updated_at = NOW()
		WHERE org_id = $3 AND id = $4 AND status = $5
	`, inv.Status, inv.VoidedAt, inv.OrgID, inv.ID, from)
	if err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}
	if postgres.RowsAffected(result) == 0 {
		return ErrStaleStatus
	}

	s.metrics.RecordInvoiceTransition(string(from), string(inv.Status), 1)
	return nil
}

// MarkInvoicePaid settles an invoice. A nil amount pays what is still owed. An amount that
// leaves the invoice short of its settlement threshold is rejected with ErrUnderpaid.
func (s *PostgresService) MarkInvoicePaid(ctx context.Context, orgID, id int64, req *PayRequest) (*Invoice, error) {
	out, err := s.applyPayment(ctx, orgID, id, req, s.tolerance, false)
	if err != nil {
		return nil, err
	}
	return out.Invoice, nil
}

// ApplyPayment records money received against an invoice. The invoice is settled once the
// payments recorded, this one included, reach total*(1-tolerance). Below that the payment is
// kept as PARTIAL and the invoice stays receivable.
func (s *PostgresService) ApplyPayment(ctx context.Context, orgID, id int64, req *PayRequest, tolerance decimal.Decimal) (*PaymentOutcome, error) {
	return s.applyPayment(ctx, orgID, id, req, tolerance, true)
}

// applyPayment reads the amount already received under the invoice row lock, so concurrent
// payments against the same invoice are evaluated one after the other. The status change,
// the payment row and the INCOME ledger entry commit together.
func (s *PostgresService) applyPayment(ctx context.Context, orgID, id int64, req *PayRequest, tolerance decimal.Decimal, allowPartial bool) (*PaymentOutcome, error) {
	paidAt := s.now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	out := &PaymentOutcome{}
	var from InvoiceStatus
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		inv, err := lockInvoice(ctx, tx, orgID, id)
		if err != nil {
			return err
		}
		if !inv.Status.Receivable() {
			return ErrNotPayable
		}

		previous, err := paidAmount(ctx, tx, orgID, inv.ID)
		if err != nil {
			return err
		}
		amount := inv.Balance(previous)
		if req.Amount != nil {
			amount = *req.Amount
		}
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}

		out.Invoice = inv
		out.PaidTotal = previous.Add(amount)
		out.Remaining = inv.Balance(out.PaidTotal)

		status := PaymentStatusPartial
		if out.PaidTotal.GreaterThanOrEqual(SettlementThreshold(inv.Total, tolerance)) {
			from = inv.Status
			if err := inv.MarkPaid(paidAt); err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx,
				`UPDATE invoices SET status = $1, paid_at = $2, updated_at = NOW() WHERE id = $3`,
				inv.Status, paidAt, inv.ID)
			if err != nil {
				return fmt.Errorf("failed to mark invoice paid: %w", err)
			}
			status = PaymentStatusConfirmed
			out.Remaining = decimal.Zero
		} else if !allowPartial {
			return ErrUnderpaid
		}

		out.Payment, err = s.insertReceipt(ctx, tx, inv, amount, req.Method, status, paidAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	if out.Settled() {
		inv := out.Invoice
		s.metrics.RecordInvoiceTransition(string(from), string(inv.Status), 1)
		s.notify(ctx, orgID, &notifications.CreateRequest{
			Type:      notifications.TypeInvoicePaid,
			Title:     "Fatura paga",
			Message:   fmt.Sprintf("A fatura %s foi paga (%s %s).", inv.Number, inv.Currency, inv.Total.StringFixed(2)),
			ClientID:  &inv.ClientID,
			InvoiceID: &inv.ID,
		})
	}
	return out, nil
}

func (s *PostgresService) insertReceipt(ctx context.Context, tx *sql.Tx, inv *Invoice, amount decimal.Decimal, method string, status PaymentStatus, paidAt time.Time) (*Payment, error) {
	invoiceID := inv.ID
	clientID := inv.ClientID

	payment := &Payment{
		OrgID:     inv.OrgID,
		ClientID:  clientID,
		InvoiceID: &invoiceID,
		Amount:    amount,
		Method:    method,
		Status:    status,
		PaidAt:    paidAt,
	}
	if err := InsertPayment(ctx, tx, payment); err != nil {
		return nil, err
	}

	description := "Pagamento da fatura " + inv.Number
	if status == PaymentStatusPartial {
		description = "Pagamento parcial da fatura " + inv.Number
	}
	err := finance.InsertTransaction(ctx, tx, &finance.Transaction{
		OrgID:       inv.OrgID,
		Type:        finance.TransactionIncome,
		Amount:      amount,
		Category:    finance.CategoryInvoicePayment,
		Description: description,
		OccurredAt:  StartOfDay(paidAt),
		ClientID:    &clientID,
		InvoiceID:   &invoiceID,
	})
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// paidAmount sums every payment recorded against the invoice
func paidAmount(ctx context.Context, tx *sql.Tx, orgID, invoiceID int64) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.QueryRowContext(ctx,
		`SELECT SUM(amount) FROM payments WHERE org_id = $1 AND invoice_id = $2`, orgID, invoiceID).
		Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum invoice payments: %w", err)
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// FindPeriodInvoice returns the non-void invoice of a client for the month starting at periodStart
func (s *PostgresService) FindPeriodInvoice(ctx context.Context, orgID, clientID int64, periodStart time.Time) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices
		WHERE org_id = $1 AND client_id = $2 AND period_start = $3 AND status <> 'VOID'
		ORDER BY id DESC LIMIT 1`
	return scanInvoice(s.db.QueryRowContext(ctx, query, orgID, clientID, periodStart))
}

// MarkOverdueInvoices moves every OPEN invoice due before today to OVERDUE and raises a
// notification per invoice
func (s *PostgresService) MarkOverdueInvoices(ctx context.Context, orgID int64, now time.Time) ([]*Invoice, error) {
	var overdue []*Invoice
	err := postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := `SELECT ` + invoiceColumns + ` FROM invoices
			WHERE org_id = $1 AND status = 'OPEN' AND due_date < $2
			ORDER BY due_date, id
			FOR UPDATE`
		rows, err := tx.QueryContext(ctx, query, orgID, StartOfDay(now))
		if err != nil {
			return fmt.Errorf("failed to list overdue candidates: %w", err)
		}
		defer rows.Close()

		var ids []int64
		for rows.Next() {
			inv, err := scanInvoice(rows)
			if err != nil {
				return err
			}
			if inv.MarkOverdue(now) != nil {
				continue
			}
			overdue = append(overdue, inv)
			ids = append(ids, inv.ID)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate overdue candidates: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE invoices SET status = 'OVERDUE', updated_at = NOW()
			WHERE org_id = $1 AND id = ANY($2)
		`, orgID, pq.Array(ids))
		if err != nil {
			return fmt.Errorf("failed to mark overdue invoices: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordInvoiceTransition(string(InvoiceStatusOpen), string(InvoiceStatusOverdue), len(overdue))

	for _, inv := range overdue {
		s.notify(ctx, orgID, &notifications.CreateRequest{
			Type:  notifications.TypeInvoiceOverdue,
			Title: "Fatura vencida",
			Message: fmt.Sprintf("A fatura %s venceu em %s. Valor: %s %s.",
				inv.Number, inv.DueDate.Format("02/01/2006"), inv.Currency, inv.Total.StringFixed(2)),
			ClientID:     &inv.ClientID,
			InvoiceID:    &inv.ID,
			SendEmail:    true,
			SendWhatsApp: true,
		})
	}

	return overdue, nil
}

// GenerateMonthlyInvoices creates one OPEN invoice per active MONTHLY client for the calendar
// month containing month. Clients already invoiced for the month, without a fee, or whose
// contract does not cover the month are skipped. Per-client failures are reported in the
// result and do not stop the run.
func (s *PostgresService) GenerateMonthlyInvoices(ctx context.Context, orgID int64, month time.Time) (*GenerationResult, error) {
	monthStart := MonthStart(month)
	nextMonth := monthStart.AddDate(0, 1, 0)
	result := &GenerationResult{Month: monthStart.Format("2006-01")}

	active := true
	candidates, err := s.clients.ListClients(ctx, orgID, clients.ListFilter{
		Active:      &active,
		PaymentMode: clients.PaymentModeMonthly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list monthly clients: %w", err)
	}

	logger := s.logger.WithFields(map[string]interface{}{"org_id": orgID, "month": result.Month})

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if !c.MonthlyFee.IsPositive() || !c.ActiveDuring(monthStart, nextMonth) {
			result.Skipped++
			continue
		}

		exists, err := s.periodInvoiceExists(ctx, orgID, c.ID, monthStart)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("cliente %d: %v", c.ID, err))
			continue
		}
		if exists {
			result.Skipped++
			continue
		}

		inv := monthlyInvoice(orgID, c, monthStart, s.currency)
		err = postgres.WithTx(ctx, s.db, func(tx *sql.Tx) error {
			return insertInvoice(ctx, tx, inv)
		})
		if postgres.IsConstraintViolation(err, periodConstraint) {
			result.Skipped++
			continue
		}
		if err != nil {
			logger.WithError(err).WithField("client_id", c.ID).Error("failed to generate monthly invoice")
			result.Errors = append(result.Errors, fmt.Sprintf("cliente %d: %v", c.ID, err))
			continue
		}

		result.Created++
		result.Invoices = append(result.Invoices, inv)
		s.metrics.RecordInvoiceGenerated("monthly")
	}

	logger.WithFields(map[string]interface{}{
		"created": result.Created,
		"skipped": result.Skipped,
		"errors":  len(result.Errors),
	}).Info("monthly invoice generation finished")

	if result.Created > 0 {
		s.notify(ctx, orgID, &notifications.CreateRequest{
			Type:    notifications.TypeInvoiceGenerated,
			Title:   "Faturas mensais geradas",
			Message: fmt.Sprintf("%d fatura(s) gerada(s) para %s.", result.Created, monthStart.Format("01/2006")),
		})
	}

	return result, nil
}

func monthlyInvoice(orgID int64, c *clients.Client, monthStart time.Time, currency string) *Invoice {
	period := monthStart
	inv := &Invoice{
		OrgID:       orgID,
		ClientID:    c.ID,
		Status:      InvoiceStatusOpen,
		IssueDate:   monthStart,
		DueDate:     DueDateInMonth(monthStart, c.DueDay),
		PeriodStart: &period,
		Currency:    currency,
		Items: []InvoiceItem{{
			Description: "Mensalidade " + monthStart.Format("01/2006"),
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   c.MonthlyFee,
		}},
	}
	inv.CalculateTotals()
	return inv
}

func (s *PostgresService) periodInvoiceExists(ctx context.Context, orgID, clientID int64, periodStart time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM invoices
			WHERE org_id = $1 AND client_id = $2 AND period_start = $3 AND status <> 'VOID'
		)
	`, orgID, clientID, periodStart).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing invoice: %w", err)
	}
	return exists, nil
}

// ListInvoicePayments lists the payments recorded against an invoice
func (s *PostgresService) ListInvoicePayments(ctx context.Context, orgID, invoiceID int64) ([]*Payment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+PaymentColumns+` FROM payments WHERE org_id = $1 AND invoice_id = $2 ORDER BY paid_at, id`,
		orgID, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoice payments: %w", err)
	}
	defer rows.Close()
	return ScanPayments(rows)
}

func (s *PostgresService) notify(ctx context.Context, orgID int64, req *notifications.CreateRequest) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Create(ctx, orgID, req); err != nil {
		s.logger.WithError(err).WithField("org_id", orgID).WithField("type", string(req.Type)).
			Warn("failed to record notification")
	}
}

func (s *PostgresService) loadItems(ctx context.Context, invoiceID int64) ([]InvoiceItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, total
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position, id
	`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice items: %w", err)
	}
	defer rows.Close()

	var items []InvoiceItem
	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description, &item.Quantity, &item.UnitPrice, &item.Total); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// nextSequence allocates the next invoice sequence number of an org for a YYYYMM period
func nextSequence(ctx context.Context, tx *sql.Tx, orgID int64, period string) (int, error) {
	var seq int
	err := tx.QueryRowContext(ctx, `
		INSERT INTO invoice_counters (org_id, period, last_seq) VALUES ($1, $2, 1)
		ON CONFLICT (org_id, period) DO UPDATE SET last_seq = invoice_counters.last_seq + 1
		RETURNING last_seq
	`, orgID, period).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate invoice number: %w", err)
	}
	return seq, nil
}

func insertInvoice(ctx context.Context, tx *sql.Tx, inv *Invoice) error {
	seq, err := nextSequence(ctx, tx, inv.OrgID, inv.IssueDate.Format("200601"))
	if err != nil {
		return err
	}
	inv.Number = FormatNumber(inv.IssueDate, seq)

	err = tx.QueryRowContext(ctx, `
		INSERT INTO invoices (org_id, client_id, number, status, issue_date, due_date, period_start,
		                      subtotal, discount, tax, total, currency, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`, inv.OrgID, inv.ClientID, inv.Number, inv.Status, inv.IssueDate, inv.DueDate, inv.PeriodStart,
		inv.Subtotal, inv.Discount, inv.Tax, inv.Total, inv.Currency, inv.Notes,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	for i := range inv.Items {
		item := &inv.Items[i]
		item.InvoiceID = inv.ID
		err := tx.QueryRowContext(ctx, `
			INSERT INTO invoice_items (invoice_id, position, description, quantity, unit_price, total)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, inv.ID, i, item.Description, item.Quantity, item.UnitPrice, item.Total).Scan(&item.ID)
		if err != nil {
			return fmt.Errorf("failed to insert invoice item: %w", err)
		}
	}
	return nil
}

func lockInvoice(ctx context.Context, tx *sql.Tx, orgID, id int64) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE org_id = $1 AND id = $2 FOR UPDATE`
	return scanInvoice(tx.QueryRowContext(ctx, query, orgID, id))
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInvoice(row rowScanner) (*Invoice, error) {
	inv := &Invoice{}
	var periodStart, paidAt, voidedAt sql.NullTime
	err := row.Scan(
		&inv.ID, &inv.OrgID, &inv.ClientID, &inv.Number, &inv.Status, &inv.IssueDate, &inv.DueDate, &periodStart,
		&inv.Subtotal, &inv.Discount, &inv.Tax, &inv.Total, &inv.Currency, &inv.Notes,
		&paidAt, &voidedAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	inv.PeriodStart = nullTime(periodStart)
	inv.PaidAt = nullTime(paidAt)
	inv.VoidedAt = nullTime(voidedAt)
	return inv, nil
}

func nullTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
