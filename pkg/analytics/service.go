package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/observability"
)

const (
	defaultCashFlowMonths = 6
	maxCashFlowMonths     = 24
	defaultTopClients     = 10
	maxTopClients         = 100
)

// receivableBalance is the unpaid part of an invoice after partial payments
const receivableBalance = `i.total - COALESCE((SELECT SUM(p.amount) FROM payments p WHERE p.invoice_id = i.id), 0)`

// Service defines the reporting operations
type Service interface {
	Overview(ctx context.Context, orgID int64, now time.Time) (*Overview, error)
	CashFlow(ctx context.Context, orgID int64, months int, now time.Time) ([]CashFlowMonth, error)
	RevenueByClient(ctx context.Context, orgID int64, from, to time.Time, limit int) ([]ClientRevenue, error)
	ReceivablesAging(ctx context.Context, orgID int64, now time.Time) (*AgingReport, error)
	InstallmentCollection(ctx context.Context, orgID int64) (*InstallmentCollection, error)
}

// Options configures PostgresService
type Options struct {
	Cache   Cache
	Metrics *observability.Metrics
	Logger  *observability.Logger
}

// PostgresService computes reports with read-only queries
type PostgresService struct {
	db      *sql.DB
	cache   Cache
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewPostgresService creates a reporting service. A nil cache disables caching.
func NewPostgresService(db *sql.DB, opts Options) *PostgresService {
	if opts.Logger == nil {
		opts.Logger = observability.NewNopLogger()
	}
	return &PostgresService{
		db:      db,
		cache:   opts.Cache,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
}

// Overview compares the current month with the previous one. Its queries run concurrently.
func (s *PostgresService) Overview(ctx context.Context, orgID int64, now time.Time) (*Overview, error) {
	monthStart := billing.MonthStart(now)
	key := fmt.Sprintf("%d:overview:%s", orgID, now.Format("2006-01-02"))

	return cached(ctx, s, key, func(ctx context.Context) (*Overview, error) {
		prevStart := monthStart.AddDate(0, -1, 0)
		nextStart := monthStart.AddDate(0, 1, 0)
		today := billing.StartOfDay(now)

		overview := &Overview{Month: monthStart.Format("2006-01"), GeneratedAt: now}
		var income, expense, prevIncome, prevExpense decimal.Decimal

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			query := `
				SELECT
					COALESCE(SUM(amount) FILTER (WHERE type = 'INCOME' AND occurred_at >= $2), 0),
					COALESCE(SUM(amount) FILTER (WHERE type = 'EXPENSE' AND occurred_at >= $2), 0),
					COALESCE(SUM(amount) FILTER (WHERE type = 'INCOME' AND occurred_at < $2), 0),
					COALESCE(SUM(amount) FILTER (WHERE type = 'EXPENSE' AND occurred_at < $2), 0)
				FROM transactions
				WHERE org_id = $1 AND occurred_at >= $3 AND occurred_at < $4
			`
			err := s.db.QueryRowContext(gctx, query, orgID, monthStart, prevStart, nextStart).
				Scan(&income, &expense, &prevIncome, &prevExpense)
			if err != nil {
				return fmt.Errorf("failed to sum transactions: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			query := `
				SELECT
					COALESCE(SUM(` + receivableBalance + `), 0),
					COALESCE(SUM(` + receivableBalance + `) FILTER (WHERE i.due_date < $2), 0),
					COUNT(*) FILTER (WHERE i.due_date < $2)
				FROM invoices i
				WHERE i.org_id = $1 AND i.status IN ('OPEN', 'OVERDUE')
			`
			err := s.db.QueryRowContext(gctx, query, orgID, today).
				Scan(&overview.OpenReceivables, &overview.OverdueAmount, &overview.OverdueCount)
			if err != nil {
				return fmt.Errorf("failed to sum receivables: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			query := `SELECT COUNT(*) FROM clients WHERE org_id = $1 AND active = true`
			if err := s.db.QueryRowContext(gctx, query, orgID).Scan(&overview.ActiveClients); err != nil {
				return fmt.Errorf("failed to count active clients: %w", err)
			}
			return nil
		})

		g.Go(func() error {
			query := `
				SELECT COALESCE(SUM(amount), 0)
				FROM installments
				WHERE org_id = $1 AND status IN ('PENDING', 'LATE')
			`
			if err := s.db.QueryRowContext(gctx, query, orgID).Scan(&overview.InstallmentsDue); err != nil {
				return fmt.Errorf("failed to sum installments due: %w", err)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}

		overview.Revenue = NewMetric(income, prevIncome)
		overview.Expense = NewMetric(expense, prevExpense)
		overview.Profit = NewMetric(income.Sub(expense), prevIncome.Sub(prevExpense))
		return overview, nil
	})
}

// CashFlow returns income, expense and net for the last months, oldest first.
// Months without transactions are reported with zero values.
func (s *PostgresService) CashFlow(ctx context.Context, orgID int64, months int, now time.Time) ([]CashFlowMonth, error) {
	if months <= 0 {
		months = defaultCashFlowMonths
	}
	if months > maxCashFlowMonths {
		months = maxCashFlowMonths
	}
	to := billing.MonthStart(now).AddDate(0, 1, 0)
	from := to.AddDate(0, -months, 0)
	key := fmt.Sprintf("%d:cashflow:%s:%d", orgID, from.Format("2006-01"), months)

	return cached(ctx, s, key, func(ctx context.Context) ([]CashFlowMonth, error) {
		query := `
			SELECT date_trunc('month', occurred_at)::date AS month,
				COALESCE(SUM(amount) FILTER (WHERE type = 'INCOME'), 0),
				COALESCE(SUM(amount) FILTER (WHERE type = 'EXPENSE'), 0)
			FROM transactions
			WHERE org_id = $1 AND occurred_at >= $2 AND occurred_at < $3
			GROUP BY 1
			ORDER BY 1
		`
		rows, err := s.db.QueryContext(ctx, query, orgID, from, to)
		if err != nil {
			return nil, fmt.Errorf("failed to query cash flow: %w", err)
		}
		defer rows.Close()

		flow := make([]CashFlowMonth, months)
		index := make(map[string]int, months)
		for i := range flow {
			label := from.AddDate(0, i, 0).Format("2006-01")
			flow[i] = CashFlowMonth{Month: label}
			index[label] = i
		}

		for rows.Next() {
			var (
				month           time.Time
				income, expense decimal.Decimal
			)
			if err := rows.Scan(&month, &income, &expense); err != nil {
				return nil, fmt.Errorf("failed to scan cash flow: %w", err)
			}
			i, ok := index[month.Format("2006-01")]
			if !ok {
				continue
			}
			flow[i].Income = income
			flow[i].Expense = expense
			flow[i].Net = income.Sub(expense)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate cash flow: %w", err)
		}
		return flow, nil
	})
}

// RevenueByClient ranks clients by income received in [from, to).
// Share is the percentage of the listed total.
func (s *PostgresService) RevenueByClient(ctx context.Context, orgID int64, from, to time.Time, limit int) ([]ClientRevenue, error) {
	if limit <= 0 {
		limit = defaultTopClients
	}
	if limit > maxTopClients {
		limit = maxTopClients
	}
	key := fmt.Sprintf("%d:revenue:%s:%s:%d", orgID, from.Format("2006-01-02"), to.Format("2006-01-02"), limit)

	return cached(ctx, s, key, func(ctx context.Context) ([]ClientRevenue, error) {
		query := `
			SELECT c.id, c.name, SUM(t.amount) AS revenue
			FROM transactions t
			JOIN clients c ON c.id = t.client_id
			WHERE t.org_id = $1 AND t.type = 'INCOME' AND t.occurred_at >= $2 AND t.occurred_at < $3
			GROUP BY c.id, c.name
			ORDER BY revenue DESC, c.name
			LIMIT $4
		`
		rows, err := s.db.QueryContext(ctx, query, orgID, from, to, limit)
		if err != nil {
			return nil, fmt.Errorf("failed to query revenue by client: %w", err)
		}
		defer rows.Close()

		result := []ClientRevenue{}
		total := decimal.Zero
		for rows.Next() {
			var r ClientRevenue
			if err := rows.Scan(&r.ClientID, &r.ClientName, &r.Revenue); err != nil {
				return nil, fmt.Errorf("failed to scan revenue row: %w", err)
			}
			total = total.Add(r.Revenue)
			result = append(result, r)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate revenue rows: %w", err)
		}

		if total.IsPositive() {
			for i := range result {
				result[i].Share = result[i].Revenue.
					Div(total).
					Mul(decimal.NewFromInt(100)).
					Round(2).
					InexactFloat64()
			}
		}
		return result, nil
	})
}

// ReceivablesAging buckets the outstanding balance of open invoices by days past due
func (s *PostgresService) ReceivablesAging(ctx context.Context, orgID int64, now time.Time) (*AgingReport, error) {
	key := fmt.Sprintf("%d:aging:%s", orgID, now.Format("2006-01-02"))

	return cached(ctx, s, key, func(ctx context.Context) (*AgingReport, error) {
		query := `
			SELECT ` + receivableBalance + ` AS balance, i.due_date
			FROM invoices i
			WHERE i.org_id = $1 AND i.status IN ('OPEN', 'OVERDUE')
		`
		rows, err := s.db.QueryContext(ctx, query, orgID)
		if err != nil {
			return nil, fmt.Errorf("failed to query receivables: %w", err)
		}
		defer rows.Close()

		report := &AgingReport{
			Current: AgingBucket{Label: "current"},
			Buckets: make([]AgingBucket, len(agingLabels)),
		}
		for i, label := range agingLabels {
			report.Buckets[i] = AgingBucket{Label: label}
		}

		for rows.Next() {
			var (
				balance decimal.Decimal
				due     time.Time
			)
			if err := rows.Scan(&balance, &due); err != nil {
				return nil, fmt.Errorf("failed to scan receivable: %w", err)
			}
			if !balance.IsPositive() {
				continue
			}

			bucket := &report.Current
			if i := AgingBucketIndex(DaysPastDue(due, now)); i >= 0 {
				bucket = &report.Buckets[i]
				report.PastDue = report.PastDue.Add(balance)
			}
			bucket.Count++
			bucket.Amount = bucket.Amount.Add(balance)
			report.Total = report.Total.Add(balance)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate receivables: %w", err)
		}
		return report, nil
	})
}

// InstallmentCollection counts installments per status. CollectionRate is the
// percentage of installments already confirmed.
func (s *PostgresService) InstallmentCollection(ctx context.Context, orgID int64) (*InstallmentCollection, error) {
	key := fmt.Sprintf("%d:installments", orgID)

	return cached(ctx, s, key, func(ctx context.Context) (*InstallmentCollection, error) {
		query := `
			SELECT status, COUNT(*), COALESCE(SUM(amount), 0), COALESCE(SUM(paid_amount), 0)
			FROM installments
			WHERE org_id = $1
			GROUP BY status
		`
		rows, err := s.db.QueryContext(ctx, query, orgID)
		if err != nil {
			return nil, fmt.Errorf("failed to query installments: %w", err)
		}
		defer rows.Close()

		report := &InstallmentCollection{}
		var total int64
		for rows.Next() {
			var (
				status       string
				count        int64
				amount, paid decimal.Decimal
			)
			if err := rows.Scan(&status, &count, &amount, &paid); err != nil {
				return nil, fmt.Errorf("failed to scan installment totals: %w", err)
			}
			bucket := CollectionBucket{Count: count, Amount: amount}
			switch status {
			case "CONFIRMED":
				report.Confirmed = bucket
				report.Collected = paid
			case "PENDING":
				report.Pending = bucket
			case "LATE":
				report.Late = bucket
			}
			total += count
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to iterate installment totals: %w", err)
		}

		if total > 0 {
			report.CollectionRate = decimal.NewFromInt(report.Confirmed.Count).
				Div(decimal.NewFromInt(total)).
				Mul(decimal.NewFromInt(100)).
				Round(2).
				InexactFloat64()
		}
		return report, nil
	})
}

// cached serves key from the cache or computes it with load and stores the result.
// Cache failures are logged and never fail the report.
func cached[T any](ctx context.Context, s *PostgresService, key string, load func(context.Context) (T, error)) (T, error) {
	if s.cache == nil {
		return load(ctx)
	}

	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("report cache read failed")
	} else if ok {
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			s.metrics.RecordCacheLookup(s.cache.Name(), true)
			return value, nil
		}
	}
	s.metrics.RecordCacheLookup(s.cache.Name(), false)

	value, err := load(ctx)
	if err != nil {
		return value, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("failed to encode report")
		return value, nil
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("report cache write failed")
	}
	return value, nil
}
