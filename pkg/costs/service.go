package costs

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
	"github.com/platinummonkey/clientbill/pkg/observability"
	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

const costItemColumns = `id, org_id, name, category, default_amount, recurring, active, created_at, updated_at`

const subscriptionColumns = `s.id, s.org_id, s.client_id, s.cost_item_id, c.name, s.amount, s.start_date, s.end_date,
	s.active, s.created_at`

// ClientLookup resolves clients of an organization
type ClientLookup interface {
	GetClient(ctx context.Context, orgID, id int64) (*clients.Client, error)
}

// PostgresService implements Service using PostgreSQL
type PostgresService struct {
	db      *sql.DB
	clients ClientLookup
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewPostgresService creates a new PostgresService
func NewPostgresService(db *sql.DB, clientLookup ClientLookup, metrics *observability.Metrics, logger *observability.Logger) *PostgresService {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &PostgresService{db: db, clients: clientLookup, metrics: metrics, logger: logger}
}

// CreateCostItem stores a new active cost item
func (s *PostgresService) CreateCostItem(ctx context.Context, orgID int64, in *CostItemInput) (*CostItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	recurring := true
	if in.Recurring != nil {
		recurring = *in.Recurring
	}

	query := `
		INSERT INTO cost_items (org_id, name, category, default_amount, recurring)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + costItemColumns
	item, err := scanCostItem(s.db.QueryRowContext(ctx, query, orgID, in.Name, in.Category, in.DefaultAmount, recurring))
	if err != nil {
		return nil, fmt.Errorf("failed to create cost item: %w", err)
	}
	return item, nil
}

// GetCostItem retrieves a cost item
func (s *PostgresService) GetCostItem(ctx context.Context, orgID, id int64) (*CostItem, error) {
	query := `SELECT ` + costItemColumns + ` FROM cost_items WHERE org_id = $1 AND id = $2`
	return scanCostItem(s.db.QueryRowContext(ctx, query, orgID, id))
}

// ListCostItems lists cost items by name
func (s *PostgresService) ListCostItems(ctx context.Context, orgID int64, activeOnly bool) ([]*CostItem, error) {
	query := `SELECT ` + costItemColumns + ` FROM cost_items WHERE org_id = $1`
	if activeOnly {
		query += ` AND active = true`
	}
	query += ` ORDER BY name, id`

	rows, err := s.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost items: %w", err)
	}
	defer rows.Close()

	var items []*CostItem
	for rows.Next() {
		item, err := scanCostItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cost items: %w", err)
	}
	return items, nil
}

// UpdateCostItem replaces the writable fields of a cost item
func (s *PostgresService) UpdateCostItem(ctx context.Context, orgID, id int64, in *CostItemInput) (*CostItem, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	query := `
		UPDATE cost_items
		SET name = $3, category = $4, default_amount = $5, recurring = COALESCE($6, recurring), updated_at = NOW()
		WHERE org_id = $1 AND id = $2
		RETURNING ` + costItemColumns
	return scanCostItem(s.db.QueryRowContext(ctx, query, orgID, id, in.Name, in.Category, in.DefaultAmount, in.Recurring))
}

// DeactivateCostItem hides a cost item from new subscriptions and materialization
func (s *PostgresService) DeactivateCostItem(ctx context.Context, orgID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE cost_items SET active = false, updated_at = NOW() WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate cost item: %w", err)
	}
	if postgres.RowsAffected(result) == 0 {
		return ErrCostItemNotFound
	}
	return nil
}

// CreateSubscription attaches an active cost item to a client
func (s *PostgresService) CreateSubscription(ctx context.Context, orgID int64, in *SubscriptionInput) (*Subscription, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.clients.GetClient(ctx, orgID, in.ClientID); err != nil {
		return nil, err
	}
	item, err := s.GetCostItem(ctx, orgID, in.CostItemID)
	if err != nil {
		return nil, err
	}
	if !item.Active {
		return nil, ErrCostItemInactive
	}

	sub := &Subscription{
		OrgID:        orgID,
		ClientID:     in.ClientID,
		CostItemID:   in.CostItemID,
		CostItemName: item.Name,
		Amount:       in.Amount,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
		Active:       true,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO client_cost_subscriptions (org_id, client_id, cost_item_id, amount, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, orgID, in.ClientID, in.CostItemID, in.Amount, in.StartDate, in.EndDate).Scan(&sub.ID, &sub.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create cost subscription: %w", err)
	}
	return sub, nil
}

// ListSubscriptions lists subscriptions, optionally of one client
func (s *PostgresService) ListSubscriptions(ctx context.Context, orgID int64, clientID *int64) ([]*Subscription, error) {
	query := `SELECT ` + subscriptionColumns + `
		FROM client_cost_subscriptions s JOIN cost_items c ON c.id = s.cost_item_id
		WHERE s.org_id = $1`
	args := []interface{}{orgID}
	if clientID != nil {
		args = append(args, *clientID)
		query += fmt.Sprintf(" AND s.client_id = $%d", len(args))
	}
	query += ` ORDER BY s.client_id, s.start_date, s.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list cost subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []*Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cost subscriptions: %w", err)
	}
	return subs, nil
}

// DeactivateSubscription stops a subscription. Entries already materialized are kept.
func (s *PostgresService) DeactivateSubscription(ctx context.Context, orgID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE client_cost_subscriptions SET active = false WHERE org_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate cost subscription: %w", err)
	}
	if postgres.RowsAffected(result) == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// monthlyCost is a subscription charged in one month, joined with its cost item
type monthlyCost struct {
	SubscriptionID int64
	ClientID       int64
	CostItemID     int64
	Name           string
	Category       string
	Amount         decimal.Decimal
}

// coveringSubscriptions lists the subscriptions charged in the month, with their effective
// amount. clientID narrows to one client when non-nil.
func (s *PostgresService) coveringSubscriptions(ctx context.Context, orgID int64, monthStart time.Time, clientID *int64) ([]monthlyCost, error) {
	query := `
		SELECT s.id, s.client_id, s.cost_item_id, s.amount, s.start_date, s.end_date, s.active,
		       c.name, c.category, c.default_amount, c.recurring
		FROM client_cost_subscriptions s JOIN cost_items c ON c.id = s.cost_item_id
		WHERE s.org_id = $1 AND s.active = true AND c.active = true AND s.start_date < $2`
	args := []interface{}{orgID, monthStart.AddDate(0, 1, 0)}
	if clientID != nil {
		args = append(args, *clientID)
		query += fmt.Sprintf(" AND s.client_id = $%d", len(args))
	}
	query += ` ORDER BY s.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load cost subscriptions: %w", err)
	}
	defer rows.Close()

	var costs []monthlyCost
	for rows.Next() {
		var (
			sub           Subscription
			amount        decimal.NullDecimal
			endDate       sql.NullTime
			c             monthlyCost
			defaultAmount decimal.Decimal
			recurring     bool
		)
		if err := rows.Scan(&sub.ID, &sub.ClientID, &sub.CostItemID, &amount, &sub.StartDate, &endDate, &sub.Active,
			&c.Name, &c.Category, &defaultAmount, &recurring); err != nil {
			return nil, fmt.Errorf("failed to scan cost subscription: %w", err)
		}
		if amount.Valid {
			sub.Amount = &amount.Decimal
		}
		if endDate.Valid {
			sub.EndDate = &endDate.Time
		}
		if !sub.ChargedIn(monthStart, recurring) {
			continue
		}

		c.SubscriptionID = sub.ID
		c.ClientID = sub.ClientID
		c.CostItemID = sub.CostItemID
		c.Amount = sub.EffectiveAmount(defaultAmount)
		costs = append(costs, c)
	}
	return costs, rows.Err()
}

// MaterializeMonth writes one EXPENSE entry per active subscription charged in the month.
// One-off cost items are charged only in the month their subscription starts. Subscriptions
// already materialized for the month, or with a zero amount, are skipped.
func (s *PostgresService) MaterializeMonth(ctx context.Context, orgID int64, month time.Time) (*MaterializeResult, error) {
	monthStart := billing.MonthStart(month)
	result := &MaterializeResult{Month: monthStart.Format("2006-01")}

	costs, err := s.coveringSubscriptions(ctx, orgID, monthStart, nil)
	if err != nil {
		return nil, err
	}

	done, err := s.materialized(ctx, orgID, monthStart)
	if err != nil {
		return nil, err
	}

	for _, c := range costs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if done[c.SubscriptionID] || !c.Amount.IsPositive() {
			result.Skipped++
			continue
		}

		created, err := s.insertExpense(ctx, orgID, monthStart, c)
		if err != nil {
			s.logger.WithError(err).WithField("subscription_id", c.SubscriptionID).Error("failed to materialize cost")
			result.Errors = append(result.Errors, fmt.Sprintf("assinatura %d: %v", c.SubscriptionID, err))
			continue
		}
		if created {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	s.metrics.RecordCostsMaterialized(result.Created, result.Skipped)
	s.logger.WithFields(map[string]interface{}{
		"org_id":  orgID,
		"month":   result.Month,
		"created": result.Created,
		"skipped": result.Skipped,
	}).Info("recurring costs materialized")
	return result, nil
}

func (s *PostgresService) materialized(ctx context.Context, orgID int64, monthStart time.Time) (map[int64]bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT subscription_id FROM transactions
		WHERE org_id = $1 AND reference_month = $2 AND subscription_id IS NOT NULL
	`, orgID, monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load materialized costs: %w", err)
	}
	defer rows.Close()

	done := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan materialized cost: %w", err)
		}
		done[id] = true
	}
	return done, rows.Err()
}

// insertExpense reports false when the (subscription, month) entry already exists
func (s *PostgresService) insertExpense(ctx context.Context, orgID int64, monthStart time.Time, c monthlyCost) (bool, error) {
	category := c.Category
	if category == "" {
		category = finance.CategoryRecurringCost
	}
	subscriptionID := c.SubscriptionID
	clientID := c.ClientID
	referenceMonth := monthStart

	tx := &finance.Transaction{
		OrgID:          orgID,
		Type:           finance.TransactionExpense,
		Amount:         c.Amount,
		Category:       category,
		Description:    fmt.Sprintf("%s - %s", c.Name, monthStart.Format("01/2006")),
		OccurredAt:     monthStart,
		ClientID:       &clientID,
		SubscriptionID: &subscriptionID,
		ReferenceMonth: &referenceMonth,
	}
	if err := tx.Validate(); err != nil {
		return false, err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO transactions (org_id, type, amount, category, description, occurred_at,
		                          client_id, subscription_id, reference_month)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (subscription_id, reference_month) WHERE subscription_id IS NOT NULL DO NOTHING
		RETURNING id
	`, tx.OrgID, tx.Type, tx.Amount.Round(2), tx.Category, tx.Description, tx.OccurredAt,
		tx.ClientID, tx.SubscriptionID, tx.ReferenceMonth).Scan(&tx.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert cost transaction: %w", err)
	}
	return true, nil
}

// ClientCostSummary lists a client's recurring costs for the month and their total
func (s *PostgresService) ClientCostSummary(ctx context.Context, orgID, clientID int64, month time.Time) (*ClientSummary, error) {
	if _, err := s.clients.GetClient(ctx, orgID, clientID); err != nil {
		return nil, err
	}

	monthStart := billing.MonthStart(month)
	costs, err := s.coveringSubscriptions(ctx, orgID, monthStart, &clientID)
	if err != nil {
		return nil, err
	}

	summary := &ClientSummary{
		ClientID: clientID,
		Month:    monthStart.Format("2006-01"),
		Lines:    make([]CostLine, 0, len(costs)),
		Total:    decimal.Zero,
	}
	for _, c := range costs {
		summary.Lines = append(summary.Lines, CostLine{
			SubscriptionID: c.SubscriptionID,
			CostItemID:     c.CostItemID,
			Name:           c.Name,
			Category:       c.Category,
			Amount:         c.Amount,
		})
		summary.Total = summary.Total.Add(c.Amount)
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCostItem(row rowScanner) (*CostItem, error) {
	item := &CostItem{}
	err := row.Scan(&item.ID, &item.OrgID, &item.Name, &item.Category, &item.DefaultAmount,
		&item.Recurring, &item.Active, &item.CreatedAt, &item.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCostItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cost item: %w", err)
	}
	return item, nil
}

func scanSubscription(row rowScanner) (*Subscription, error) {
	sub := &Subscription{}
	var amount decimal.NullDecimal
	var endDate sql.NullTime
	err := row.Scan(&sub.ID, &sub.OrgID, &sub.ClientID, &sub.CostItemID, &sub.CostItemName, &amount,
		&sub.StartDate, &endDate, &sub.Active, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan cost subscription: %w", err)
	}
	if amount.Valid {
		sub.Amount = &amount.Decimal
	}
	if endDate.Valid {
		sub.EndDate = &endDate.Time
	}
	return sub, nil
}
