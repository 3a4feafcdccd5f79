package costs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/clientbill/pkg/clients"
)

var (
	costItemRowColumns = []string{"id", "org_id", "name", "category", "default_amount", "recurring", "active", "created_at", "updated_at"}
	monthlyCostColumns = []string{
		"id", "client_id", "cost_item_id", "amount", "start_date", "end_date", "active",
		"name", "category", "default_amount", "recurring",
	}
	testNow            = time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
)

type stubClients struct{}

func (stubClients) GetClient(ctx context.Context, orgID, id int64) (*clients.Client, error) {
	if id == 404 {
		return nil, clients.ErrNotFound
	}
	return &clients.Client{ID: id, OrgID: orgID}, nil
}

func newTestService(t *testing.T) (*PostgresService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresService(db, stubClients{}, nil, nil), mock
}

func TestCreateCostItem(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("INSERT INTO cost_items").
		WithArgs(int64(1), "Hospedagem", "Infra", sqlmock.AnyArg(), true).
		WillReturnRows(sqlmock.NewRows(costItemRowColumns).
			AddRow(3, 1, "Hospedagem", "Infra", "120.00", true, true, testNow, testNow))

	item, err := svc.CreateCostItem(context.Background(), 1, &CostItemInput{
		Name: "Hospedagem", Category: "Infra", DefaultAmount: decimal.NewFromInt(120),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), item.ID)
	assert.Equal(t, "120", item.DefaultAmount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListCostItems_ActiveOnly(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM cost_items WHERE org_id = \\$1 AND active = true ORDER BY name").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(costItemRowColumns).
			AddRow(3, 1, "Hospedagem", "Infra", "120.00", true, true, testNow, testNow))

	items, err := svc.ListCostItems(context.Background(), 1, true)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestDeactivateCostItem_NotFound(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("UPDATE cost_items SET active = false").
		WithArgs(int64(1), int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, svc.DeactivateCostItem(context.Background(), 1, 9), ErrCostItemNotFound)
}

func TestCreateSubscription(t *testing.T) {
	svc, mock := newTestService(t)
	start := day(2024, 1, 1)
	override := decimal.RequireFromString("90.00")

	mock.ExpectQuery("FROM cost_items WHERE org_id = \\$1 AND id = \\$2").
		WithArgs(int64(1), int64(3)).
		WillReturnRows(sqlmock.NewRows(costItemRowColumns).
			AddRow(3, 1, "Hospedagem", "Infra", "120.00", true, true, testNow, testNow))
	mock.ExpectQuery("INSERT INTO client_cost_subscriptions").
		WithArgs(int64(1), int64(7), int64(3), sqlmock.AnyArg(), start, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(40, testNow))

	sub, err := svc.CreateSubscription(context.Background(), 1, &SubscriptionInput{
		ClientID: 7, CostItemID: 3, Amount: &override, StartDate: start,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(40), sub.ID)
	assert.Equal(t, "Hospedagem", sub.CostItemName)
	assert.True(t, sub.Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSubscription_InactiveItem(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM cost_items").
		WillReturnRows(sqlmock.NewRows(costItemRowColumns).
			AddRow(3, 1, "Legado", "", "10.00", true, false, testNow, testNow))

	_, err := svc.CreateSubscription(context.Background(), 1, &SubscriptionInput{
		ClientID: 7, CostItemID: 3, StartDate: day(2024, 1, 1),
	})
	assert.ErrorIs(t, err, ErrCostItemInactive)
}

func TestCreateSubscription_UnknownClient(t *testing.T) {
	svc, mock := newTestService(t)

	_, err := svc.CreateSubscription(context.Background(), 1, &SubscriptionInput{
		ClientID: 404, CostItemID: 3, StartDate: day(2024, 1, 1),
	})
	assert.ErrorIs(t, err, clients.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSubscriptions_ByClient(t *testing.T) {
	svc, mock := newTestService(t)
	clientID := int64(7)

	mock.ExpectQuery("FROM client_cost_subscriptions s JOIN cost_items c (.+) AND s.client_id = \\$2").
		WithArgs(int64(1), clientID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "org_id", "client_id", "cost_item_id", "name", "amount", "start_date", "end_date", "active", "created_at",
		}).
			AddRow(40, 1, 7, 3, "Hospedagem", nil, day(2024, 1, 1), nil, true, testNow).
			AddRow(41, 1, 7, 4, "Domínio", "35.00", day(2024, 1, 1), day(2024, 12, 31), true, testNow))

	subs, err := svc.ListSubscriptions(context.Background(), 1, &clientID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Nil(t, subs[0].Amount)
	assert.Equal(t, "35", subs[1].Amount.String())
	assert.Equal(t, day(2024, 12, 31), *subs[1].EndDate)
}

func TestMaterializeMonth(t *testing.T) {
	svc, mock := newTestService(t)
	march := day(2024, 3, 1)
	since := day(2023, 1, 1)
	endedFeb := day(2024, 2, 29)

	mock.ExpectQuery("FROM client_cost_subscriptions s JOIN cost_items c").
		WithArgs(int64(1), day(2024, 4, 1)).
		WillReturnRows(sqlmock.NewRows(monthlyCostColumns).
			AddRow(40, 7, 3, nil, since, nil, true, "Hospedagem", "Infra", "120.00", true).
			AddRow(41, 7, 4, "35.00", since, nil, true, "Domínio", "", "50.00", true).
			AddRow(42, 8, 5, nil, since, nil, true, "Brinde", "", "0", true).
			AddRow(43, 8, 3, nil, since, nil, true, "Hospedagem", "Infra", "120.00", true).
			AddRow(44, 9, 3, nil, since, nil, true, "Hospedagem", "Infra", "120.00", true).
			AddRow(45, 9, 6, nil, since, endedFeb, true, "Hospedagem", "Infra", "120.00", true))
	mock.ExpectQuery("SELECT subscription_id FROM transactions").
		WithArgs(int64(1), march).
		WillReturnRows(sqlmock.NewRows([]string{"subscription_id"}).AddRow(43))
	mock.ExpectQuery("INSERT INTO transactions (.+) ON CONFLICT \\(subscription_id, reference_month\\)").
		WithArgs(int64(1), "EXPENSE", decimal.RequireFromString("120"), "Infra", "Hospedagem - 03/2024", march, int64(7), int64(40), march).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100))
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(int64(1), "EXPENSE", decimal.RequireFromString("35"), "Custos recorrentes", "Domínio - 03/2024", march, int64(7), int64(41), march).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(int64(1), "EXPENSE", sqlmock.AnyArg(), "Infra", "Hospedagem - 03/2024", march, int64(9), int64(44), march).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	result, err := svc.MaterializeMonth(context.Background(), 1, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "2024-03", result.Month)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 3, result.Skipped)
	assert.Empty(t, result.Errors)
}

func TestMaterializeMonth_OneOffCost(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		created int
	}{
		{"starts this month", day(2024, 3, 10), 1},
		{"started earlier", day(2024, 2, 10), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, mock := newTestService(t)
			march := day(2024, 3, 1)

			mock.ExpectQuery("FROM client_cost_subscriptions").
				WillReturnRows(sqlmock.NewRows(monthlyCostColumns).
					AddRow(50, 7, 8, nil, tt.start, nil, true, "Setup", "Implantação", "900.00", false))
			mock.ExpectQuery("SELECT subscription_id FROM transactions").
				WillReturnRows(sqlmock.NewRows([]string{"subscription_id"}))
			if tt.created > 0 {
				mock.ExpectQuery("INSERT INTO transactions").
					WithArgs(int64(1), "EXPENSE", decimal.RequireFromString("900"), "Implantação", "Setup - 03/2024", march, int64(7), int64(50), march).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(110))
			}

			result, err := svc.MaterializeMonth(context.Background(), 1, march)
			require.NoError(t, err)
			assert.Equal(t, tt.created, result.Created)
			assert.Equal(t, 0, result.Skipped)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMaterializeMonth_InsertErrorCollected(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM client_cost_subscriptions").
		WillReturnRows(sqlmock.NewRows(monthlyCostColumns).
			AddRow(40, 7, 3, nil, day(2023, 1, 1), nil, true, "Hospedagem", "Infra", "120.00", true))
	mock.ExpectQuery("SELECT subscription_id FROM transactions").
		WillReturnRows(sqlmock.NewRows([]string{"subscription_id"}))
	mock.ExpectQuery("INSERT INTO transactions").WillReturnError(errors.New("deadlock detected"))

	result, err := svc.MaterializeMonth(context.Background(), 1, day(2024, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "assinatura 40")
}

func TestClientCostSummary(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("FROM client_cost_subscriptions (.+) AND s.client_id = \\$3").
		WithArgs(int64(1), day(2024, 4, 1), int64(7)).
		WillReturnRows(sqlmock.NewRows(monthlyCostColumns).
			AddRow(40, 7, 3, nil, day(2023, 1, 1), nil, true, "Hospedagem", "Infra", "120.00", true).
			AddRow(41, 7, 4, "35.50", day(2023, 1, 1), nil, true, "Domínio", "", "40.00", true).
			AddRow(42, 7, 8, nil, day(2024, 1, 5), nil, true, "Setup", "", "900.00", false))

	summary, err := svc.ClientCostSummary(context.Background(), 1, 7, day(2024, 3, 9))
	require.NoError(t, err)
	assert.Equal(t, "2024-03", summary.Month)
	assert.Len(t, summary.Lines, 2)
	assert.Equal(t, "155.5", summary.Total.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}
