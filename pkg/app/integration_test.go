//go:build integration

package app

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/platinummonkey/clientbill/pkg/clients"
	"github.com/platinummonkey/clientbill/pkg/config"
	"github.com/platinummonkey/clientbill/pkg/observability"
	"github.com/platinummonkey/clientbill/pkg/orgs"
	"github.com/platinummonkey/clientbill/pkg/payments"
	"github.com/platinummonkey/clientbill/pkg/storage/postgres"
)

// setupPostgresTestDB starts a PostgreSQL container with the schema applied
func setupPostgresTestDB(t *testing.T) *sql.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("clientbill_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())

	logger := observability.NewNopLogger()
	require.NoError(t, postgres.RunMigrations(ctx, db, logger))
	require.NoError(t, postgres.RunMigrations(ctx, db, logger), "migrations are idempotent")
	return db
}

func TestMonthlyBillingFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := setupPostgresTestDB(t)
	ctx := context.Background()
	components := Wire(ctx, config.Default(), Deps{Primary: db})
	defer components.Dispatcher.Shutdown(time.Second)
	s := components.Services

	org, err := s.Orgs.CreateOrganization(ctx, &orgs.CreateOrgRequest{Name: "Estúdio Norte"})
	require.NoError(t, err)

	client, err := s.Clients.CreateClient(ctx, org.ID, &clients.ClientInput{
		Name:          "Padaria Sol",
		PaymentMode:   clients.PaymentModeMonthly,
		MonthlyFee:    decimal.NewFromInt(1000),
		DueDay:        10,
		ContractStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	result, err := s.Billing.GenerateMonthlyInvoices(ctx, org.ID, march)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	result, err = s.Billing.GenerateMonthlyInvoices(ctx, org.ID, march)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Skipped)

	paidAt := time.Date(2024, 3, 12, 14, 0, 0, 0, time.UTC)
	paid, err := s.Payments.ConfirmMonthlyPayment(ctx, org.ID, &payments.ConfirmMonthlyRequest{
		ClientID: client.ID,
		Month:    march,
		Amount:   decimal.RequireFromString("999.97"),
		Method:   "PIX",
		PaidAt:   &paidAt,
	})
	require.NoError(t, err)
	assert.Equal(t, payments.ResultPaid, paid.Status, "shortfall within tolerance settles the invoice")

	summary, err := s.Finance.Summary(ctx, org.ID, march, march.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Count)
	assert.True(t, summary.Income.Equal(decimal.RequireFromString("999.97")), summary.Income.String())

	other, err := s.Orgs.CreateOrganization(ctx, &orgs.CreateOrgRequest{Name: "Outra Agência"})
	require.NoError(t, err)
	_, err = s.Clients.GetClient(ctx, other.ID, client.ID)
	assert.ErrorIs(t, err, clients.ErrNotFound, "clients are scoped to their organization")
}
