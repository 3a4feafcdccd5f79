package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/platinummonkey/clientbill/pkg/observability"
)

// Migration represents a database migration
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// GetMigrations returns the schema migrations in version order
func GetMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create organizations table",
			SQL: `
				CREATE TABLE IF NOT EXISTS organizations (
					id BIGSERIAL PRIMARY KEY,
					name VARCHAR(255) NOT NULL,
					slug VARCHAR(100) NOT NULL UNIQUE,
					display_name VARCHAR(255) NOT NULL DEFAULT '',
					status VARCHAR(20) NOT NULL DEFAULT 'active',
					settings JSONB NOT NULL DEFAULT '{}',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
		{
			Version:     2,
			Description: "Create clients table",
			SQL: `
				CREATE TABLE IF NOT EXISTS clients (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					email VARCHAR(255) NOT NULL DEFAULT '',
					phone VARCHAR(50) NOT NULL DEFAULT '',
					document VARCHAR(50) NOT NULL DEFAULT '',
					payment_mode VARCHAR(20) NOT NULL DEFAULT 'MONTHLY',
					monthly_fee NUMERIC(14,2) NOT NULL DEFAULT 0,
					due_day INT NOT NULL DEFAULT 10 CHECK (due_day BETWEEN 1 AND 31),
					contract_start DATE NOT NULL,
					contract_end DATE,
					installment_count INT NOT NULL DEFAULT 0,
					installment_total NUMERIC(14,2) NOT NULL DEFAULT 0,
					installment_first_due DATE,
					installment_interval_days INT NOT NULL DEFAULT 0,
					payment_status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
					active BOOLEAN NOT NULL DEFAULT TRUE,
					notes TEXT NOT NULL DEFAULT '',
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_clients_org_active ON clients(org_id, active);
			`,
		},
		{
			Version:     3,
			Description: "Create invoices and invoice items",
			SQL: `
				CREATE TABLE IF NOT EXISTS invoices (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					client_id BIGINT NOT NULL REFERENCES clients(id),
					number VARCHAR(50) NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'DRAFT',
					issue_date DATE NOT NULL,
					due_date DATE NOT NULL,
					period_start DATE,
					subtotal NUMERIC(14,2) NOT NULL DEFAULT 0,
					discount NUMERIC(14,2) NOT NULL DEFAULT 0,
					tax NUMERIC(14,2) NOT NULL DEFAULT 0,
					total NUMERIC(14,2) NOT NULL DEFAULT 0,
					currency VARCHAR(3) NOT NULL DEFAULT 'BRL',
					notes TEXT NOT NULL DEFAULT '',
					paid_at TIMESTAMPTZ,
					voided_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(org_id, number),
					CHECK (due_date >= issue_date)
				);

				CREATE INDEX IF NOT EXISTS idx_invoices_org_status ON invoices(org_id, status);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_client_period
					ON invoices(client_id, period_start)
					WHERE period_start IS NOT NULL AND status <> 'VOID';
				CREATE INDEX IF NOT EXISTS idx_invoices_due_date ON invoices(due_date);

				CREATE TABLE IF NOT EXISTS invoice_items (
					id BIGSERIAL PRIMARY KEY,
					invoice_id BIGINT NOT NULL REFERENCES invoices(id) ON DELETE CASCADE,
					position INT NOT NULL DEFAULT 0,
					description TEXT NOT NULL,
					quantity NUMERIC(12,3) NOT NULL,
					unit_price NUMERIC(14,2) NOT NULL,
					total NUMERIC(14,2) NOT NULL
				);

				CREATE INDEX IF NOT EXISTS idx_invoice_items_invoice ON invoice_items(invoice_id);

				CREATE TABLE IF NOT EXISTS invoice_counters (
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					period VARCHAR(6) NOT NULL,
					last_seq INT NOT NULL,
					PRIMARY KEY (org_id, period)
				);
			`,
		},
		{
			Version:     4,
			Description: "Create installments and payments",
			SQL: `
				CREATE TABLE IF NOT EXISTS installments (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					client_id BIGINT NOT NULL REFERENCES clients(id),
					number INT NOT NULL,
					total_count INT NOT NULL,
					amount NUMERIC(14,2) NOT NULL,
					due_date DATE NOT NULL,
					status VARCHAR(20) NOT NULL DEFAULT 'PENDING',
					paid_amount NUMERIC(14,2),
					confirmed_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					UNIQUE(client_id, due_date)
				);

				CREATE INDEX IF NOT EXISTS idx_installments_org_status ON installments(org_id, status);

				CREATE TABLE IF NOT EXISTS payments (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					client_id BIGINT NOT NULL REFERENCES clients(id),
					invoice_id BIGINT REFERENCES invoices(id),
					installment_id BIGINT REFERENCES installments(id),
					amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
					method VARCHAR(30) NOT NULL DEFAULT '',
					status VARCHAR(20) NOT NULL DEFAULT 'CONFIRMED',
					paid_at TIMESTAMPTZ NOT NULL,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_payments_client ON payments(client_id);
				CREATE INDEX IF NOT EXISTS idx_payments_invoice ON payments(invoice_id);
			`,
		},
		{
			Version:     5,
			Description: "Create costs and transactions",
			SQL: `
				CREATE TABLE IF NOT EXISTS cost_items (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					name VARCHAR(255) NOT NULL,
					category VARCHAR(100) NOT NULL DEFAULT '',
					default_amount NUMERIC(14,2) NOT NULL DEFAULT 0,
					recurring BOOLEAN NOT NULL DEFAULT TRUE,
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS client_cost_subscriptions (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					client_id BIGINT NOT NULL REFERENCES clients(id),
					cost_item_id BIGINT NOT NULL REFERENCES cost_items(id),
					amount NUMERIC(14,2),
					start_date DATE NOT NULL,
					end_date DATE,
					active BOOLEAN NOT NULL DEFAULT TRUE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS transactions (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					type VARCHAR(10) NOT NULL CHECK (type IN ('INCOME', 'EXPENSE')),
					amount NUMERIC(14,2) NOT NULL CHECK (amount > 0),
					category VARCHAR(100) NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					occurred_at DATE NOT NULL,
					client_id BIGINT REFERENCES clients(id),
					invoice_id BIGINT REFERENCES invoices(id),
					installment_id BIGINT REFERENCES installments(id),
					subscription_id BIGINT REFERENCES client_cost_subscriptions(id),
					reference_month DATE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_transactions_org_date ON transactions(org_id, occurred_at);
				CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_subscription_month
					ON transactions(subscription_id, reference_month)
					WHERE subscription_id IS NOT NULL;
			`,
		},
		{
			Version:     6,
			Description: "Create notifications and dashboard tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS notifications (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					type VARCHAR(50) NOT NULL,
					title VARCHAR(255) NOT NULL,
					message TEXT NOT NULL DEFAULT '',
					client_id BIGINT REFERENCES clients(id),
					invoice_id BIGINT REFERENCES invoices(id),
					send_email BOOLEAN NOT NULL DEFAULT FALSE,
					send_whatsapp BOOLEAN NOT NULL DEFAULT FALSE,
					read_at TIMESTAMPTZ,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE INDEX IF NOT EXISTS idx_notifications_org_unread ON notifications(org_id) WHERE read_at IS NULL;

				CREATE TABLE IF NOT EXISTS dashboard_events (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					title VARCHAR(255) NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					starts_at TIMESTAMPTZ NOT NULL,
					ends_at TIMESTAMPTZ,
					all_day BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);

				CREATE TABLE IF NOT EXISTS dashboard_notes (
					id BIGSERIAL PRIMARY KEY,
					org_id BIGINT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
					content TEXT NOT NULL,
					color VARCHAR(20) NOT NULL DEFAULT 'yellow',
					pinned BOOLEAN NOT NULL DEFAULT FALSE,
					created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
					updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
				);
			`,
		},
	}
}

// RunMigrations applies pending migrations, each in its own transaction
func RunMigrations(ctx context.Context, db *sql.DB, logger *observability.Logger) error {
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, migration := range GetMigrations() {
		if applied[migration.Version] {
			continue
		}

		logger.WithField("version", migration.Version).Infof("running migration: %s", migration.Description)

		err := WithTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, description) VALUES ($1, $2)",
				migration.Version, migration.Description)
			if err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
