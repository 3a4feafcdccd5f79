// Package postgres holds the PostgreSQL plumbing shared by the service packages:
// the primary/replica connection manager, schema migrations and a transaction helper.
//
// Services own their SQL. Billing operations that touch several tables (paying an
// invoice, confirming an installment) run through WithTx so the invoice, payment and
// ledger rows commit together.
package postgres
