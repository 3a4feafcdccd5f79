// Package finance is the organization ledger: INCOME and EXPENSE transactions.
//
// Manual entries are created through Service. Billing flows (invoice payments, installment
// confirmations, cost materialization) write their entries with InsertTransaction inside
// their own database transaction and link them to the originating row; linked entries
// cannot be deleted.
package finance
