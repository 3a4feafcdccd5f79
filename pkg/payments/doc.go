// Package payments reconciles money received from clients.
//
// Monthly clients pay the invoice of a month. A payment within the configured shortfall
// tolerance of the invoice total (5% by default) settles it; smaller amounts are kept as
// partial payments and the invoice stays open.
//
// Installment clients follow a plan of N installments. Installments are created a few at a
// time by the automation run, confirmed one by one, and the client's aggregate payment status
// is recomputed on every confirmation:
//
//	all N confirmed          SETTLED
//	any installment late     LATE
//	at least one confirmed   CURRENT
//	otherwise                PENDING
package payments
