// Package billing manages invoices and their lifecycle.
//
// An invoice starts as DRAFT, is issued to OPEN, and ends PAID or VOID. OPEN invoices
// past their due date move to OVERDUE, which can still be paid or voided.
//
//	DRAFT ──issue──> OPEN ──pay──> PAID
//	  │               │ └─due─> OVERDUE ──pay──> PAID
//	  └──cancel──> VOID <──cancel──┘
//
// Totals are derived from the items: subtotal is the sum of quantity times unit price and
// total is subtotal minus discount plus tax.
//
// Paying an invoice writes the status change, a payment row and an INCOME ledger entry in a
// single transaction, with the amount already received summed under the invoice row lock.
// The invoice settles once the payments reach total*(1-tolerance); ApplyPayment keeps smaller
// amounts as PARTIAL payments while MarkInvoicePaid rejects them. Monthly generation creates at most one live invoice per client and
// month; a partial unique index on (client_id, period_start) backs the existence check.
//
// Invoice numbers are allocated per organization and month, e.g. FAT-202403-0007.
package billing
