// Package clients manages the billed customers of an organization.
//
// A client is billed either MONTHLY (one invoice per calendar month for MonthlyFee, due on
// DueDay) or in INSTALLMENTS (a fixed plan of Count parcels). PaymentStatus is an aggregate
// maintained by the payments package and is never written through ClientInput.
package clients
