// Package automation runs the recurring financial jobs of each organization.
//
// A monthly run executes, in order:
//
//  1. generate_invoices: one OPEN invoice per active MONTHLY client
//  2. generate_installments: the next installments of every INSTALLMENTS client
//  3. materialize_costs: one EXPENSE per active cost subscription
//  4. mark_overdue_invoices: OPEN invoices past due become OVERDUE
//  5. mark_late_installments: PENDING installments past due become LATE
//
// Every step is idempotent, so the monthly run is safe to schedule daily. A
// failing step is recorded in the Report and the remaining steps still run.
// When any step fails an AUTOMATION_FAILED notification is raised.
//
// The overdue run executes only the last two steps and is scheduled more often.
// RunAll and RunAllOverdue fan out over the active organizations on a worker pool.
package automation
