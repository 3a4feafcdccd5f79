// Package analytics builds the financial dashboards of an organization.
//
// # Reports
//
//   - Overview: revenue, expense and profit of the current month against the
//     previous one, open receivables, overdue totals and active clients
//   - CashFlow: income, expense and net per calendar month
//   - RevenueByClient: top paying clients in a date range
//   - ReceivablesAging: outstanding invoice balances bucketed by days past due
//   - InstallmentCollection: confirmed, pending and late installment totals
//
// Month-over-month figures are returned as Metric values. A Metric carries the
// current and previous value and derives its Trend and ChangePercent.
//
// # Caching
//
// Report results are JSON encoded and stored in a Cache. RedisCache is used
// when a Redis client is configured so replicas share results, LRUCache keeps
// them in process otherwise. Entries expire after the configured TTL; writes
// never invalidate explicitly.
//
//	cache := analytics.NewCache(redisClient, cfg.Cache.LRUSize, cfg.Cache.ReportTTL)
//	svc := analytics.NewService(db, analytics.Options{Cache: cache, Metrics: metrics})
//	overview, err := svc.Overview(ctx, orgID, time.Now())
package analytics
