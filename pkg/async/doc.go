// Package async runs background work with panic recovery and per-task timeouts.
//
// WorkerPool is a fixed set of goroutines draining a buffered queue:
//
//	pool := async.NewWorkerPool(ctx, 4, "notification delivery", 30*time.Second, logger)
//	defer pool.Shutdown(5 * time.Second)
//
//	pool.Submit(func(ctx context.Context) error {
//		return dispatcher.Deliver(ctx, orgID, n)
//	})
//
// Batch fans a slice out over a temporary pool and returns every error:
//
//	errs := async.Batch(ctx, orgs, 4, "automation", time.Minute, logger, run)
package async
