// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, invoice)
//	httputil.WriteCreated(w, client)
//	httputil.WriteServiceError(w, r, err) // maps apperr kinds to 404/400/409
//
// # Request Parsing
//
//	var req billing.CreateInvoiceRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	id, ok := httputil.ParsePathInt64OrError(w, r, "invoice_id")
//	page, err := httputil.ParsePage(r, 50, 200)
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware,
//		httputil.TimeoutMiddleware(30*time.Second),
//		httputil.MaxBytesMiddleware(1<<20),
//	)
package httputil
