package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/platinummonkey/clientbill/pkg/billing"
	"github.com/platinummonkey/clientbill/pkg/contextkeys"
	"github.com/platinummonkey/clientbill/pkg/httputil"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// tenantID returns the organization resolved by TenantMiddleware
func tenantID(r *http.Request) int64 {
	return contextkeys.GetOrgID(r.Context())
}

// parseOptionalJSON decodes the body when present. An empty body leaves dest untouched.
func parseOptionalJSON(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := httputil.ParseJSON(r, dest); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// monthParam reads ?month=YYYY-MM, defaulting to the month of now
func monthParam(w http.ResponseWriter, r *http.Request, now time.Time) (time.Time, bool) {
	value := r.URL.Query().Get("month")
	if value == "" {
		return billing.MonthStart(now), true
	}
	month, err := httputil.ParseMonth(value)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return time.Time{}, false
	}
	return month, true
}

// dateParam reads an optional YYYY-MM-DD query parameter
func dateParam(w http.ResponseWriter, r *http.Request, key string) (*time.Time, bool) {
	t, err := httputil.ParseQueryDate(r, key)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}
	return t, true
}

// int64Param reads an optional integer query parameter
func int64Param(w http.ResponseWriter, r *http.Request, key string) (*int64, bool) {
	v, err := httputil.ParseQueryInt64(r, key)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return nil, false
	}
	return v, true
}

func pageParams(w http.ResponseWriter, r *http.Request) (httputil.Page, bool) {
	page, err := httputil.ParsePage(r, defaultPageSize, maxPageSize)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return httputil.Page{}, false
	}
	return page, true
}
