// Package dashboard stores the calendar events and sticky notes shown on the
// organization dashboard.
//
// Events are listed by time range: an event is returned when it overlaps the
// requested window. Notes are listed pinned first, then most recently updated.
package dashboard
