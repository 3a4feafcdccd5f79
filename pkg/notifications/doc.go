// Package notifications stores in-app notifications and delivers them to external channels.
//
// Every notification is written to the notifications table and listed by the dashboard.
// Notifications flagged SendEmail or SendWhatsApp and targeting a client are also handed to
// the Dispatcher, which delivers them in the background:
//
//   - email through the Resend HTTP API
//   - WhatsApp through an HTTP gateway accepting {"to", "message"}
//
// A channel without credentials is disabled. Failed sends are retried with exponential
// backoff; a delivery that still fails is logged and counted, never surfaced to the
// operation that raised the notification.
package notifications
