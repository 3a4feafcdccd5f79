// Package costs tracks recurring costs attributed to clients.
//
// A CostItem is a catalogue entry with a default monthly amount. A client subscribes to cost
// items, optionally overriding the amount. MaterializeMonth turns every active subscription
// covering a month into one EXPENSE ledger entry keyed by (subscription, month), so running
// it twice for the same month creates nothing new.
package costs
