// Package lifecycle drives the bridge's tick loop through its phases:
// Starting, Running, Draining, Stopped. A termination request interrupts
// the inter-tick sleep immediately and always wins over a pending tick;
// the drain then withdraws every announced route within a hard grace
// period before the process exits.
package lifecycle
