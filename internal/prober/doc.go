// Package prober performs single-shot HTTP health probes against the local
// service. One probe per tick, no internal retries; the fixed tick interval
// is the retry mechanism.
package prober
