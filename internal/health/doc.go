// Package health implements the debounced per-address health state machine.
// It converts a stream of raw probe verdicts into a stable state using
// consecutive-result thresholds, so that a single flapping probe never
// translates into route churn upstream.
package health
