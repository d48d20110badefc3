// Package coordinator owns the per-address health state and drives one
// evaluation of every advertised address per tick. Distinct probe targets
// are probed concurrently but always rendezvous before any transition is
// computed, so the emitted command stream stays consistent with tick
// boundaries.
package coordinator
