// Package metrics tracks what the bridge has done since startup: probe
// outcomes per target, state transitions, and emitted route commands.
// All updates happen on the tick loop, so a mutex-guarded store is enough;
// snapshots are served as JSON by the optional status endpoint.
package metrics
