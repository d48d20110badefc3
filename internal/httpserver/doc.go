// Package httpserver wraps http.Server for the optional local status
// endpoint, with listen-address validation and graceful shutdown. The
// endpoint is diagnostics only; the bridge's real output is the route
// control channel on stdout.
package httpserver
