// Package logger provides structured logging on stderr with configurable
// log levels. It wraps the standard log/slog package; stderr is mandatory
// because the process's stdout carries the route-control protocol.
package logger
