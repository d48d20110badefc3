// Package config loads and validates the bridge configuration from a YAML
// file and environment variables. Every fatal configuration error is
// caught here, before the first tick; the bridge never starts partially
// configured.
package config
