// Package announcer encodes route-control commands on the output channel
// consumed by the BGP speaker. Each command is one UTF-8 text line, written
// atomically and flushed before anything else happens: the speaker parses
// the channel line by line, and any buffering here would add directly to
// the node's failover latency.
package announcer
