package announcer

import (
	"fmt"
	"io"
	"log/slog"
	"net/netip"
)

// flusher is implemented by buffered writers. The process normally writes
// straight to stdout, which needs no flushing, but a buffered writer must
// be drained per line to honour the flush-immediate contract.
type flusher interface {
	Flush() error
}

// Announcer is the single writer of the route-control channel. Writes are
// synchronous and ordered; there is no other writer, so no locking beyond
// that discipline is needed.
type Announcer struct {
	w   io.Writer
	log *slog.Logger
}

// New creates an Announcer writing commands to w.
func New(w io.Writer, log *slog.Logger) *Announcer {
	return &Announcer{w: w, log: log}
}

// Announce emits one announce line for prefix. A write failure means the
// speaker side of the channel is gone; the caller must treat it as fatal.
func (a *Announcer) Announce(prefix netip.Prefix) error {
	return a.emit("announce", prefix)
}

// Withdraw emits one withdraw line for prefix.
func (a *Announcer) Withdraw(prefix netip.Prefix) error {
	return a.emit("withdraw", prefix)
}

func (a *Announcer) emit(verb string, prefix netip.Prefix) error {
	line := fmt.Sprintf("%s route %s next-hop self\n", verb, prefix)

	// One Write call per line keeps the line atomic on the pipe.
	n, err := io.WriteString(a.w, line)
	if err == nil && n < len(line) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return fmt.Errorf("writing %s for %s to control channel: %w", verb, prefix, err)
	}

	if f, ok := a.w.(flusher); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("flushing %s for %s to control channel: %w", verb, prefix, err)
		}
	}

	a.log.Info("route command emitted",
		slog.String("command", verb),
		slog.String("prefix", prefix.String()))

	return nil
}
