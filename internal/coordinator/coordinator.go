package coordinator

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angeloszaimis/healthbridge/internal/health"
	"github.com/angeloszaimis/healthbridge/internal/metrics"
)

// Prober produces one health verdict for a probe target.
type Prober interface {
	Probe(ctx context.Context, target string) health.Verdict
}

// Emitter writes route commands to the control channel. Errors from it are
// fatal to the process and must be propagated, never swallowed.
type Emitter interface {
	Announce(prefix netip.Prefix) error
	Withdraw(prefix netip.Prefix) error
}

// Address pairs an advertised prefix with the probe target its health is
// derived from. Immutable once loaded.
type Address struct {
	Prefix netip.Prefix
	Target string
}

type entry struct {
	addr    Address
	tracker *health.Tracker

	// announced tracks the last state actually written to the control
	// channel. A withdraw is only owed for an address that was announced;
	// an address that went Unknown -> Unhealthy has nothing upstream to
	// retract, so no line is emitted for it.
	announced bool
}

// Coordinator evaluates every advertised address once per tick, in the
// configured order. All state lives here and is mutated only during Tick
// or the final Drain; the tick loop is the sole caller, so no locking is
// needed around the entries.
type Coordinator struct {
	entries []*entry
	prober  Prober
	emitter Emitter
	mets    *metrics.Metrics
	log     *slog.Logger
}

// New builds a Coordinator with one tracker per address, all starting in
// the fail-safe Unknown state.
func New(
	addrs []Address,
	rise, fall int,
	prober Prober,
	emitter Emitter,
	mets *metrics.Metrics,
	log *slog.Logger,
) *Coordinator {
	c := &Coordinator{
		prober:  prober,
		emitter: emitter,
		mets:    mets,
		log:     log,
	}

	for _, addr := range addrs {
		c.entries = append(c.entries, &entry{
			addr:    addr,
			tracker: health.NewTracker(rise, fall),
		})
		mets.SetAddressState(addr.Prefix.String(), health.StateUnknown.String())
	}

	return c
}

// Tick runs one full evaluation: probe every distinct target, feed each
// address's tracker, and emit the resulting commands in configured order.
// The only error it can return is an emitter failure, which the caller
// treats as fatal.
func (c *Coordinator) Tick(ctx context.Context) error {
	verdicts := c.probeAll(ctx)

	for _, e := range c.entries {
		verdict, ok := verdicts[e.addr.Target]
		if !ok {
			continue
		}

		switch e.tracker.Observe(verdict) {
		case health.BecameHealthy:
			c.log.Info("address became healthy",
				slog.String("prefix", e.addr.Prefix.String()))

			if err := c.emitter.Announce(e.addr.Prefix); err != nil {
				return err
			}
			e.announced = true
			c.mets.RecordTransition(e.addr.Prefix.String(), health.StateHealthy.String(), true, false)

		case health.BecameUnhealthy:
			c.log.Warn("address became unhealthy",
				slog.String("prefix", e.addr.Prefix.String()),
				slog.String("reason", verdict.Reason))

			withdrew := false
			if e.announced {
				if err := c.emitter.Withdraw(e.addr.Prefix); err != nil {
					return err
				}
				e.announced = false
				withdrew = true
			}
			c.mets.RecordTransition(e.addr.Prefix.String(), health.StateUnhealthy.String(), false, withdrew)
		}
	}

	return nil
}

// Drain forces every address to Unhealthy and withdraws each one that was
// announced, in configured order. It keeps going past emitter failures so
// the withdrawal pass is best-effort, returning the first failure.
func (c *Coordinator) Drain() error {
	now := time.Now()

	var firstErr error
	for _, e := range c.entries {
		e.tracker.ForceUnhealthy(now)
		c.mets.SetAddressState(e.addr.Prefix.String(), health.StateUnhealthy.String())

		if !e.announced {
			continue
		}

		if err := c.emitter.Withdraw(e.addr.Prefix); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		e.announced = false
		c.mets.RecordTransition(e.addr.Prefix.String(), health.StateUnhealthy.String(), false, true)
	}

	return firstErr
}

// probeAll obtains one verdict per distinct probe target. A target shared
// by several addresses is probed once and the verdict reused, to avoid
// redundant load on the health endpoint. With several targets the probes
// fan out concurrently, each bounded by the prober's own timeout, and all
// of them rendezvous here before any transition is computed.
func (c *Coordinator) probeAll(ctx context.Context) map[string]health.Verdict {
	var targets []string
	seen := make(map[string]bool)
	for _, e := range c.entries {
		if !seen[e.addr.Target] {
			seen[e.addr.Target] = true
			targets = append(targets, e.addr.Target)
		}
	}

	verdicts := make(map[string]health.Verdict, len(targets))

	if len(targets) == 1 {
		verdicts[targets[0]] = c.prober.Probe(ctx, targets[0])
	} else {
		var mu sync.Mutex
		g, probeCtx := errgroup.WithContext(ctx)

		for _, target := range targets {
			target := target
			g.Go(func() error {
				verdict := c.prober.Probe(probeCtx, target)
				mu.Lock()
				verdicts[target] = verdict
				mu.Unlock()
				return nil
			})
		}

		// Probes never return errors, only verdicts; Wait is the
		// rendezvous point.
		_ = g.Wait()
	}

	for target, verdict := range verdicts {
		c.mets.RecordProbe(target, verdict.Healthy, verdict.Reason)
	}

	return verdicts
}

// AddressState pairs a prefix with its current stable state.
type AddressState struct {
	Prefix netip.Prefix
	State  health.State
}

// States reports the stable state of every address, in configured order.
func (c *Coordinator) States() []AddressState {
	states := make([]AddressState, 0, len(c.entries))
	for _, e := range c.entries {
		states = append(states, AddressState{
			Prefix: e.addr.Prefix,
			State:  e.tracker.State(),
		})
	}
	return states
}
