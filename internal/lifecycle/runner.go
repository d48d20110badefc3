package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/angeloszaimis/healthbridge/internal/metrics"
)

// Phase is the coarse state of the process itself.
type Phase int

const (
	PhaseStarting Phase = iota
	PhaseRunning
	PhaseDraining
	PhaseStopped
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "STARTING"
	case PhaseRunning:
		return "RUNNING"
	case PhaseDraining:
		return "DRAINING"
	case PhaseStopped:
		return "STOPPED"
	default:
		return "INVALID"
	}
}

// ErrDrainTimeout means the grace period elapsed before every withdrawal
// was flushed. The process still exits promptly, but non-zero, so the
// supervisor can tell a clean drain from a truncated one.
var ErrDrainTimeout = errors.New("drain grace period elapsed before all withdrawals were flushed")

// Coordinator is the per-tick evaluation driven by the Runner.
type Coordinator interface {
	Tick(ctx context.Context) error
	Drain() error
}

// Runner owns the polling loop's timing. The clock is injected so tests
// can drive ticks and the grace timer deterministically.
type Runner struct {
	coord    Coordinator
	clock    clockwork.Clock
	interval time.Duration
	grace    time.Duration
	mets     *metrics.Metrics
	log      *slog.Logger
}

// New creates a Runner ticking the coordinator every interval, with the
// given drain grace period.
func New(
	coord Coordinator,
	clock clockwork.Clock,
	interval, grace time.Duration,
	mets *metrics.Metrics,
	log *slog.Logger,
) *Runner {
	return &Runner{
		coord:    coord,
		clock:    clock,
		interval: interval,
		grace:    grace,
		mets:     mets,
		log:      log,
	}
}

// Run blocks until ctx is cancelled (the termination request) or a tick
// reports a fatal control-channel failure. It returns nil only for a
// clean, complete drain; the caller maps any error to a non-zero exit.
func (r *Runner) Run(ctx context.Context) error {
	r.setPhase(PhaseStarting)
	r.log.Info("health bridge starting",
		slog.Duration("interval", r.interval),
		slog.Duration("grace", r.grace))

	r.setPhase(PhaseRunning)

	for {
		select {
		case <-ctx.Done():
			return r.drain()

		case <-r.clock.After(r.interval):
			// A termination request that lands in the same instant as
			// the tick deadline wins: drain, don't probe.
			if ctx.Err() != nil {
				return r.drain()
			}

			if err := r.coord.Tick(ctx); err != nil {
				r.log.Error("control channel failed, terminating",
					slog.Any("err", err))

				// One best-effort withdraw pass; the channel is likely
				// gone, so ignore its outcome and report the original
				// failure.
				r.setPhase(PhaseDraining)
				_ = r.coord.Drain()
				r.setPhase(PhaseStopped)
				return err
			}
		}
	}
}

// drain withdraws every announced route within the grace period. The
// grace period is a hard timeout: if it elapses, the process gives up on
// the remaining withdrawals and exits non-zero rather than hanging.
func (r *Runner) drain() error {
	r.setPhase(PhaseDraining)
	r.log.Info("termination requested, draining announced routes")

	done := make(chan error, 1)
	go func() {
		done <- r.coord.Drain()
	}()

	var err error
	select {
	case err = <-done:
	case <-r.clock.After(r.grace):
		err = ErrDrainTimeout
	}

	r.setPhase(PhaseStopped)
	if err != nil {
		r.log.Error("drain incomplete", slog.Any("err", err))
	} else {
		r.log.Info("drain complete")
	}

	return err
}

func (r *Runner) setPhase(p Phase) {
	r.mets.SetPhase(p.String())
	r.log.Debug("phase change", slog.String("phase", p.String()))
}
