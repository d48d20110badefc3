package lifecycle_test

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/healthbridge/internal/lifecycle"
	"github.com/angeloszaimis/healthbridge/internal/metrics"
)

// fakeCoord counts ticks and drains, with optional scripted failures and
// an optional block to simulate a drain that never finishes.
type fakeCoord struct {
	mu         sync.Mutex
	ticks      int
	drains     int
	tickErr    error
	drainErr   error
	drainBlock chan struct{}
}

func (c *fakeCoord) Tick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return c.tickErr
}

func (c *fakeCoord) Drain() error {
	if c.drainBlock != nil {
		<-c.drainBlock
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.drains++
	return c.drainErr
}

func (c *fakeCoord) tickCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

func (c *fakeCoord) drainCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.drains
}

const (
	interval = time.Second
	grace    = 2 * time.Second
)

var _ = Describe("Runner", func() {
	var (
		coord  *fakeCoord
		clock  clockwork.FakeClock
		mets   *metrics.Metrics
		log    *slog.Logger
		ctx    context.Context
		cancel context.CancelFunc
		result chan error
	)

	BeforeEach(func() {
		coord = &fakeCoord{}
		clock = clockwork.NewFakeClock()
		mets = metrics.New()
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelError,
		}))
		ctx, cancel = context.WithCancel(context.Background())
		result = make(chan error, 1)
	})

	AfterEach(func() {
		cancel()
	})

	start := func() {
		r := lifecycle.New(coord, clock, interval, grace, mets, log)
		go func() {
			result <- r.Run(ctx)
		}()
		// Wait for the loop to reach its first inter-tick sleep.
		clock.BlockUntil(1)
	}

	It("ticks the coordinator once per interval", func() {
		start()

		clock.Advance(interval)
		Eventually(coord.tickCount).Should(Equal(1))

		clock.BlockUntil(1)
		clock.Advance(interval)
		Eventually(coord.tickCount).Should(Equal(2))

		cancel()
		Eventually(result).Should(Receive(BeNil()))
	})

	It("drains and exits cleanly on termination, without further ticks", func() {
		start()

		cancel()

		Eventually(result).Should(Receive(BeNil()))
		Expect(coord.drainCount()).To(Equal(1))
		Expect(coord.tickCount()).To(Equal(0))
		Expect(mets.Snapshot().Phase).To(Equal("STOPPED"))
	})

	It("interrupts the inter-tick sleep instead of waiting it out", func() {
		start()

		// No clock advance at all: cancellation alone must wake the loop.
		cancel()
		Eventually(result).Should(Receive(BeNil()))
	})

	It("treats a tick failure as fatal after one best-effort drain pass", func() {
		coord.tickErr = context.DeadlineExceeded

		start()
		clock.Advance(interval)

		var err error
		Eventually(result).Should(Receive(&err))
		Expect(err).To(MatchError(context.DeadlineExceeded))
		Expect(coord.drainCount()).To(Equal(1))
		Expect(mets.Snapshot().Phase).To(Equal("STOPPED"))
	})

	It("gives up on a drain that exceeds the grace period", func() {
		block := make(chan struct{})
		coord.drainBlock = block
		DeferCleanup(func() {
			close(block)
		})

		start()
		cancel()

		// Two sleepers now: the abandoned tick timer and the grace timer.
		clock.BlockUntil(2)
		clock.Advance(grace)

		var err error
		Eventually(result).Should(Receive(&err))
		Expect(err).To(MatchError(lifecycle.ErrDrainTimeout))
	})

	It("reports an incomplete drain", func() {
		coord.drainErr = context.DeadlineExceeded

		start()
		cancel()

		var err error
		Eventually(result).Should(Receive(&err))
		Expect(err).To(MatchError(context.DeadlineExceeded))
	})
})
