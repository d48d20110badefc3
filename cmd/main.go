package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/angeloszaimis/healthbridge/config"
	"github.com/angeloszaimis/healthbridge/internal/announcer"
	"github.com/angeloszaimis/healthbridge/internal/coordinator"
	"github.com/angeloszaimis/healthbridge/internal/httpserver"
	"github.com/angeloszaimis/healthbridge/internal/lifecycle"
	"github.com/angeloszaimis/healthbridge/internal/metrics"
	"github.com/angeloszaimis/healthbridge/internal/prober"
	"github.com/angeloszaimis/healthbridge/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		return 1
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Logging.Environment)

	// Without this, an EPIPE on stdout kills the process via the default
	// SIGPIPE disposition before the write error ever reaches the
	// announcer's fatal-error path.
	signal.Ignore(syscall.SIGPIPE)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mets := metrics.New()
	prb := prober.New(cfg.Timeout(), log)
	ann := announcer.New(os.Stdout, log)

	coord := coordinator.New(
		buildAddresses(cfg),
		cfg.Probe.Rise,
		cfg.Probe.Fall,
		prb,
		ann,
		mets,
		log,
	)

	if cfg.Status.Address != "" {
		srv, err := statusServer(cfg.Status.Address, mets)
		if err != nil {
			log.Error("failed to create status server", slog.Any("err", err))
			return 1
		}

		go func() {
			if err := srv.Start(); err != nil {
				log.Error("status server failed", slog.Any("err", err))
			}
		}()
		defer func() {
			if err := srv.Shutdown(context.Background()); err != nil {
				log.Warn("status server shutdown failed", slog.Any("err", err))
			}
		}()
	}

	runner := lifecycle.New(coord, clockwork.NewRealClock(), cfg.Interval(), cfg.GracePeriod(), mets, log)

	if err := runner.Run(ctx); err != nil {
		return 1
	}
	return 0
}

// buildAddresses converts validated config entries into coordinator
// addresses, resolving each one's probe target.
func buildAddresses(cfg *config.Config) []coordinator.Address {
	addrs := make([]coordinator.Address, 0, len(cfg.Addresses))
	for _, a := range cfg.Addresses {
		addrs = append(addrs, coordinator.Address{
			Prefix: netip.MustParsePrefix(a.Prefix),
			Target: a.Target(cfg.Probe.URL),
		})
	}
	return addrs
}

func statusServer(addr string, mets *metrics.Metrics) (*httpserver.Server, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", mets.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return httpserver.New(addr, mux)
}
