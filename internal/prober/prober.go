package prober

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/angeloszaimis/healthbridge/internal/health"
)

// maxDrainBytes bounds how much of a probe response body is read before
// the connection is released for reuse.
const maxDrainBytes = 4 << 10

// Prober issues one GET against a health endpoint per call, with a hard
// timeout. A slow or hung downstream can never stall a tick beyond that
// timeout.
type Prober struct {
	client  *http.Client
	timeout time.Duration
	log     *slog.Logger
}

// New creates a Prober with the given per-probe timeout.
func New(timeout time.Duration, log *slog.Logger) *Prober {
	return &Prober{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
		log:     log,
	}
}

// Probe performs one synchronous health check against target and classifies
// the outcome. Healthy requires a successful connection and a 2xx status;
// a timeout, connection error, or any other status is unhealthy, with the
// detail preserved for logging. Probe errors are never fatal: they simply
// count toward the fall threshold upstream.
func (p *Prober) Probe(ctx context.Context, target string) health.Verdict {
	checkedAt := time.Now()

	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, target, nil)
	if err != nil {
		return p.unhealthy(target, checkedAt, fmt.Sprintf("building request: %v", err))
	}

	res, err := p.client.Do(req)
	if err != nil {
		return p.unhealthy(target, checkedAt, fmt.Sprintf("request failed: %v", err))
	}
	defer res.Body.Close()

	io.Copy(io.Discard, io.LimitReader(res.Body, maxDrainBytes))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return p.unhealthy(target, checkedAt, fmt.Sprintf("non-success status %d", res.StatusCode))
	}

	return health.Verdict{Healthy: true, CheckedAt: checkedAt}
}

func (p *Prober) unhealthy(target string, checkedAt time.Time, reason string) health.Verdict {
	p.log.Debug("probe failed",
		slog.String("target", target),
		slog.String("reason", reason))

	return health.Verdict{
		Healthy:   false,
		CheckedAt: checkedAt,
		Reason:    reason,
	}
}
