package fx

import (
	"context"
	"time"

	"github.com/bancagt/backoffice/internal/logging"
)

// Refresher re-pulls official rates on a fixed interval for as long as the
// process runs. A failed pull is logged and retried at the next tick; the
// stored rates keep serving in between.
type Refresher struct {
	service  *Service
	interval time.Duration
	done     chan struct{}
	stopped  chan struct{}
	started  bool
}

func NewRefresher(service *Service, interval time.Duration) *Refresher {
	return &Refresher{
		service:  service,
		interval: interval,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

func (r *Refresher) Start(ctx context.Context) {
	r.started = true
	go r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) {
	defer close(r.stopped)

	log := logging.FromContext(ctx)
	log.Info("rate refresher started", "interval", r.interval.String())

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.service.Refresh(ctx); err != nil {
				log.Warn("scheduled rate refresh failed", "error", err)
			}
		case <-r.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop signals the loop and waits for it to exit. Stopping a refresher
// that was never started is a no-op, there is nothing to wait for.
func (r *Refresher) Stop() {
	if !r.started {
		return
	}
	close(r.done)
	<-r.stopped
}
