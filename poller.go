package launchagent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"vawter.tech/stopper"
)

// Poller periodically calls Refresh on a Refresher.
//
// It is either stopped or running with an interval. Ticks run one at a time on
// the poller's goroutine, so two ticks never refresh concurrently. Stopping only
// prevents future ticks; a refresh already in flight is allowed to finish.
// The poller holds a plain reference to the refresher and does not manage its lifetime.
type Poller struct {
	refresher Refresher

	mu       sync.Mutex
	interval time.Duration
	sctx     *stopper.Context
	reset    chan time.Duration
}

// NewPoller creates a stopped Poller. A non-positive interval selects DefaultPollInterval.
func NewPoller(r Refresher, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		refresher: r,
		interval:  interval,
	}
}

// Start begins polling. It is a no-op while already running. Cancelling ctx stops the poller.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.runningLocked() {
		return
	}

	sctx := stopper.WithContext(ctx)
	reset := make(chan time.Duration, 1)
	interval := p.interval
	refreshCtx := context.WithoutCancel(ctx)

	p.sctx = sctx
	p.reset = reset

	sctx.Go(func(sctx *stopper.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-sctx.Stopping():
				return nil

			case d := <-reset:
				ticker.Reset(d)

			case <-ticker.C:
				if sctx.IsStopping() {
					return nil
				}
				if err := p.refresher.Refresh(refreshCtx); err != nil {
					log.Warn().Err(err).Msg("scheduled refresh failed")
				}
			}
		}
	})
}

// Stop cancels future ticks. It is idempotent and does not wait for an in-flight refresh.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sctx == nil {
		return
	}
	p.sctx.Stop(0)
	p.sctx = nil
	p.reset = nil
}

// SetInterval changes the polling interval. While running, the schedule is
// restarted with the new interval from the poller's goroutine.
func (p *Poller) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", d)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.interval = d
	if !p.runningLocked() {
		return nil
	}

	// Replace any pending change that the loop has not picked up yet.
	select {
	case <-p.reset:
	default:
	}
	p.reset <- d
	return nil
}

// Interval returns the configured interval
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// IsRunning reports whether the poller is scheduled
func (p *Poller) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningLocked()
}

func (p *Poller) runningLocked() bool {
	return p.sctx != nil && !p.sctx.IsStopping()
}
