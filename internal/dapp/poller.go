package dapp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Mohsinsiddi/presalectl/internal/config"
)

// Poller calls refresh once immediately and then every interval until
// stopped. A failed refresh is logged and retried on the next tick.
type Poller struct {
	interval time.Duration
	refresh  func(context.Context) error
	logger   *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a stopped poller. A non-positive interval means
// config.DefaultPollInterval.
func NewPoller(interval time.Duration, refresh func(context.Context) error, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{interval: interval, refresh: refresh, logger: logger}
}

// Start begins polling. It is a no-op if already running. The loop ends
// when Stop is called or ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	go p.loop(ctx, done)
}

// Stop cancels future ticks and any in-flight refresh, then waits for the
// loop to exit. Safe to call when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Running reports whether the loop is active.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	p.tick(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if err := p.refresh(ctx); err != nil && ctx.Err() == nil {
		p.logger.Warn("balance refresh failed, retrying next tick", "error", err, "interval", p.interval)
	}
}
