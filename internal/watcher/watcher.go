// Package watcher moves overdue transactions to EXPIRED on a fixed period.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/baharkarakas/p2pgate/internal/lease"
)

type Expirer interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

type Watcher struct {
	exp      Expirer
	lease    lease.Lease
	interval time.Duration
	clock    func() time.Time
}

func New(exp Expirer, l lease.Lease, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if l == nil {
		l = &lease.Local{}
	}
	return &Watcher{exp: exp, lease: l, interval: interval, clock: time.Now}
}

// WithClock replaces the time source.
func (w *Watcher) WithClock(clock func() time.Time) *Watcher {
	w.clock = clock
	return w
}

// Tick runs one sweep and returns the fixed period. When another replica
// holds the lease the sweep is skipped.
func (w *Watcher) Tick(ctx context.Context) (time.Duration, error) {
	release, ok, err := w.lease.Acquire(ctx, w.interval)
	if err != nil {
		return w.interval, fmt.Errorf("watcher lease: %w", err)
	}
	if !ok {
		slog.Debug("expiry sweep skipped, lease held elsewhere")
		return w.interval, nil
	}
	defer release()

	n, err := w.exp.ExpireDue(ctx, w.clock())
	if err != nil {
		return w.interval, err
	}
	if n > 0 {
		slog.Info("transactions expired", "count", n)
	}
	return w.interval, nil
}
