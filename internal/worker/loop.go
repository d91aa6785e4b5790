package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/baharkarakas/p2pgate/internal/metrics"
)

// TickFunc does one unit of recurring work and returns the delay before the
// next run.
type TickFunc func(ctx context.Context) (time.Duration, error)

// Status is the health snapshot of a Loop.
type Status struct {
	Name      string     `json:"name"`
	Healthy   bool       `json:"healthy"`
	LastTick  *time.Time `json:"lastTick"`
	LastError *string    `json:"lastError"`
}

// Loop runs a TickFunc until its context ends. Ticks never overlap; a failed
// tick is logged and the loop keeps going.
type Loop struct {
	name     string
	tick     TickFunc
	fallback time.Duration

	mu       sync.RWMutex
	running  bool
	lastTick time.Time
	lastErr  error
	delay    time.Duration
}

// NewLoop creates a loop. fallback is used when a tick returns a
// non-positive delay, including failed ticks.
func NewLoop(name string, fallback time.Duration, tick TickFunc) *Loop {
	if fallback <= 0 {
		fallback = 5 * time.Second
	}
	return &Loop{name: name, tick: tick, fallback: fallback, delay: fallback}
}

func (l *Loop) Name() string { return l.name }

// Run blocks until ctx is done.
func (l *Loop) Run(ctx context.Context) {
	l.mu.Lock()
	l.running = true
	l.mu.Unlock()
	defer func() {
		l.mu.Lock()
		l.running = false
		l.mu.Unlock()
	}()

	log := slog.With("loop", l.name)
	log.Info("loop started")
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("loop stopped")
			return
		case <-timer.C:
		}
		timer.Reset(l.RunOnce(ctx))
	}
}

// RunOnce executes a single tick, records its outcome and returns the delay
// before the next one.
func (l *Loop) RunOnce(ctx context.Context) time.Duration {
	next, err := l.safeTick(ctx)
	if next <= 0 {
		next = l.fallback
	}

	l.mu.Lock()
	l.delay = next
	if err != nil {
		l.lastErr = err
	} else {
		l.lastErr = nil
		l.lastTick = time.Now()
	}
	l.mu.Unlock()

	if err != nil {
		metrics.LoopTickFailures.WithLabelValues(l.name).Inc()
		slog.Error("loop tick failed", "loop", l.name, "err", err)
	}
	return next
}

func (l *Loop) safeTick(ctx context.Context) (next time.Duration, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = panicError{rec}
		}
	}()
	return l.tick(ctx)
}

type panicError struct{ v any }

func (p panicError) Error() string { return "panic in tick: " + slog.AnyValue(p.v).String() }

// Status reports healthy while the loop runs and its last success is
// younger than two periods.
func (l *Loop) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s := Status{Name: l.name}
	if !l.lastTick.IsZero() {
		t := l.lastTick
		s.LastTick = &t
	}
	if l.lastErr != nil {
		msg := l.lastErr.Error()
		s.LastError = &msg
	}
	s.Healthy = l.running && !l.lastTick.IsZero() && time.Since(l.lastTick) < 2*l.delay
	return s
}
