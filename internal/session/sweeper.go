package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper evicts idle sessions from a Registry on a fixed interval.
type Sweeper struct {
	Registry *Registry
	MaxIdle  time.Duration
	Interval time.Duration
	Log      *zap.Logger
	// OnEvict, when set, receives the live session count after each sweep
	// that evicted something.
	OnEvict func(remaining int)
}

func (w *Sweeper) Run(ctx context.Context) {
	interval := w.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w.Sweep(now)
		}
	}
}

// Sweep runs one eviction pass as of now and returns how many sessions went.
func (w *Sweeper) Sweep(now time.Time) int {
	if w.MaxIdle <= 0 {
		return 0
	}
	evicted := w.Registry.EvictIdle(now.Add(-w.MaxIdle))
	if len(evicted) == 0 {
		return 0
	}

	remaining := w.Registry.Len()
	if w.Log != nil {
		w.Log.Info("evicted idle sessions", zap.Int("evicted", len(evicted)), zap.Int("remaining", remaining))
	}
	if w.OnEvict != nil {
		w.OnEvict(remaining)
	}
	return len(evicted)
}
