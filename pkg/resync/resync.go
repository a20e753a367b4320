// Package resync periodically re-reads persisted state as a backstop for
// missed change notifications. The notification bus and the store watcher are
// the primary mechanisms; this loop only bounds how stale a surface can get.
package resync

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DefaultInterval bounds staleness to a couple of seconds.
const DefaultInterval = 2 * time.Second

// Loop invokes registered reload funcs on a fixed cadence. Reloads must be
// idempotent: they re-read current state rather than apply deltas, so running
// one concurrently with a mutation is harmless.
type Loop struct {
	interval time.Duration
	reloads  []func()
	log      *zap.Logger
}

func New(interval time.Duration, log *zap.Logger) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Loop{interval: interval, log: log}
}

// Register adds a reload func. Not safe to call once Run has started.
func (l *Loop) Register(reload func()) {
	l.reloads = append(l.reloads, reload)
}

// Run ticks until ctx ends, invoking every reload each tick.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.log.Debug("resync loop started", zap.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("resync loop stopped")
			return
		case <-ticker.C:
			for _, reload := range l.reloads {
				reload()
			}
		}
	}
}
