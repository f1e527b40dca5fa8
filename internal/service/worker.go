package service

import (
	"context"
	"time"

	"classroom/pkg/logger"

	"go.uber.org/zap"
)

// Sweeper is a store that can drop its expired entries.
type Sweeper interface {
	Sweep() int
}

// SweepWorker periodically purges expired refresh tokens from an in-process
// allow-list. Redis and etcd expire keys on their own and need no worker.
type SweepWorker struct {
	target   Sweeper
	interval time.Duration
}

func NewSweepWorker(target Sweeper, interval time.Duration) *SweepWorker {
	return &SweepWorker{target: target, interval: interval}
}

func (w *SweepWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	logger.Info("sweep worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			logger.Info("sweep worker stopped")
			return
		case <-ticker.C:
			if n := w.target.Sweep(); n > 0 {
				logger.Debug("expired refresh tokens removed", zap.Int("count", n))
			}
		}
	}
}
