package services

import (
	"context"
	"time"

	"github.com/google/logger"
)

// RunSync calls Sync every interval until ctx is done. Failures only flip the
// status to offline; the next tick tries again.
func (s *LotteryService) RunSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var failing bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			err := s.Sync(ctx)
			switch {
			case err != nil && !failing:
				logger.Warningf("Sync failed, working from local state: %v", err)
				failing = true
			case err == nil && failing:
				logger.Info("Sync recovered")
				failing = false
			}
		}
	}
}
