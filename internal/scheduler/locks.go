package scheduler

import (
	"context"
	"time"

	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	obsmetrics "github.com/smallbiznis/donora/internal/observability/metrics"
	"gorm.io/gorm"
)

// claimDueDrops locks up to BatchSize due drops on tx. On postgres the rows
// are taken with FOR UPDATE SKIP LOCKED so concurrent runs split the work.
func (s *Scheduler) claimDueDrops(ctx context.Context, tx *gorm.DB, now time.Time) ([]campaigndomain.ScheduledDrop, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	schedMetrics := obsmetrics.Scheduler()
	lockStart := time.Now()
	drops, err := s.campaigns.ClaimDueDrops(claimCtx, tx, now, s.cfg.BatchSize)
	schedMetrics.ObserveDBLockWait(obsmetrics.LockResourceDueDrops, time.Since(lockStart))
	if err != nil {
		return nil, err
	}
	return drops, nil
}
