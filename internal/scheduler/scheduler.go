package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/delivery"
	obscontext "github.com/smallbiznis/donora/internal/observability/context"
	obsmetrics "github.com/smallbiznis/donora/internal/observability/metrics"
	"github.com/smallbiznis/donora/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const jobDispatchDrops = "dispatch_drops"

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Campaigns campaigndomain.Repository
	Publisher delivery.Publisher
	AuditSvc  auditdomain.Service
	Locker    *ratelimit.Locker `optional:"true"`
	Metrics   *obsmetrics.Metrics `optional:"true"`
	Config    Config              `optional:"true"`
}

type Scheduler struct {
	db        *gorm.DB
	log       *zap.Logger
	cfg       Config
	genID     *snowflake.Node
	clock     clock.Clock
	campaigns campaigndomain.Repository
	publisher delivery.Publisher
	auditSvc  auditdomain.Service
	locker    *ratelimit.Locker
	metrics   *obsmetrics.Metrics
	lastRunAt time.Time
}

type auditEvent struct {
	OrgID      snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	Metadata   map[string]any
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.GenID == nil || p.Clock == nil || p.Campaigns == nil || p.Publisher == nil || p.AuditSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:        p.DB,
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		genID:     p.GenID,
		clock:     p.Clock,
		campaigns: p.Campaigns,
		publisher: p.Publisher,
		auditSvc:  p.AuditSvc,
		locker:    p.Locker,
		metrics:   p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	schedMetrics := obsmetrics.Scheduler()

	release, acquired := s.acquireJobLock(parent, name)
	if !acquired {
		schedMetrics.IncBatchDeferred(name, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		s.log.Debug("scheduler.job.skipped", zap.String("job", name), zap.String("reason", "lock_held"))
		return nil
	}
	defer release()

	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout; the next run picks up the rest
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// acquireJobLock single-flights a job across scheduler replicas. Without a
// redis locker, or when redis errors, the run proceeds and row locks are the
// only guard.
func (s *Scheduler) acquireJobLock(ctx context.Context, name string) (func(), bool) {
	noop := func() {}
	if s.locker == nil {
		return noop, true
	}
	key := ratelimit.SchedulerLockKey(name)
	token, ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		s.log.Warn("scheduler lock unavailable", zap.String("job", name), zap.Error(err))
		return noop, true
	}
	if !ok {
		return noop, false
	}
	return func() {
		if err := s.locker.Release(context.Background(), key, token); err != nil {
			s.log.Warn("scheduler lock release failed", zap.String("job", name), zap.Error(err))
		}
	}, true
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	now := s.clock.Now()
	if !s.lastRunAt.IsZero() {
		if lag := now.Sub(s.lastRunAt.Add(s.cfg.RunInterval)); lag > 0 {
			obsmetrics.Scheduler().ObserveRunLoopLag(lag)
		}
	}
	s.lastRunAt = now

	var err error
	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{jobDispatchDrops, s.isJobEnabled(jobDispatchDrops), func(ctx context.Context) error {
			return s.runJob(ctx, jobDispatchDrops, s.cfg.BatchSize, s.cfg.JobTimeout, s.DispatchDropsJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// empty means every job runs
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// emitAuditEvent records outside any dispatch transaction.
func (s *Scheduler) emitAuditEvent(ctx context.Context, event auditEvent) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, nil, auditdomain.Entry{
		OrgID:      event.OrgID,
		Action:     event.Action,
		TargetType: event.TargetType,
		TargetID:   event.TargetID,
		Metadata:   event.Metadata,
	})
	if err != nil {
		s.logger(ctx).Warn("scheduler audit failed", zap.String("action", event.Action), zap.Error(err))
	}
}
