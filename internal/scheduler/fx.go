package scheduler

import (
	"context"

	"github.com/go-co-op/gocron/v2"
	"github.com/smallbiznis/donora/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(NewRunner),
)

// NewRunner registers RunOnce as a singleton gocron duration job.
func NewRunner(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) error {
	if !cfg.SchedulerEnabled {
		sched.log.Info("scheduler disabled")
		return nil
	}

	runner, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err = runner.NewJob(
		gocron.DurationJob(sched.cfg.RunInterval),
		gocron.NewTask(func() {
			if err := sched.RunOnce(ctx); err != nil {
				sched.log.Warn("scheduler run failed", zap.Error(err))
			}
		}),
		gocron.WithName("donora.scheduler"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runner.Start()
			sched.log.Info("scheduler started", zap.Duration("interval", sched.cfg.RunInterval))
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return runner.Shutdown()
		},
	})
	return nil
}
