package cloudmetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/donora/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("cloud.metrics",
	fx.Provide(fx.Private, func() *prometheus.Registry {
		return prometheus.NewRegistry()
	}),
	fx.Provide(NewPusher),
	fx.Provide(NewBacklog),
	fx.Invoke(startWorker),
)

func startWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, backlog *Backlog, registry *prometheus.Registry, logger *zap.Logger, db *gorm.DB) {
	if pusher == nil {
		return
	}
	logger = logger.Named("cloud.metrics")
	interval := cfg.MetricsPush.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting metrics push worker", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				pushOnce(ctx, logger, pusher, backlog, registry, db)
				for {
					select {
					case <-ticker.C:
						pushOnce(ctx, logger, pusher, backlog, registry, db)
					case <-ctx.Done():
						logger.Info("stopping metrics push worker")
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func pushOnce(ctx context.Context, logger *zap.Logger, pusher Pusher, backlog *Backlog, registry *prometheus.Registry, db *gorm.DB) {
	if err := backlog.Refresh(ctx, db); err != nil {
		logger.Warn("backlog refresh failed", zap.Error(err))
		return
	}
	pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
	defer cancel()
	if err := pusher.Push(pushCtx, registry); err != nil {
		logger.Warn("metrics push failed", zap.Error(err))
	}
}
