package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	"github.com/smallbiznis/donora/internal/delivery"
	obsmetrics "github.com/smallbiznis/donora/internal/observability/metrics"
	"github.com/smallbiznis/donora/internal/scheduler/guard"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type dropOutcome struct {
	drop      campaigndomain.ScheduledDrop
	published int
	completed bool
}

// DispatchDropsJob publishes the queued send jobs of every due drop in one
// batch. Claimed rows stay locked until the batch commits. A drop whose
// publish fails stays expanded and is claimed again by the next run.
func (s *Scheduler) DispatchDropsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, jobDispatchDrops, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}
	schedMetrics := obsmetrics.Scheduler()
	now := s.clock.Now().UTC()

	var (
		outcomes []dropOutcome
		jobErr   error
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		drops, err := s.claimDueDrops(ctx, tx, now)
		if err != nil {
			return err
		}
		if len(drops) == 0 {
			schedMetrics.IncBatchDeferred(jobDispatchDrops, obsmetrics.SchedulerBatchDeferredReasonSkipLockedEmpty)
			return nil
		}

		for i, drop := range drops {
			if err := ctx.Err(); err != nil {
				jobErr = errors.Join(jobErr, err)
				break
			}
			s.logDropClaimed(ctx, jobDispatchDrops, drop)
			outcome, err := s.dispatchDropIsolated(ctx, tx, drop, now, i)
			if errors.Is(err, errBatchAborted) {
				return err
			}
			outcomes = append(outcomes, outcome)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				s.logSchedulerError(ctx, run, "scheduler.drop.dispatch.failed", jobDispatchDrops, drop.OrgID, err,
					zap.String("drop_id", idString(drop.ID)),
					zap.String("campaign_id", idString(drop.CampaignID)),
					zap.Int("published", outcome.published),
				)
				continue
			}
			run.AddProcessed(1)
		}
		return nil
	})
	if err != nil {
		s.logSchedulerError(ctx, run, "scheduler.drop.claim.failed", jobDispatchDrops, 0, err)
		return err
	}

	published := 0
	for _, outcome := range outcomes {
		published += outcome.published
		if !outcome.completed {
			continue
		}
		s.emitAuditEvent(s.withLogContext(ctx, outcome.drop.OrgID), auditEvent{
			OrgID:      outcome.drop.OrgID,
			Action:     "scheduled_drop.sent",
			TargetType: "scheduled_drop",
			TargetID:   outcome.drop.ID.String(),
			Metadata: map[string]any{
				"campaign_id":    outcome.drop.CampaignID.String(),
				"position":       outcome.drop.Position,
				"publish_at_utc": outcome.drop.PublishAtUTC.UTC().Format(time.RFC3339),
				"published":      outcome.published,
			},
		})
	}
	schedMetrics.AddBatchProcessed(jobDispatchDrops, "scheduled_drops", run.processedCount)
	schedMetrics.AddBatchProcessed(jobDispatchDrops, "send_jobs", published)

	return jobErr
}

var errBatchAborted = errors.New("dispatch_batch_aborted")

// dispatchDropIsolated runs dispatchDrop under a savepoint. A database error
// rolls the drop back to the savepoint so the rest of the batch can proceed.
// A publish error keeps the jobs already marked sent. If the savepoint itself
// cannot be taken or restored the transaction is unusable and the batch stops.
func (s *Scheduler) dispatchDropIsolated(ctx context.Context, tx *gorm.DB, drop campaigndomain.ScheduledDrop, now time.Time, index int) (dropOutcome, error) {
	savepoint := "dispatch_drop_" + strconv.Itoa(index)
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return dropOutcome{drop: drop}, errors.Join(errBatchAborted, fmt.Errorf("savepoint %s: %w", savepoint, err))
	}

	outcome, err := s.dispatchDrop(ctx, tx, drop, now)
	if err == nil || errors.Is(err, obsmetrics.ErrDelivery) {
		return outcome, err
	}

	if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
		return outcome, errors.Join(errBatchAborted, err, fmt.Errorf("rollback to %s: %w", savepoint, rbErr))
	}
	// Reverted jobs are queued again and will be published on a later run.
	outcome.completed = false
	outcome.published = 0
	return outcome, err
}

func (s *Scheduler) dispatchDrop(ctx context.Context, tx *gorm.DB, drop campaigndomain.ScheduledDrop, now time.Time) (dropOutcome, error) {
	outcome := dropOutcome{drop: drop}
	schedMetrics := obsmetrics.Scheduler()

	if err := guard.EnsureDropDispatchable(drop.Status, drop.PublishAtUTC, now); err != nil {
		return outcome, err
	}

	if drop.Status == campaigndomain.DropStatusPending {
		updated, err := s.campaigns.UpdateDropStatus(ctx, tx, drop.ID,
			[]campaigndomain.DropStatus{campaigndomain.DropStatusPending},
			campaigndomain.DropStatusExpanded, now)
		if err != nil {
			return outcome, err
		}
		if !updated {
			return outcome, nil
		}
		schedMetrics.IncDropTransition(string(campaigndomain.DropStatusPending), string(campaigndomain.DropStatusExpanded))
	}

	jobs, err := s.campaigns.ListQueuedSendJobs(ctx, tx, drop.ID)
	if err != nil {
		return outcome, err
	}

	for _, job := range jobs {
		if err := guard.EnsureSendJobPublishable(job.Status); err != nil {
			continue
		}
		msg := delivery.NewMessage(ctx, delivery.Message{
			SendJobID:     job.ID.String(),
			DropID:        drop.ID.String(),
			CampaignID:    drop.CampaignID.String(),
			OrgID:         drop.OrgID.String(),
			UserID:        job.UserID.String(),
			Channel:       job.Channel,
			ContentItemID: drop.ContentItemID.String(),
			PublishAt:     drop.PublishAtUTC.UTC(),
		})
		if err := s.publisher.Publish(ctx, msg); err != nil {
			return outcome, errors.Join(obsmetrics.ErrDelivery, fmt.Errorf("publish send job %s: %w", job.ID, err))
		}
		if _, err := s.campaigns.UpdateSendJobStatus(ctx, tx, job.ID,
			[]campaigndomain.SendJobStatus{campaigndomain.SendJobStatusQueued},
			campaigndomain.SendJobStatusSent, now); err != nil {
			return outcome, err
		}
		outcome.published++
		s.metrics.RecordDeliveryPublished(ctx, s.publisher.Driver(), job.Channel)
	}

	updated, err := s.campaigns.UpdateDropStatus(ctx, tx, drop.ID,
		[]campaigndomain.DropStatus{campaigndomain.DropStatusExpanded},
		campaigndomain.DropStatusSent, now)
	if err != nil {
		return outcome, err
	}
	if updated {
		outcome.completed = true
		schedMetrics.IncDropTransition(string(campaigndomain.DropStatusExpanded), string(campaigndomain.DropStatusSent))
	}
	return outcome, nil
}
