// Package testing moves scheduled drops around in time for scheduler tests.
package testing

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	"gorm.io/gorm"
)

// TimeAccelerator rewrites publish times so drops become due immediately.
type TimeAccelerator struct {
	db *gorm.DB
}

func NewTimeAccelerator(db *gorm.DB) *TimeAccelerator {
	return &TimeAccelerator{db: db}
}

// FastForwardDrop moves a pending drop to one minute before now.
func (ta *TimeAccelerator) FastForwardDrop(ctx context.Context, dropID snowflake.ID, now time.Time) error {
	return ta.db.WithContext(ctx).Exec(
		`UPDATE scheduled_drops
		 SET publish_at_utc = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		now.Add(-time.Minute),
		now,
		dropID,
		campaigndomain.DropStatusPending,
	).Error
}

// FastForwardCampaign makes every pending drop of a campaign due.
func (ta *TimeAccelerator) FastForwardCampaign(ctx context.Context, campaignID snowflake.ID, now time.Time) (int64, error) {
	result := ta.db.WithContext(ctx).Exec(
		`UPDATE scheduled_drops
		 SET publish_at_utc = ?, updated_at = ?
		 WHERE campaign_id = ? AND status = ? AND publish_at_utc > ?`,
		now.Add(-time.Minute),
		now,
		campaignID,
		campaigndomain.DropStatusPending,
		now,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DropInfo shows a drop's dispatch state for debugging.
type DropInfo struct {
	ID         snowflake.ID
	Status     campaigndomain.DropStatus
	PublishAt  time.Time
	TimeUntil  time.Duration
	QueuedJobs int64
	IsDue      bool
}

func (ta *TimeAccelerator) GetDropInfo(ctx context.Context, dropID snowflake.ID, now time.Time) (*DropInfo, error) {
	var drop campaigndomain.ScheduledDrop
	if err := ta.db.WithContext(ctx).Where("id = ?", dropID).Take(&drop).Error; err != nil {
		return nil, err
	}

	var queued int64
	err := ta.db.WithContext(ctx).Model(&campaigndomain.SendJob{}).
		Where("drop_id = ? AND status = ?", dropID, campaigndomain.SendJobStatusQueued).
		Count(&queued).Error
	if err != nil {
		return nil, err
	}

	return &DropInfo{
		ID:         drop.ID,
		Status:     drop.Status,
		PublishAt:  drop.PublishAtUTC,
		TimeUntil:  drop.PublishAtUTC.Sub(now),
		QueuedJobs: queued,
		IsDue:      !now.Before(drop.PublishAtUTC),
	}, nil
}
