package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListFilter struct {
	OrgID  snowflake.ID
	Status CampaignStatus
	Page   pagination.Pagination
}

type Repository interface {
	InsertCampaign(ctx context.Context, db *gorm.DB, campaign *Campaign) error
	InsertRecipients(ctx context.Context, db *gorm.DB, recipients []CampaignRecipient) error
	InsertContents(ctx context.Context, db *gorm.DB, contents []CampaignContent) error
	InsertDrops(ctx context.Context, db *gorm.DB, drops []*ScheduledDrop) error
	InsertSendJobs(ctx context.Context, db *gorm.DB, jobs []*SendJob) error

	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Campaign, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Campaign, error)
	// UpdateStatus moves the campaign to status when its current status is in
	// from. It reports whether a row changed.
	UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from []CampaignStatus, to CampaignStatus, now time.Time) (bool, error)

	CountDrops(ctx context.Context, db *gorm.DB, campaignIDs []snowflake.ID) (map[snowflake.ID]int64, error)
	ListDrops(ctx context.Context, db *gorm.DB, orgID, campaignID snowflake.ID) ([]ScheduledDrop, error)
	FindDrop(ctx context.Context, db *gorm.DB, orgID, campaignID, dropID snowflake.ID) (*ScheduledDrop, error)
	FindDropByID(ctx context.Context, db *gorm.DB, dropID snowflake.ID) (*ScheduledDrop, error)
	CancelPendingDrops(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, now time.Time) (int64, error)
	// ClaimDueDrops returns dispatchable drops of active campaigns due at now,
	// row locked where the dialect supports it.
	ClaimDueDrops(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]ScheduledDrop, error)
	UpdateDropStatus(ctx context.Context, db *gorm.DB, dropID snowflake.ID, from []DropStatus, to DropStatus, now time.Time) (bool, error)

	ListSendJobsByDrop(ctx context.Context, db *gorm.DB, dropID snowflake.ID) ([]SendJob, error)
	ListQueuedSendJobs(ctx context.Context, db *gorm.DB, dropID snowflake.ID) ([]SendJob, error)
	CountSendJobsByDrops(ctx context.Context, db *gorm.DB, dropIDs []snowflake.ID) (map[snowflake.ID]int64, error)
	FindSendJob(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*SendJob, error)
	UpdateSendJobStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []SendJobStatus, to SendJobStatus, now time.Time) (bool, error)
}
