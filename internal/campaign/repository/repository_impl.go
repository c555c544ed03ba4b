package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/internal/campaign/domain"
	"github.com/smallbiznis/donora/pkg/db"
	"github.com/smallbiznis/donora/pkg/db/pagination"
	"gorm.io/gorm"
)

const insertBatchSize = 500

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCampaign(ctx context.Context, db *gorm.DB, campaign *domain.Campaign) error {
	return db.WithContext(ctx).Create(campaign).Error
}

func (r *repo) InsertRecipients(ctx context.Context, db *gorm.DB, recipients []domain.CampaignRecipient) error {
	if len(recipients) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(recipients, insertBatchSize).Error
}

func (r *repo) InsertContents(ctx context.Context, db *gorm.DB, contents []domain.CampaignContent) error {
	if len(contents) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(contents, insertBatchSize).Error
}

func (r *repo) InsertDrops(ctx context.Context, db *gorm.DB, drops []*domain.ScheduledDrop) error {
	if len(drops) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(drops, insertBatchSize).Error
}

func (r *repo) InsertSendJobs(ctx context.Context, db *gorm.DB, jobs []*domain.SendJob) error {
	if len(jobs) == 0 {
		return nil
	}
	return db.WithContext(ctx).CreateInBatches(jobs, insertBatchSize).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Campaign, error) {
	var campaign domain.Campaign
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&campaign).Error
	if err != nil {
		return nil, err
	}
	if campaign.ID == 0 {
		return nil, nil
	}
	return &campaign, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Campaign, error) {
	stmt := db.WithContext(ctx).Model(&domain.Campaign{}).Where("org_id = ?", filter.OrgID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	stmt, err := pagination.Apply(stmt, filter.Page)
	if err != nil {
		return nil, err
	}
	var campaigns []*domain.Campaign
	if err := stmt.Find(&campaigns).Error; err != nil {
		return nil, err
	}
	return campaigns, nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, from []domain.CampaignStatus, to domain.CampaignStatus, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE campaigns SET status = ?, updated_at = ? WHERE org_id = ? AND id = ? AND status IN ?`,
		to, now, orgID, id, from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

type countRow struct {
	ID    snowflake.ID
	Total int64
}

func (r *repo) CountDrops(ctx context.Context, db *gorm.DB, campaignIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	out := make(map[snowflake.ID]int64, len(campaignIDs))
	if len(campaignIDs) == 0 {
		return out, nil
	}
	var rows []countRow
	err := db.WithContext(ctx).Raw(
		`SELECT campaign_id AS id, COUNT(*) AS total FROM scheduled_drops WHERE campaign_id IN ? GROUP BY campaign_id`,
		campaignIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Total
	}
	return out, nil
}

func (r *repo) ListDrops(ctx context.Context, db *gorm.DB, orgID, campaignID snowflake.ID) ([]domain.ScheduledDrop, error) {
	var drops []domain.ScheduledDrop
	err := db.WithContext(ctx).
		Where("org_id = ? AND campaign_id = ?", orgID, campaignID).
		Order("position asc").
		Find(&drops).Error
	if err != nil {
		return nil, err
	}
	return drops, nil
}

func (r *repo) FindDrop(ctx context.Context, db *gorm.DB, orgID, campaignID, dropID snowflake.ID) (*domain.ScheduledDrop, error) {
	var drop domain.ScheduledDrop
	err := db.WithContext(ctx).
		Where("org_id = ? AND campaign_id = ? AND id = ?", orgID, campaignID, dropID).
		Limit(1).
		Find(&drop).Error
	if err != nil {
		return nil, err
	}
	if drop.ID == 0 {
		return nil, nil
	}
	return &drop, nil
}

func (r *repo) FindDropByID(ctx context.Context, db *gorm.DB, dropID snowflake.ID) (*domain.ScheduledDrop, error) {
	var drop domain.ScheduledDrop
	err := db.WithContext(ctx).Where("id = ?", dropID).Limit(1).Find(&drop).Error
	if err != nil {
		return nil, err
	}
	if drop.ID == 0 {
		return nil, nil
	}
	return &drop, nil
}

func (r *repo) CancelPendingDrops(ctx context.Context, db *gorm.DB, campaignID snowflake.ID, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE scheduled_drops SET status = ?, updated_at = ? WHERE campaign_id = ? AND status = ?`,
		domain.DropStatusCancelled, now, campaignID, domain.DropStatusPending,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) ClaimDueDrops(ctx context.Context, conn *gorm.DB, now time.Time, limit int) ([]domain.ScheduledDrop, error) {
	active := conn.Model(&domain.Campaign{}).
		Select("id").
		Where("status = ?", domain.CampaignStatusActive)

	stmt := conn.WithContext(ctx).Model(&domain.ScheduledDrop{}).
		Where("status IN ?", []domain.DropStatus{domain.DropStatusPending, domain.DropStatusExpanded}).
		Where("publish_at_utc <= ?", now).
		Where("campaign_id IN (?)", active).
		Order("publish_at_utc asc, id asc")
	if limit > 0 {
		stmt = stmt.Limit(limit)
	}

	var drops []domain.ScheduledDrop
	if err := db.ForUpdateSkipLocked(stmt).Find(&drops).Error; err != nil {
		return nil, err
	}
	return drops, nil
}

func (r *repo) UpdateDropStatus(ctx context.Context, db *gorm.DB, dropID snowflake.ID, from []domain.DropStatus, to domain.DropStatus, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE scheduled_drops SET status = ?, updated_at = ? WHERE id = ? AND status IN ?`,
		to, now, dropID, from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListSendJobsByDrop(ctx context.Context, db *gorm.DB, dropID snowflake.ID) ([]domain.SendJob, error) {
	var jobs []domain.SendJob
	err := db.WithContext(ctx).
		Where("drop_id = ?", dropID).
		Order("position asc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) ListQueuedSendJobs(ctx context.Context, db *gorm.DB, dropID snowflake.ID) ([]domain.SendJob, error) {
	var jobs []domain.SendJob
	err := db.WithContext(ctx).
		Where("drop_id = ? AND status = ?", dropID, domain.SendJobStatusQueued).
		Order("position asc").
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repo) CountSendJobsByDrops(ctx context.Context, db *gorm.DB, dropIDs []snowflake.ID) (map[snowflake.ID]int64, error) {
	out := make(map[snowflake.ID]int64, len(dropIDs))
	if len(dropIDs) == 0 {
		return out, nil
	}
	var rows []countRow
	err := db.WithContext(ctx).Raw(
		`SELECT drop_id AS id, COUNT(*) AS total FROM send_jobs WHERE drop_id IN ? GROUP BY drop_id`,
		dropIDs,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row.Total
	}
	return out, nil
}

func (r *repo) FindSendJob(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.SendJob, error) {
	var job domain.SendJob
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *repo) UpdateSendJobStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from []domain.SendJobStatus, to domain.SendJobStatus, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE send_jobs SET status = ?, updated_at = ? WHERE id = ? AND status IN ?`,
		to, now, id, from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
