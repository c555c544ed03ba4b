package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/internal/referral/domain"
	"github.com/smallbiznis/donora/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIgnoreDuplicate(ctx context.Context, conn *gorm.DB, referral *domain.NodeReferral) (bool, error) {
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "node_boss_id"}},
			DoNothing: true,
		}).
		Create(referral)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID) ([]domain.NodeReferral, error) {
	var referrals []domain.NodeReferral
	err := db.WithContext(ctx).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Order("created_at asc, id asc").
		Find(&referrals).Error
	if err != nil {
		return nil, err
	}
	return referrals, nil
}

func (r *repo) ListByNodeBoss(ctx context.Context, db *gorm.DB, orgID, nodeBossID snowflake.ID) ([]domain.NodeReferral, error) {
	var referrals []domain.NodeReferral
	err := db.WithContext(ctx).
		Where("org_id = ? AND node_boss_id = ?", orgID, nodeBossID).
		Order("created_at asc, id asc").
		Find(&referrals).Error
	if err != nil {
		return nil, err
	}
	return referrals, nil
}
