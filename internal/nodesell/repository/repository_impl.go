package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/internal/nodesell/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sell *domain.NodeSell) error {
	return db.WithContext(ctx).Create(sell).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.NodeSell, error) {
	var sell domain.NodeSell
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&sell).Error
	if err != nil {
		return nil, err
	}
	if sell.ID == 0 {
		return nil, nil
	}
	return &sell, nil
}
