package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/internal/content/domain"
	"github.com/smallbiznis/donora/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, items ...*domain.ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.ContentItem, error) {
	var item domain.ContentItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND id = ?", orgID, id).
		Limit(1).
		Find(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) ([]domain.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var items []domain.ContentItem
	err := db.WithContext(ctx).
		Where("org_id = ? AND id IN ?", orgID, ids).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, page pagination.Pagination) ([]*domain.ContentItem, error) {
	stmt, err := pagination.Apply(db.WithContext(ctx).Model(&domain.ContentItem{}).Where("org_id = ?", orgID), page)
	if err != nil {
		return nil, err
	}
	var items []*domain.ContentItem
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
