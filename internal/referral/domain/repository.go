package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIgnoreDuplicate reports false when a referral for the same
	// (user, node boss) already exists.
	InsertIgnoreDuplicate(ctx context.Context, db *gorm.DB, referral *NodeReferral) (bool, error)
	ListByUser(ctx context.Context, db *gorm.DB, orgID, userID snowflake.ID) ([]NodeReferral, error)
	ListByNodeBoss(ctx context.Context, db *gorm.DB, orgID, nodeBossID snowflake.ID) ([]NodeReferral, error)
}
