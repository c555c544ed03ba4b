package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, sell *NodeSell) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*NodeSell, error)
}
