package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, org *Organization) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Organization, error)
	UpdateTimezone(ctx context.Context, db *gorm.DB, id snowflake.ID, timezone string, updatedAt time.Time) (bool, error)
}
