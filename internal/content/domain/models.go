package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ContentItem is one piece of campaign content rotated across drops.
type ContentItem struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID      `gorm:"not null;index" json:"organization_id"`
	Title     string            `gorm:"not null" json:"title"`
	Body      string            `gorm:"type:text;not null" json:"body"`
	Meta      datatypes.JSONMap `gorm:"not null" json:"meta"`
	CreatedAt time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null" json:"updated_at"`
}

func (ContentItem) TableName() string { return "content_items" }
