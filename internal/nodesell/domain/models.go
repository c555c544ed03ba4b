package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// NodeSell records a sale of node share units on behalf of a node boss.
type NodeSell struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID    `gorm:"not null;index" json:"organization_id"`
	NodeBossID  snowflake.ID    `gorm:"not null;index" json:"node_boss_id"`
	NodeShareID snowflake.ID    `gorm:"not null" json:"node_share_id"`
	UserID      *snowflake.ID   `gorm:"index" json:"user_id,omitempty"`
	Units       int             `gorm:"not null" json:"units"`
	Price       decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"price"`
	CreatedAt   time.Time       `gorm:"not null" json:"created_at"`
}

func (NodeSell) TableName() string { return "node_sells" }
