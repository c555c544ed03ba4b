package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
)

// NodeReferral links a purchasing user to a node boss. At most one exists
// per (user, node boss); the unique index enforces it.
type NodeReferral struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID `gorm:"not null;index" json:"organization_id"`
	UserID      snowflake.ID `gorm:"not null;uniqueIndex:ux_node_referrals_user_boss,priority:1" json:"user_id"`
	NodeBossID  snowflake.ID `gorm:"not null;uniqueIndex:ux_node_referrals_user_boss,priority:2;index" json:"node_boss_id"`
	NodeShareID snowflake.ID `gorm:"not null" json:"node_share_id"`
	NodeSellID  snowflake.ID `gorm:"not null" json:"node_sell_id"`
	Status      Status       `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

func (NodeReferral) TableName() string { return "node_referrals" }

// NodeSellCreated carries the fields of a new node sell the rule reads.
type NodeSellCreated struct {
	ID          snowflake.ID
	OrgID       snowflake.ID
	NodeBossID  snowflake.ID
	NodeShareID snowflake.ID
}
