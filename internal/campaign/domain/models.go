package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type CampaignStatus string

const (
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCancelled CampaignStatus = "cancelled"
)

type CampaignSource string

const (
	CampaignSourceManual CampaignSource = "manual"
	CampaignSourceAI     CampaignSource = "ai"
)

type DropStatus string

const (
	DropStatusPending   DropStatus = "pending"
	DropStatusExpanded  DropStatus = "expanded"
	DropStatusSent      DropStatus = "sent"
	DropStatusCancelled DropStatus = "cancelled"
)

type SendJobStatus string

const (
	SendJobStatusQueued    SendJobStatus = "queued"
	SendJobStatusSent      SendJobStatus = "sent"
	SendJobStatusDelivered SendJobStatus = "delivered"
	SendJobStatusFailed    SendJobStatus = "failed"
)

// Terminal reports whether no further delivery transition is allowed.
func (s SendJobStatus) Terminal() bool {
	return s == SendJobStatusDelivered || s == SendJobStatusFailed
}

// Campaign is a recurring content delivery definition. Dates are calendar
// dates in the snapshotted timezone, formatted YYYY-MM-DD.
type Campaign struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID   `gorm:"not null;index" json:"organization_id"`
	Name          string         `gorm:"not null" json:"name"`
	Source        CampaignSource `gorm:"type:varchar(16);not null" json:"source"`
	StartDate     string         `gorm:"type:varchar(10);not null" json:"start_date"`
	EndDate       *string        `gorm:"type:varchar(10)" json:"end_date,omitempty"`
	SendTimeLocal string         `gorm:"type:varchar(5);not null" json:"send_time_local"`
	Timezone      string         `gorm:"type:varchar(64);not null" json:"timezone"`
	Channels      datatypes.JSON `gorm:"not null" json:"channels"`
	Status        CampaignStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Prompt        *string        `gorm:"type:text" json:"prompt,omitempty"`
	ContentType   *string        `gorm:"type:varchar(32)" json:"content_type,omitempty"`
	ContentCount  *int           `json:"content_count,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (Campaign) TableName() string { return "campaigns" }

// ChannelList decodes the stored channel set.
func (c Campaign) ChannelList() ([]string, error) {
	var channels []string
	if len(c.Channels) == 0 {
		return channels, nil
	}
	if err := json.Unmarshal(c.Channels, &channels); err != nil {
		return nil, fmt.Errorf("decode channels of campaign %s: %w", c.ID, err)
	}
	return channels, nil
}

// CampaignRecipient is one member of the recipient set, kept in request order.
type CampaignRecipient struct {
	CampaignID snowflake.ID `gorm:"primaryKey"`
	UserID     snowflake.ID `gorm:"primaryKey"`
	Position   int          `gorm:"not null"`
}

func (CampaignRecipient) TableName() string { return "campaign_recipients" }

// CampaignContent is one slot of the content rotation.
type CampaignContent struct {
	CampaignID    snowflake.ID `gorm:"primaryKey"`
	Position      int          `gorm:"primaryKey"`
	ContentItemID snowflake.ID `gorm:"not null"`
}

func (CampaignContent) TableName() string { return "campaign_contents" }

type ScheduledDrop struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID         snowflake.ID `gorm:"not null;index" json:"organization_id"`
	CampaignID    snowflake.ID `gorm:"not null;uniqueIndex:ux_scheduled_drops_campaign_position,priority:1" json:"campaign_id"`
	Position      int          `gorm:"not null;uniqueIndex:ux_scheduled_drops_campaign_position,priority:2" json:"position"`
	LocalDate     string       `gorm:"type:varchar(10);not null" json:"local_date"`
	PublishAtUTC  time.Time    `gorm:"column:publish_at_utc;not null;index:ix_scheduled_drops_due,priority:2" json:"publish_at_utc"`
	ContentItemID snowflake.ID `gorm:"not null" json:"content_item_id"`
	Status        DropStatus   `gorm:"type:varchar(16);not null;index:ix_scheduled_drops_due,priority:1" json:"status"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time    `gorm:"not null" json:"updated_at"`
}

func (ScheduledDrop) TableName() string { return "scheduled_drops" }

type SendJob struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID  `gorm:"not null;index" json:"organization_id"`
	CampaignID snowflake.ID  `gorm:"not null;index" json:"campaign_id"`
	DropID     snowflake.ID  `gorm:"not null;uniqueIndex:ux_send_jobs_drop_user_channel,priority:1" json:"drop_id"`
	UserID     snowflake.ID  `gorm:"not null;uniqueIndex:ux_send_jobs_drop_user_channel,priority:2" json:"user_id"`
	Channel    string        `gorm:"type:varchar(32);not null;uniqueIndex:ux_send_jobs_drop_user_channel,priority:3" json:"channel"`
	Position   int           `gorm:"not null" json:"position"`
	Status     SendJobStatus `gorm:"type:varchar(16);not null" json:"status"`
	CreatedAt  time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time     `gorm:"not null" json:"updated_at"`
}

func (SendJob) TableName() string { return "send_jobs" }

// Models lists every table owned by this package.
func Models() []any {
	return []any{
		&Campaign{},
		&CampaignRecipient{},
		&CampaignContent{},
		&ScheduledDrop{},
		&SendJob{},
	}
}
