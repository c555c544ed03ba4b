package domain

import (
	"context"
	"time"

	"github.com/smallbiznis/donora/pkg/db/pagination"
	"gorm.io/datatypes"
)

type CreateCampaignRequest struct {
	Name          string   `json:"name"`
	StartDate     string   `json:"start_date"`
	EndDate       *string  `json:"end_date"`
	SendTimeLocal string   `json:"send_time_local"`
	Channels      []string `json:"channels"`
	UserIDs       []string `json:"user_ids"`
	ContentItems  []string `json:"content_items"`
	// Prompt marks an AI campaign whose rotation is generated at creation.
	Prompt       string `json:"prompt"`
	ContentType  string `json:"content_type"`
	ContentCount int    `json:"content_count"`
}

type ListCampaignRequest struct {
	pagination.Pagination
	Status string `form:"status"`
}

type ListCampaignResponse struct {
	pagination.PageInfo
	Campaigns []CampaignResponse `json:"campaigns"`
}

type ReportDeliveryRequest struct {
	Status string `json:"status"`
}

type CampaignResponse struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Source              CampaignSource `json:"source"`
	StartDate           string         `json:"start_date"`
	EndDate             *string        `json:"end_date"`
	SendTimeLocal       string         `json:"send_time_local"`
	Timezone            string         `json:"timezone"`
	Channels            []string       `json:"channels"`
	Status              CampaignStatus `json:"status"`
	Prompt              *string        `json:"prompt,omitempty"`
	ContentType         *string        `json:"content_type,omitempty"`
	ContentCount        *int           `json:"content_count,omitempty"`
	ScheduledDropsCount int64          `json:"scheduled_drops_count"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

type ContentItemSummary struct {
	ID    string            `json:"id"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Meta  datatypes.JSONMap `json:"meta"`
}

type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type SendJobResponse struct {
	ID        string        `json:"id"`
	DropID    string        `json:"drop_id"`
	Status    SendJobStatus `json:"status"`
	Channel   string        `json:"channel"`
	User      UserSummary   `json:"user"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type DropResponse struct {
	ID            string              `json:"id"`
	CampaignID    string              `json:"campaign_id"`
	Position      int                 `json:"position"`
	LocalDate     string              `json:"local_date"`
	PublishAtUTC  time.Time           `json:"publish_at_utc"`
	Status        DropStatus          `json:"status"`
	ContentItem   *ContentItemSummary `json:"content_item"`
	SendJobsCount int64               `json:"send_jobs_count"`
	SendJobs      []SendJobResponse   `json:"send_jobs,omitempty"`
}

type Service interface {
	// Create validates the request, expands it into drops and send jobs and
	// commits everything in one transaction.
	Create(ctx context.Context, req CreateCampaignRequest) (*CampaignResponse, error)
	Get(ctx context.Context, id string) (*CampaignResponse, error)
	List(ctx context.Context, req ListCampaignRequest) (ListCampaignResponse, error)
	// Cancel cancels the campaign and its pending drops. Sent and expanded
	// drops and all send jobs are left as they are.
	Cancel(ctx context.Context, id string) (*CampaignResponse, error)
	Pause(ctx context.Context, id string) (*CampaignResponse, error)
	Resume(ctx context.Context, id string) (*CampaignResponse, error)
	ListDrops(ctx context.Context, campaignID string) ([]DropResponse, error)
	GetDrop(ctx context.Context, campaignID, dropID string) (*DropResponse, error)
	ReportDelivery(ctx context.Context, jobID string, req ReportDeliveryRequest) (*SendJobResponse, error)
}
