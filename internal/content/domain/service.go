package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/pkg/db/pagination"
	"gorm.io/gorm"
)

type CreateContentItemRequest struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Meta  map[string]any `json:"meta"`
}

type ListContentItemRequest struct {
	pagination.Pagination
}

type ListContentItemResponse struct {
	pagination.PageInfo
	ContentItems []ContentItem `json:"content_items"`
}

type Service interface {
	Create(ctx context.Context, req CreateContentItemRequest) (ContentItem, error)
	// CreateBatch inserts items for orgID using tx so callers can commit them
	// together with their own rows.
	CreateBatch(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, reqs []CreateContentItemRequest) ([]ContentItem, error)
	GetByID(ctx context.Context, id string) (ContentItem, error)
	List(ctx context.Context, req ListContentItemRequest) (ListContentItemResponse, error)
	FindByIDs(ctx context.Context, orgID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]ContentItem, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidTitle        = errors.New("invalid_title")
	ErrInvalidBody         = errors.New("invalid_body")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
