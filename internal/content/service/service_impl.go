package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/content/domain"
	"github.com/smallbiznis/donora/internal/orgcontext"
	"github.com/smallbiznis/donora/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("content.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateContentItemRequest) (domain.ContentItem, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ContentItem{}, domain.ErrInvalidOrganization
	}

	items, err := s.CreateBatch(ctx, s.db, orgID, []domain.CreateContentItemRequest{req})
	if err != nil {
		return domain.ContentItem{}, err
	}
	return items[0], nil
}

func (s *Service) CreateBatch(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, reqs []domain.CreateContentItemRequest) ([]domain.ContentItem, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	now := s.clock.Now()
	rows := make([]*domain.ContentItem, 0, len(reqs))
	for _, req := range reqs {
		title := strings.TrimSpace(req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		body := strings.TrimSpace(req.Body)
		if body == "" {
			return nil, domain.ErrInvalidBody
		}
		meta := datatypes.JSONMap{}
		for key, value := range req.Meta {
			meta[key] = value
		}
		rows = append(rows, &domain.ContentItem{
			ID:        s.genID.Generate(),
			OrgID:     orgID,
			Title:     title,
			Body:      body,
			Meta:      meta,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	if err := s.repo.Insert(ctx, tx, rows...); err != nil {
		return nil, err
	}

	out := make([]domain.ContentItem, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	return out, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.ContentItem, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ContentItem{}, domain.ErrInvalidOrganization
	}

	itemID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || itemID == 0 {
		return domain.ContentItem{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, itemID)
	if err != nil {
		return domain.ContentItem{}, err
	}
	if item == nil {
		return domain.ContentItem{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListContentItemRequest) (domain.ListContentItemResponse, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return domain.ListContentItemResponse{}, domain.ErrInvalidOrganization
	}

	items, err := s.repo.List(ctx, s.db, orgID, req.Pagination)
	if err != nil {
		return domain.ListContentItemResponse{}, err
	}

	items, pageInfo := pagination.BuildCursorPageInfo(items, req.Limit(), func(item *domain.ContentItem) string {
		return pagination.IDToken(item.ID.String())
	})

	out := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		out = append(out, *item)
	}
	return domain.ListContentItemResponse{PageInfo: *pageInfo, ContentItems: out}, nil
}

func (s *Service) FindByIDs(ctx context.Context, orgID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]domain.ContentItem, error) {
	items, err := s.repo.FindByIDs(ctx, s.db, orgID, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[snowflake.ID]domain.ContentItem, len(items))
	for _, item := range items {
		out[item.ID] = item
	}
	return out, nil
}
