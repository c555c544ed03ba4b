package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/donora/internal/cache"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/config"
	"github.com/smallbiznis/donora/internal/organization/domain"
	"github.com/smallbiznis/donora/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Config    config.Config
	Repo      domain.Repository
	Locations cache.LocationCache
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            domain.Repository
	locations       cache.LocationCache
	defaultTimezone string
}

func New(p Params) domain.Service {
	defaultTimezone := strings.TrimSpace(p.Config.DefaultTimezone)
	if defaultTimezone == "" {
		defaultTimezone = "UTC"
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("organization.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		locations:       p.Locations,
		defaultTimezone: defaultTimezone,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateOrganizationRequest) (*domain.OrganizationResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	timezone := strings.TrimSpace(req.Timezone)
	if timezone == "" {
		timezone = s.defaultTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, domain.ErrInvalidTimezone
	}

	now := s.clock.Now()
	org := &domain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		Timezone:  timezone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, org); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateSlug
		}
		return nil, err
	}

	s.locations.Set(org.ID.String(), org.Timezone)
	s.log.Info("organization created", zap.String("org_id", org.ID.String()), zap.String("timezone", org.Timezone))
	return toResponse(org), nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.OrganizationResponse, error) {
	orgID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	org, err := s.repo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}
	return toResponse(org), nil
}

func (s *Service) UpdateTimezone(ctx context.Context, id string, timezone string) (*domain.OrganizationResponse, error) {
	orgID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	timezone = strings.TrimSpace(timezone)
	if timezone == "" {
		return nil, domain.ErrInvalidTimezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, domain.ErrInvalidTimezone
	}

	updated, err := s.repo.UpdateTimezone(ctx, s.db, orgID, timezone, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, domain.ErrNotFound
	}
	s.locations.Delete(orgID.String())

	return s.GetByID(ctx, id)
}

func (s *Service) Location(ctx context.Context, orgID snowflake.ID) (*time.Location, error) {
	if orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	if name, ok := s.locations.Get(orgID.String()); ok {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc, nil
		}
	}

	org, err := s.repo.FindByID(ctx, s.db, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrNotFound
	}

	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		s.log.Warn("stored organization timezone is invalid",
			zap.String("org_id", orgID.String()),
			zap.String("timezone", org.Timezone),
		)
		return nil, domain.ErrInvalidTimezone
	}
	s.locations.Set(orgID.String(), org.Timezone)
	return loc, nil
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidOrganization
	}
	return parsed, nil
}

func toResponse(org *domain.Organization) *domain.OrganizationResponse {
	return &domain.OrganizationResponse{
		ID:        org.ID.String(),
		Name:      org.Name,
		Slug:      org.Slug,
		Timezone:  org.Timezone,
		CreatedAt: org.CreatedAt,
	}
}
