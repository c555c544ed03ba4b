package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/nodesell/domain"
	"github.com/smallbiznis/donora/internal/orgcontext"
	referraldomain "github.com/smallbiznis/donora/internal/referral/domain"
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
	Repo      domain.Repository
	Referrals referraldomain.Service
	Audit     auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	referrals referraldomain.Service
	audit     auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("nodesell.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		referrals: p.Referrals,
		audit:     p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateNodeSellRequest, actorID *snowflake.ID) (*domain.NodeSell, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}

	bossID, err := parseRequiredID(req.NodeBossID, domain.ErrInvalidNodeBoss)
	if err != nil {
		return nil, err
	}
	shareID, err := parseRequiredID(req.NodeShareID, domain.ErrInvalidNodeShare)
	if err != nil {
		return nil, err
	}
	if req.Units <= 0 {
		return nil, domain.ErrInvalidUnits
	}
	price := decimal.Zero
	if raw := strings.TrimSpace(req.Price); raw != "" {
		price, err = decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			return nil, domain.ErrInvalidPrice
		}
	}
	if actorID != nil && *actorID == 0 {
		actorID = nil
	}

	sell := &domain.NodeSell{
		ID:          s.genID.Generate(),
		OrgID:       orgID,
		NodeBossID:  bossID,
		NodeShareID: shareID,
		UserID:      actorID,
		Units:       req.Units,
		Price:       price,
		CreatedAt:   s.clock.Now().UTC(),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, sell); err != nil {
			return err
		}
		if err := s.referrals.OnNodeSellCreated(ctx, tx, referraldomain.NodeSellCreated{
			ID:          sell.ID,
			OrgID:       sell.OrgID,
			NodeBossID:  sell.NodeBossID,
			NodeShareID: sell.NodeShareID,
		}, actorID); err != nil {
			return err
		}
		return s.audit.Record(ctx, tx, auditdomain.Entry{
			OrgID:      orgID,
			Action:     "node_sell.create",
			TargetType: "node_sell",
			TargetID:   sell.ID.String(),
			Metadata: map[string]any{
				"node_boss_id": sell.NodeBossID.String(),
				"units":        sell.Units,
				"price":        sell.Price.String(),
			},
		})
	})
	if err != nil {
		s.log.Error("failed to create node sell", zap.Error(err))
		return nil, err
	}

	return sell, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.NodeSell, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, domain.ErrInvalidOrganization
	}
	sellID, err := parseRequiredID(id, domain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	sell, err := s.repo.FindByID(ctx, s.db, orgID, sellID)
	if err != nil {
		return nil, err
	}
	if sell == nil {
		return nil, domain.ErrNotFound
	}
	return sell, nil
}

func parseRequiredID(value string, invalid error) (snowflake.ID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, invalid
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
