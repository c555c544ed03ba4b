package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/observability/metrics"
	"github.com/smallbiznis/donora/internal/orgcontext"
	"github.com/smallbiznis/donora/internal/referral/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	outcomeCreated = "created"
	outcomeExists  = "exists"
	outcomeNoActor = "no_actor"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("referral.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) OnNodeSellCreated(ctx context.Context, tx *gorm.DB, sell domain.NodeSellCreated, actorID *snowflake.ID) error {
	if actorID == nil || *actorID == 0 {
		s.log.Debug("node sell without actor, referral skipped", zap.String("node_sell_id", sell.ID.String()))
		s.metrics.RecordReferral(ctx, outcomeNoActor)
		return nil
	}
	if sell.ID == 0 || sell.OrgID == 0 || sell.NodeBossID == 0 {
		return domain.ErrInvalidNodeSell
	}
	if tx == nil {
		tx = s.db
	}

	now := s.clock.Now().UTC()
	created, err := s.repo.InsertIgnoreDuplicate(ctx, tx, &domain.NodeReferral{
		ID:          s.genID.Generate(),
		OrgID:       sell.OrgID,
		UserID:      *actorID,
		NodeBossID:  sell.NodeBossID,
		NodeShareID: sell.NodeShareID,
		NodeSellID:  sell.ID,
		Status:      domain.StatusInactive,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return err
	}

	if !created {
		s.metrics.RecordReferral(ctx, outcomeExists)
		return nil
	}
	s.metrics.RecordReferral(ctx, outcomeCreated)
	s.log.Info("referral enrolled",
		zap.String("user_id", actorID.String()),
		zap.String("node_boss_id", sell.NodeBossID.String()),
		zap.String("node_sell_id", sell.ID.String()),
	)
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListReferralRequest) ([]domain.NodeReferral, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidOrganization
	}

	userID, hasUser, err := optionalID(req.UserID)
	if err != nil {
		return nil, err
	}
	bossID, hasBoss, err := optionalID(req.NodeBossID)
	if err != nil {
		return nil, err
	}

	switch {
	case hasUser && !hasBoss:
		return s.repo.ListByUser(ctx, s.db, orgID, userID)
	case hasBoss && !hasUser:
		return s.repo.ListByNodeBoss(ctx, s.db, orgID, bossID)
	case hasUser && hasBoss:
		referrals, err := s.repo.ListByUser(ctx, s.db, orgID, userID)
		if err != nil {
			return nil, err
		}
		out := referrals[:0]
		for _, referral := range referrals {
			if referral.NodeBossID == bossID {
				out = append(out, referral)
			}
		}
		return out, nil
	default:
		return nil, domain.ErrInvalidFilter
	}
}

func optionalID(value string) (snowflake.ID, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, nil
	}
	id, err := snowflake.ParseString(value)
	if err != nil || id == 0 {
		return 0, false, domain.ErrInvalidFilter
	}
	return id, true, nil
}
