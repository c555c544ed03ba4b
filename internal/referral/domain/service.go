package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListReferralRequest struct {
	UserID     string `form:"user_id"`
	NodeBossID string `form:"node_boss_id"`
}

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	// OnNodeSellCreated enrolls actorID as an inactive referral of the sell's
	// node boss. It runs on tx, the transaction that created the sell. A nil
	// actor is a no-op.
	OnNodeSellCreated(ctx context.Context, tx *gorm.DB, sell NodeSellCreated, actorID *snowflake.ID) error
	List(ctx context.Context, req ListReferralRequest) ([]NodeReferral, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidNodeSell     = errors.New("invalid_node_sell")
	ErrInvalidFilter       = errors.New("invalid_filter")
)
