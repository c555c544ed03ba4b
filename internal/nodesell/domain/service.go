package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateNodeSellRequest struct {
	NodeBossID  string `json:"node_boss_id"`
	NodeShareID string `json:"node_share_id"`
	Units       int    `json:"units"`
	Price       string `json:"price"`
}

type Service interface {
	// Create persists the sale. actorID is the authenticated purchaser and may
	// be nil, in which case no referral is enrolled.
	Create(ctx context.Context, req CreateNodeSellRequest, actorID *snowflake.ID) (*NodeSell, error)
	GetByID(ctx context.Context, id string) (*NodeSell, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidNodeBoss     = errors.New("invalid_node_boss")
	ErrInvalidNodeShare    = errors.New("invalid_node_share")
	ErrInvalidUnits        = errors.New("invalid_units")
	ErrInvalidPrice        = errors.New("invalid_price")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
