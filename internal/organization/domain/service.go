package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateOrganizationRequest) (*OrganizationResponse, error)
	GetByID(ctx context.Context, id string) (*OrganizationResponse, error)
	UpdateTimezone(ctx context.Context, id string, timezone string) (*OrganizationResponse, error)
	// Location resolves the organization's IANA timezone.
	Location(ctx context.Context, orgID snowflake.ID) (*time.Location, error)
}

type CreateOrganizationRequest struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
}

type UpdateTimezoneRequest struct {
	Timezone string `json:"timezone"`
}

type OrganizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidTimezone     = errors.New("invalid_timezone")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrDuplicateSlug       = errors.New("duplicate_slug")
	ErrNotFound            = errors.New("not_found")
)
