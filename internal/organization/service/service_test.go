package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/internal/cache"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/config"
	"github.com/smallbiznis/donora/internal/organization/domain"
	"github.com/smallbiznis/donora/internal/organization/repository"
	"github.com/smallbiznis/donora/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return New(Params{
		DB:        dbtest.Open(t, &domain.Organization{}),
		Log:       zap.NewNop(),
		GenID:     node,
		Clock:     clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		Config:    config.Config{DefaultTimezone: "UTC"},
		Repo:      repository.Provide(),
		Locations: cache.NewLocationCache(),
	})
}

func TestCreateOrganization(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, domain.CreateOrganizationRequest{Name: "Helping Hands Foundation", Timezone: "America/New_York"})
	require.NoError(t, err)
	assert.Equal(t, "helping-hands-foundation", org.Slug)
	assert.Equal(t, "America/New_York", org.Timezone)

	got, err := svc.GetByID(ctx, org.ID)
	require.NoError(t, err)
	assert.Equal(t, org.Name, got.Name)

	_, err = svc.Create(ctx, domain.CreateOrganizationRequest{Name: "Helping Hands Foundation"})
	assert.ErrorIs(t, err, domain.ErrDuplicateSlug)
}

func TestCreateOrganizationValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateOrganizationRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(context.Background(), domain.CreateOrganizationRequest{Name: "A", Timezone: "Mars/Olympus"})
	assert.ErrorIs(t, err, domain.ErrInvalidTimezone)
}

func TestCreateOrganizationDefaultsTimezone(t *testing.T) {
	svc := newTestService(t)

	org, err := svc.Create(context.Background(), domain.CreateOrganizationRequest{Name: "Default TZ"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", org.Timezone)
}

func TestLocationFollowsTimezoneUpdate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	org, err := svc.Create(ctx, domain.CreateOrganizationRequest{Name: "Jakarta Relief", Timezone: "Asia/Jakarta"})
	require.NoError(t, err)
	orgID, err := snowflake.ParseString(org.ID)
	require.NoError(t, err)

	loc, err := svc.Location(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Jakarta", loc.String())

	_, err = svc.UpdateTimezone(ctx, org.ID, "Europe/London")
	require.NoError(t, err)

	loc, err = svc.Location(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loc.String())

	_, err = svc.UpdateTimezone(ctx, "12345", "Europe/London")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetByIDErrors(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetByID(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	_, err = svc.GetByID(context.Background(), "999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
