package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/orgcontext"
	"github.com/smallbiznis/donora/internal/user/domain"
	"github.com/smallbiznis/donora/internal/user/repository"
	"github.com/smallbiznis/donora/pkg/db/dbtest"
	"github.com/smallbiznis/donora/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	return New(Params{
		DB:    dbtest.Open(t, &domain.User{}),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
}

func TestCreateAndGetUser(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 10)

	user, err := svc.Create(ctx, domain.CreateUserRequest{Name: "Ayu", Email: " Ayu@Example.org "})
	require.NoError(t, err)
	assert.Equal(t, "ayu@example.org", user.Email)

	got, err := svc.GetByID(ctx, user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ayu", got.Name)

	_, err = svc.GetByID(orgcontext.WithOrgID(context.Background(), 11), user.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "Ayu 2", Email: "ayu@example.org"})
	assert.ErrorIs(t, err, domain.ErrDuplicateEmail)
}

func TestCreateUserValidation(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateUserRequest{Name: "x", Email: "x@y"})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)

	ctx := orgcontext.WithOrgID(context.Background(), 10)
	_, err = svc.Create(ctx, domain.CreateUserRequest{Email: "x@y"})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	_, err = svc.Create(ctx, domain.CreateUserRequest{Name: "x", Email: "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)
}

func TestListUsersPaginates(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 10)

	for _, email := range []string{"a@x.org", "b@x.org", "c@x.org"} {
		_, err := svc.Create(ctx, domain.CreateUserRequest{Name: email, Email: email})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, domain.ListUserRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	assert.Len(t, first.Users, 2)
	assert.True(t, first.HasMore)

	second, err := svc.List(ctx, domain.ListUserRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	assert.Len(t, second.Users, 1)
	assert.False(t, second.HasMore)

	_, err = svc.List(ctx, domain.ListUserRequest{Pagination: pagination.Pagination{PageToken: "garbage!"}})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestFindByIDs(t *testing.T) {
	svc := newTestService(t)
	ctx := orgcontext.WithOrgID(context.Background(), 10)

	a, err := svc.Create(ctx, domain.CreateUserRequest{Name: "A", Email: "a@x.org"})
	require.NoError(t, err)

	found, err := svc.FindByIDs(ctx, 10, []snowflake.ID{a.ID, 999})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "A", found[a.ID].Name)
}
