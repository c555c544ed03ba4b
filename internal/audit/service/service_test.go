package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	"github.com/smallbiznis/donora/internal/audit/repository"
	"github.com/smallbiznis/donora/internal/clock"
	obscontext "github.com/smallbiznis/donora/internal/observability/context"
	"github.com/smallbiznis/donora/internal/orgcontext"
	"github.com/smallbiznis/donora/pkg/db/dbtest"
	"github.com/smallbiznis/donora/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (auditdomain.Service, *clock.FakeClock) {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewService(Params{
		DB:    dbtest.Open(t, &auditdomain.AuditLog{}),
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	}), clk
}

func TestRecordResolvesActorAndMasks(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := obscontext.WithActor(context.Background(), obscontext.ActorTypeUser, "42")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	require.NoError(t, svc.Record(ctx, nil, auditdomain.Entry{
		OrgID:      7,
		Action:     "campaign.create",
		TargetType: "campaign",
		TargetID:   "100",
		Metadata:   map[string]any{"name": "Spring", "email": "ayu@example.org"},
	}))

	resp, err := svc.List(orgcontext.WithOrgID(context.Background(), 7), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)

	entry := resp.AuditLogs[0]
	assert.Equal(t, "user", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "42", *entry.ActorID)
	assert.Equal(t, "a****@example.org", entry.Metadata["email"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
}

func TestRecordDefaultsToSystemActor(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.Record(context.Background(), nil, auditdomain.Entry{OrgID: 7, Action: "campaign.cancel"}))

	resp, err := svc.List(orgcontext.WithOrgID(context.Background(), 7), auditdomain.ListAuditLogRequest{})
	require.NoError(t, err)
	require.Len(t, resp.AuditLogs, 1)
	assert.Equal(t, "system", resp.AuditLogs[0].ActorType)
	assert.Nil(t, resp.AuditLogs[0].ActorID)
	assert.Equal(t, "unknown", resp.AuditLogs[0].TargetType)
}

func TestRecordRequiresAction(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Record(context.Background(), nil, auditdomain.Entry{OrgID: 7})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListPaginatesAndFilters(t *testing.T) {
	svc, clk := newTestService(t)
	ctx := context.Background()
	for _, action := range []string{"campaign.create", "campaign.pause", "campaign.resume"} {
		require.NoError(t, svc.Record(ctx, nil, auditdomain.Entry{OrgID: 7, Action: action}))
		clk.Advance(time.Minute)
	}

	orgCtx := orgcontext.WithOrgID(ctx, 7)
	first, err := svc.List(orgCtx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, first.AuditLogs, 2)
	assert.Equal(t, "campaign.resume", first.AuditLogs[0].Action)
	assert.True(t, first.HasMore)

	second, err := svc.List(orgCtx, auditdomain.ListAuditLogRequest{Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.AuditLogs, 1)
	assert.Equal(t, "campaign.create", second.AuditLogs[0].Action)

	filtered, err := svc.List(orgCtx, auditdomain.ListAuditLogRequest{Action: "campaign.pause"})
	require.NoError(t, err)
	assert.Len(t, filtered.AuditLogs, 1)

	_, err = svc.List(ctx, auditdomain.ListAuditLogRequest{})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidOrganization)
}
