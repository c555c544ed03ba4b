package service

import (
	"context"
	"errors"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	auditmocks "github.com/smallbiznis/donora/internal/audit/mocks"
	auditrepository "github.com/smallbiznis/donora/internal/audit/repository"
	auditservice "github.com/smallbiznis/donora/internal/audit/service"
	"github.com/smallbiznis/donora/internal/cache"
	"github.com/smallbiznis/donora/internal/campaign/domain"
	"github.com/smallbiznis/donora/internal/campaign/repository"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/config"
	contentdomain "github.com/smallbiznis/donora/internal/content/domain"
	contentrepository "github.com/smallbiznis/donora/internal/content/repository"
	contentservice "github.com/smallbiznis/donora/internal/content/service"
	"github.com/smallbiznis/donora/internal/observability/metrics"
	organizationdomain "github.com/smallbiznis/donora/internal/organization/domain"
	organizationrepository "github.com/smallbiznis/donora/internal/organization/repository"
	organizationservice "github.com/smallbiznis/donora/internal/organization/service"
	"github.com/smallbiznis/donora/internal/orgcontext"
	"github.com/smallbiznis/donora/internal/providers/contentgen"
	userdomain "github.com/smallbiznis/donora/internal/user/domain"
	userrepository "github.com/smallbiznis/donora/internal/user/repository"
	userservice "github.com/smallbiznis/donora/internal/user/service"
	"github.com/smallbiznis/donora/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	db       *gorm.DB
	svc      domain.Service
	clock    *clock.FakeClock
	ctx      context.Context
	orgID    snowflake.ID
	users    []userdomain.User
	contents []contentdomain.ContentItem
}

func newHarness(t *testing.T, audit auditdomain.Service) *harness {
	t.Helper()

	models := append([]any{
		&organizationdomain.Organization{},
		&userdomain.User{},
		&contentdomain.ContentItem{},
		&auditdomain.AuditLog{},
	}, domain.Models()...)
	conn := dbtest.Open(t, models...)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	orgs := organizationservice.New(organizationservice.Params{
		DB: conn, Log: log, GenID: node, Clock: clk,
		Config:    config.Config{DefaultTimezone: "UTC"},
		Repo:      organizationrepository.Provide(),
		Locations: cache.NewLocationCache(),
	})
	users := userservice.New(userservice.Params{DB: conn, Log: log, GenID: node, Clock: clk, Repo: userrepository.Provide()})
	contents := contentservice.New(contentservice.Params{DB: conn, Log: log, GenID: node, Clock: clk, Repo: contentrepository.Provide()})
	if audit == nil {
		audit = auditservice.NewService(auditservice.Params{DB: conn, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide()})
	}

	svc := New(Params{
		DB:            conn,
		Log:           log,
		GenID:         node,
		Clock:         clk,
		Repo:          repository.Provide(),
		Organizations: orgs,
		Users:         users,
		Contents:      contents,
		Generator:     contentgen.NewTemplateProvider(),
		Audit:         audit,
		Policy:        config.NewStaticCampaignPolicyHolder(config.DefaultCampaignPolicy()),
		Metrics:       metrics.NewNop(),
	})

	org, err := orgs.Create(context.Background(), organizationdomain.CreateOrganizationRequest{Name: "Harapan", Timezone: "America/New_York"})
	require.NoError(t, err)
	orgID, err := snowflake.ParseString(org.ID)
	require.NoError(t, err)
	ctx := orgcontext.WithOrgID(context.Background(), orgID)

	h := &harness{db: conn, svc: svc, clock: clk, ctx: ctx, orgID: orgID}
	for _, email := range []string{"u1@example.org", "u2@example.org"} {
		u, err := users.Create(ctx, userdomain.CreateUserRequest{Name: email[:2], Email: email})
		require.NoError(t, err)
		h.users = append(h.users, u)
	}
	for _, title := range []string{"itemA", "itemB"} {
		item, err := contents.Create(ctx, contentdomain.CreateContentItemRequest{Title: title, Body: title + " body"})
		require.NoError(t, err)
		h.contents = append(h.contents, item)
	}
	return h
}

func (h *harness) request() domain.CreateCampaignRequest {
	end := "2024-03-11"
	return domain.CreateCampaignRequest{
		Name:          "Spring appeal",
		StartDate:     "2024-03-08",
		EndDate:       &end,
		SendTimeLocal: "07:00",
		Channels:      []string{"web", "whatsapp"},
		UserIDs:       []string{h.users[0].ID.String(), h.users[1].ID.String()},
		ContentItems:  []string{h.contents[0].ID.String(), h.contents[1].ID.String()},
	}
}

func (h *harness) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, h.db.Model(model).Count(&n).Error)
	return n
}

func TestCreateExpandsCampaign(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.svc.Create(h.ctx, h.request())
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusActive, resp.Status)
	assert.Equal(t, "America/New_York", resp.Timezone)
	assert.Equal(t, []string{"web", "whatsapp"}, resp.Channels)
	assert.EqualValues(t, 4, resp.ScheduledDropsCount)

	assert.EqualValues(t, 4, h.count(t, &domain.ScheduledDrop{}))
	assert.EqualValues(t, 16, h.count(t, &domain.SendJob{}))
	assert.EqualValues(t, 2, h.count(t, &domain.CampaignRecipient{}))
	assert.EqualValues(t, 1, h.count(t, &auditdomain.AuditLog{}))

	drops, err := h.svc.ListDrops(h.ctx, resp.ID)
	require.NoError(t, err)
	require.Len(t, drops, 4)

	wantUTC := []time.Time{
		time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 11, 11, 0, 0, 0, time.UTC),
	}
	wantTitles := []string{"itemA", "itemB", "itemA", "itemB"}
	for i, drop := range drops {
		assert.True(t, wantUTC[i].Equal(drop.PublishAtUTC), "drop %d: %s", i, drop.PublishAtUTC)
		require.NotNil(t, drop.ContentItem)
		assert.Equal(t, wantTitles[i], drop.ContentItem.Title)
		assert.Equal(t, domain.DropStatusPending, drop.Status)
		assert.EqualValues(t, 4, drop.SendJobsCount)
	}

	detail, err := h.svc.GetDrop(h.ctx, resp.ID, drops[2].ID)
	require.NoError(t, err)
	require.Len(t, detail.SendJobs, 4)
	assert.Equal(t, "web", detail.SendJobs[0].Channel)
	assert.Equal(t, "whatsapp", detail.SendJobs[1].Channel)
	assert.Equal(t, h.users[0].ID.String(), detail.SendJobs[0].User.ID)
	assert.Equal(t, "u1", detail.SendJobs[0].User.Name)
	assert.Equal(t, h.users[1].ID.String(), detail.SendJobs[2].User.ID)
	for _, job := range detail.SendJobs {
		assert.Equal(t, domain.SendJobStatusQueued, job.Status)
	}
}

func TestCreateRejectsInvalidSpecWithoutWrites(t *testing.T) {
	h := newHarness(t, nil)
	before := "2024-03-01"

	cases := []struct {
		name  string
		edit  func(*domain.CreateCampaignRequest)
		field string
	}{
		{"empty channels", func(r *domain.CreateCampaignRequest) { r.Channels = nil }, "channels"},
		{"unsupported channel", func(r *domain.CreateCampaignRequest) { r.Channels = []string{"pigeon"} }, "channels"},
		{"empty recipients", func(r *domain.CreateCampaignRequest) { r.UserIDs = nil }, "user_ids"},
		{"unknown recipient", func(r *domain.CreateCampaignRequest) { r.UserIDs = []string{"12345"} }, "user_ids"},
		{"empty rotation", func(r *domain.CreateCampaignRequest) { r.ContentItems = nil }, "content_items"},
		{"end before start", func(r *domain.CreateCampaignRequest) { r.EndDate = &before }, "end_date"},
		{"missing name", func(r *domain.CreateCampaignRequest) { r.Name = " " }, "name"},
		{"bad send time", func(r *domain.CreateCampaignRequest) { r.SendTimeLocal = "7am" }, "send_time_local"},
		{"prompt with items", func(r *domain.CreateCampaignRequest) { r.Prompt = "x"; r.ContentCount = 2 }, "content_items"},
		{"count without prompt", func(r *domain.CreateCampaignRequest) { r.ContentCount = 2 }, "prompt"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := h.request()
			tc.edit(&req)

			_, err := h.svc.Create(h.ctx, req)
			require.ErrorIs(t, err, domain.ErrInvalidCampaignSpec)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.True(t, verr.Has(tc.field), "violations: %+v", verr.Violations)
		})
	}

	assert.Zero(t, h.count(t, &domain.Campaign{}))
	assert.Zero(t, h.count(t, &domain.ScheduledDrop{}))
	assert.Zero(t, h.count(t, &domain.SendJob{}))
	assert.Zero(t, h.count(t, &auditdomain.AuditLog{}))
}

func TestCreateIsAtomic(t *testing.T) {
	ctrl := gomock.NewController(t)
	audit := auditmocks.NewMockService(ctrl)
	audit.EXPECT().
		Record(gomock.Any(), gomock.Not(gomock.Nil()), gomock.AssignableToTypeOf(auditdomain.Entry{})).
		DoAndReturn(func(_ context.Context, _ *gorm.DB, entry auditdomain.Entry) error {
			assert.Equal(t, "campaign.create", entry.Action)
			return errors.New("audit store unavailable")
		}).
		Times(1)
	h := newHarness(t, audit)

	_, err := h.svc.Create(h.ctx, h.request())
	require.Error(t, err)

	assert.Zero(t, h.count(t, &domain.Campaign{}))
	assert.Zero(t, h.count(t, &domain.CampaignRecipient{}))
	assert.Zero(t, h.count(t, &domain.CampaignContent{}))
	assert.Zero(t, h.count(t, &domain.ScheduledDrop{}))
	assert.Zero(t, h.count(t, &domain.SendJob{}))
}

func TestGetReportsCorruptChannels(t *testing.T) {
	h := newHarness(t, nil)
	resp, err := h.svc.Create(h.ctx, h.request())
	require.NoError(t, err)

	id, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)
	require.NoError(t, h.db.Exec(`UPDATE campaigns SET channels = ? WHERE id = ?`, `{"web"`, id).Error)

	_, err = h.svc.Get(h.ctx, resp.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode channels of campaign "+resp.ID)

	_, err = h.svc.List(h.ctx, domain.ListCampaignRequest{})
	assert.Error(t, err)
}

func TestCreateAICampaignGeneratesRotation(t *testing.T) {
	h := newHarness(t, nil)
	req := h.request()
	req.ContentItems = nil
	req.EndDate = nil
	req.Prompt = "Clean water"
	req.ContentCount = 3

	resp, err := h.svc.Create(h.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignSourceAI, resp.Source)
	require.NotNil(t, resp.EndDate)
	assert.Equal(t, "2024-03-10", *resp.EndDate)
	assert.EqualValues(t, 3, resp.ScheduledDropsCount)

	drops, err := h.svc.ListDrops(h.ctx, resp.ID)
	require.NoError(t, err)
	require.Len(t, drops, 3)
	assert.Equal(t, "Clean water #1", drops[0].ContentItem.Title)
	assert.Equal(t, "Clean water #3", drops[2].ContentItem.Title)
	assert.Equal(t, "ai", drops[0].ContentItem.Meta["source"])

	// two seeded items plus three generated
	assert.EqualValues(t, 5, h.count(t, &contentdomain.ContentItem{}))
}

func TestCancelOnlyTouchesPendingDrops(t *testing.T) {
	h := newHarness(t, nil)
	req := h.request()
	end := "2024-03-12"
	req.EndDate = &end

	resp, err := h.svc.Create(h.ctx, req)
	require.NoError(t, err)

	drops, err := h.svc.ListDrops(h.ctx, resp.ID)
	require.NoError(t, err)
	require.Len(t, drops, 5)
	for _, drop := range drops[:2] {
		id, err := snowflake.ParseString(drop.ID)
		require.NoError(t, err)
		require.NoError(t, h.db.Model(&domain.ScheduledDrop{}).Where("id = ?", id).Update("status", domain.DropStatusSent).Error)
	}

	cancelled, err := h.svc.Cancel(h.ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusCancelled, cancelled.Status)

	var statuses []domain.DropStatus
	require.NoError(t, h.db.Model(&domain.ScheduledDrop{}).Order("position asc").Pluck("status", &statuses).Error)
	assert.Equal(t, []domain.DropStatus{
		domain.DropStatusSent,
		domain.DropStatusSent,
		domain.DropStatusCancelled,
		domain.DropStatusCancelled,
		domain.DropStatusCancelled,
	}, statuses)

	var queued int64
	require.NoError(t, h.db.Model(&domain.SendJob{}).Where("status = ?", domain.SendJobStatusQueued).Count(&queued).Error)
	assert.EqualValues(t, 20, queued)

	again, err := h.svc.Cancel(h.ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusCancelled, again.Status)

	_, err = h.svc.Resume(h.ctx, resp.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPauseResume(t *testing.T) {
	h := newHarness(t, nil)
	resp, err := h.svc.Create(h.ctx, h.request())
	require.NoError(t, err)

	paused, err := h.svc.Pause(h.ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusPaused, paused.Status)

	_, err = h.svc.Pause(h.ctx, resp.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	resumed, err := h.svc.Resume(h.ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusActive, resumed.Status)

	_, err = h.svc.Pause(h.ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
	_, err = h.svc.Pause(h.ctx, "42")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.EqualValues(t, 3, h.count(t, &auditdomain.AuditLog{}))
}

func TestReportDeliveryTransitions(t *testing.T) {
	h := newHarness(t, nil)
	resp, err := h.svc.Create(h.ctx, h.request())
	require.NoError(t, err)

	var jobs []domain.SendJob
	require.NoError(t, h.db.Order("id asc").Limit(3).Find(&jobs).Error)
	require.Len(t, jobs, 3)

	sent, err := h.svc.ReportDelivery(h.ctx, jobs[0].ID.String(), domain.ReportDeliveryRequest{Status: "sent"})
	require.NoError(t, err)
	assert.Equal(t, domain.SendJobStatusSent, sent.Status)

	_, err = h.svc.ReportDelivery(h.ctx, jobs[0].ID.String(), domain.ReportDeliveryRequest{Status: "sent"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	delivered, err := h.svc.ReportDelivery(h.ctx, jobs[0].ID.String(), domain.ReportDeliveryRequest{Status: "delivered"})
	require.NoError(t, err)
	assert.Equal(t, domain.SendJobStatusDelivered, delivered.Status)

	_, err = h.svc.ReportDelivery(h.ctx, jobs[0].ID.String(), domain.ReportDeliveryRequest{Status: "failed"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	failed, err := h.svc.ReportDelivery(h.ctx, jobs[1].ID.String(), domain.ReportDeliveryRequest{Status: "FAILED"})
	require.NoError(t, err)
	assert.Equal(t, domain.SendJobStatusFailed, failed.Status)

	_, err = h.svc.ReportDelivery(h.ctx, jobs[2].ID.String(), domain.ReportDeliveryRequest{Status: "queued"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = h.svc.ReportDelivery(orgcontext.WithOrgID(context.Background(), 999), jobs[2].ID.String(), domain.ReportDeliveryRequest{Status: "sent"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := h.svc.Get(h.ctx, resp.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CampaignStatusActive, got.Status)
}

func TestListCampaigns(t *testing.T) {
	h := newHarness(t, nil)
	for i := 0; i < 3; i++ {
		_, err := h.svc.Create(h.ctx, h.request())
		require.NoError(t, err)
	}

	list, err := h.svc.List(h.ctx, domain.ListCampaignRequest{})
	require.NoError(t, err)
	require.Len(t, list.Campaigns, 3)
	assert.EqualValues(t, 4, list.Campaigns[0].ScheduledDropsCount)
	assert.False(t, list.HasMore)

	_, err = h.svc.Cancel(h.ctx, list.Campaigns[0].ID)
	require.NoError(t, err)

	active, err := h.svc.List(h.ctx, domain.ListCampaignRequest{Status: "active"})
	require.NoError(t, err)
	assert.Len(t, active.Campaigns, 2)

	_, err = h.svc.List(h.ctx, domain.ListCampaignRequest{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = h.svc.List(context.Background(), domain.ListCampaignRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidOrganization)
}
