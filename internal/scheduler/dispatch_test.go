package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	auditdomain "github.com/smallbiznis/donora/internal/audit/domain"
	auditrepository "github.com/smallbiznis/donora/internal/audit/repository"
	auditservice "github.com/smallbiznis/donora/internal/audit/service"
	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	campaignrepository "github.com/smallbiznis/donora/internal/campaign/repository"
	"github.com/smallbiznis/donora/internal/clock"
	"github.com/smallbiznis/donora/internal/delivery"
	obsmetrics "github.com/smallbiznis/donora/internal/observability/metrics"
	schedtesting "github.com/smallbiznis/donora/internal/scheduler/testing"
	"github.com/smallbiznis/donora/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const testOrgID = snowflake.ID(7001)

type dispatchHarness struct {
	db        *gorm.DB
	sched     *Scheduler
	clock     *clock.FakeClock
	publisher *delivery.MemoryPublisher
	registry  *prometheus.Registry
	node      *snowflake.Node
}

func newDispatchHarness(t *testing.T, cfg Config) *dispatchHarness {
	t.Helper()

	registry := prometheus.NewRegistry()
	t.Cleanup(swapPrometheusRegistry(registry))
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{ServiceName: "donora", Environment: "test"})

	conn := dbtest.Open(t, append(campaigndomain.Models(), &auditdomain.AuditLog{})...)
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 3, 10, 12, 0, 30, 0, time.UTC))
	log := zap.NewNop()
	publisher := delivery.NewMemoryPublisher()

	sched, err := New(Params{
		DB:        conn,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Campaigns: campaignrepository.Provide(),
		Publisher: publisher,
		AuditSvc: auditservice.NewService(auditservice.Params{
			DB: conn, Log: log, GenID: node, Clock: clk, Repo: auditrepository.Provide(),
		}),
		Metrics: obsmetrics.NewNop(),
		Config:  cfg,
	})
	require.NoError(t, err)

	return &dispatchHarness{db: conn, sched: sched, clock: clk, publisher: publisher, registry: registry, node: node}
}

// seedCampaign stores a campaign with one drop per publish time and two
// recipients on one channel per drop.
func (h *dispatchHarness) seedCampaign(t *testing.T, status campaigndomain.CampaignStatus, publishAt ...time.Time) (campaigndomain.Campaign, []campaigndomain.ScheduledDrop) {
	t.Helper()
	now := h.clock.Now()
	campaign := campaigndomain.Campaign{
		ID:            h.node.Generate(),
		OrgID:         testOrgID,
		Name:          "Dispatch",
		Source:        campaigndomain.CampaignSourceManual,
		StartDate:     "2024-03-10",
		SendTimeLocal: "08:00",
		Timezone:      "America/New_York",
		Channels:      datatypes.JSON(`["web"]`),
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	require.NoError(t, h.db.Create(&campaign).Error)

	var drops []campaigndomain.ScheduledDrop
	for i, at := range publishAt {
		drop := campaigndomain.ScheduledDrop{
			ID:            h.node.Generate(),
			OrgID:         testOrgID,
			CampaignID:    campaign.ID,
			Position:      i,
			LocalDate:     at.Format("2006-01-02"),
			PublishAtUTC:  at,
			ContentItemID: snowflake.ID(900 + i),
			Status:        campaigndomain.DropStatusPending,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		require.NoError(t, h.db.Create(&drop).Error)
		for position, userID := range []snowflake.ID{101, 102} {
			job := campaigndomain.SendJob{
				ID:         h.node.Generate(),
				OrgID:      testOrgID,
				CampaignID: campaign.ID,
				DropID:     drop.ID,
				UserID:     userID,
				Channel:    "web",
				Position:   position,
				Status:     campaigndomain.SendJobStatusQueued,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			require.NoError(t, h.db.Create(&job).Error)
		}
		drops = append(drops, drop)
	}
	return campaign, drops
}

func (h *dispatchHarness) dropStatus(t *testing.T, id snowflake.ID) campaigndomain.DropStatus {
	t.Helper()
	var drop campaigndomain.ScheduledDrop
	require.NoError(t, h.db.Where("id = ?", id).Take(&drop).Error)
	return drop.Status
}

func (h *dispatchHarness) jobStatuses(t *testing.T, dropID snowflake.ID) []campaigndomain.SendJobStatus {
	t.Helper()
	var jobs []campaigndomain.SendJob
	require.NoError(t, h.db.Where("drop_id = ?", dropID).Order("position asc").Find(&jobs).Error)
	out := make([]campaigndomain.SendJobStatus, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, job.Status)
	}
	return out
}

func TestDispatchPublishesOnlyDueDrops(t *testing.T) {
	h := newDispatchHarness(t, Config{})
	due := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	campaign, drops := h.seedCampaign(t, campaigndomain.CampaignStatusActive, due, due.Add(24*time.Hour))

	require.NoError(t, h.sched.RunOnce(context.Background()))

	messages := h.publisher.Messages()
	require.Len(t, messages, 2)
	for i, msg := range messages {
		assert.Len(t, msg.ID, 26)
		assert.Equal(t, drops[0].ID.String(), msg.DropID)
		assert.Equal(t, campaign.ID.String(), msg.CampaignID)
		assert.Equal(t, "web", msg.Channel)
		assert.Equal(t, "900", msg.ContentItemID)
		assert.True(t, due.Equal(msg.PublishAt))
		assert.Equal(t, []string{"101", "102"}[i], msg.UserID)
	}

	assert.Equal(t, campaigndomain.DropStatusSent, h.dropStatus(t, drops[0].ID))
	assert.Equal(t, []campaigndomain.SendJobStatus{campaigndomain.SendJobStatusSent, campaigndomain.SendJobStatusSent}, h.jobStatuses(t, drops[0].ID))
	assert.Equal(t, campaigndomain.DropStatusPending, h.dropStatus(t, drops[1].ID))

	var audits int64
	require.NoError(t, h.db.Model(&auditdomain.AuditLog{}).Where("action = ?", "scheduled_drop.sent").Count(&audits).Error)
	assert.EqualValues(t, 1, audits)

	labels := map[string]string{"service": "donora", "env": "test", "from": "pending", "to": "expanded"}
	assert.EqualValues(t, 1, getCounterValue(t, h.registry, "donora_scheduled_drop_transition_total", labels))

	require.NoError(t, h.sched.RunOnce(context.Background()))
	assert.Len(t, h.publisher.Messages(), 2)
}

func TestDispatchSkipsInactiveCampaigns(t *testing.T) {
	h := newDispatchHarness(t, Config{})
	due := time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)
	_, paused := h.seedCampaign(t, campaigndomain.CampaignStatusPaused, due)
	_, cancelled := h.seedCampaign(t, campaigndomain.CampaignStatusCancelled, due)

	require.NoError(t, h.sched.RunOnce(context.Background()))

	assert.Empty(t, h.publisher.Messages())
	assert.Equal(t, campaigndomain.DropStatusPending, h.dropStatus(t, paused[0].ID))
	assert.Equal(t, campaigndomain.DropStatusPending, h.dropStatus(t, cancelled[0].ID))
}

func TestDispatchRetriesExpandedDropAfterPublishFailure(t *testing.T) {
	h := newDispatchHarness(t, Config{})
	due := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	_, drops := h.seedCampaign(t, campaigndomain.CampaignStatusActive, due)

	h.publisher.FailWith(errors.New("broker down"))
	err := h.sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, obsmetrics.ErrDelivery)

	assert.Equal(t, campaigndomain.DropStatusExpanded, h.dropStatus(t, drops[0].ID))
	assert.Equal(t, []campaigndomain.SendJobStatus{campaigndomain.SendJobStatusQueued, campaigndomain.SendJobStatusQueued}, h.jobStatuses(t, drops[0].ID))

	h.publisher.FailWith(nil)
	h.clock.Advance(30 * time.Second)
	require.NoError(t, h.sched.RunOnce(context.Background()))

	assert.Len(t, h.publisher.Messages(), 2)
	assert.Equal(t, campaigndomain.DropStatusSent, h.dropStatus(t, drops[0].ID))
}

func TestDispatchRollsBackOnlyTheFailingDrop(t *testing.T) {
	h := newDispatchHarness(t, Config{})
	base := time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC)
	_, drops := h.seedCampaign(t, campaigndomain.CampaignStatusActive, base, base.Add(time.Hour))

	var jobUpdates atomic.Int32
	require.NoError(t, h.db.Callback().Raw().Before("gorm:raw").Register("test:fail_first_job_update", func(tx *gorm.DB) {
		if strings.HasPrefix(tx.Statement.SQL.String(), "UPDATE send_jobs") && jobUpdates.Add(1) == 1 {
			_ = tx.AddError(errors.New("disk full"))
		}
	}))

	err := h.sched.RunOnce(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, obsmetrics.ErrDelivery)

	assert.Equal(t, campaigndomain.DropStatusPending, h.dropStatus(t, drops[0].ID))
	assert.Equal(t, []campaigndomain.SendJobStatus{campaigndomain.SendJobStatusQueued, campaigndomain.SendJobStatusQueued}, h.jobStatuses(t, drops[0].ID))
	assert.Equal(t, campaigndomain.DropStatusSent, h.dropStatus(t, drops[1].ID))
	assert.Equal(t, []campaigndomain.SendJobStatus{campaigndomain.SendJobStatusSent, campaigndomain.SendJobStatusSent}, h.jobStatuses(t, drops[1].ID))
	assert.Len(t, h.publisher.Messages(), 3)

	require.NoError(t, h.sched.RunOnce(context.Background()))
	assert.Equal(t, campaigndomain.DropStatusSent, h.dropStatus(t, drops[0].ID))
	assert.Len(t, h.publisher.Messages(), 5)
}

func TestDispatchHonoursBatchSize(t *testing.T) {
	h := newDispatchHarness(t, Config{BatchSize: 1})
	base := time.Date(2024, 3, 10, 10, 0, 0, 0, time.UTC)
	_, drops := h.seedCampaign(t, campaigndomain.CampaignStatusActive, base, base.Add(time.Hour))

	require.NoError(t, h.sched.RunOnce(context.Background()))
	assert.Equal(t, campaigndomain.DropStatusSent, h.dropStatus(t, drops[0].ID))
	assert.Equal(t, campaigndomain.DropStatusPending, h.dropStatus(t, drops[1].ID))

	require.NoError(t, h.sched.RunOnce(context.Background()))
	assert.Equal(t, campaigndomain.DropStatusSent, h.dropStatus(t, drops[1].ID))
	assert.Len(t, h.publisher.Messages(), 4)
}

func TestDisabledJobDoesNotRun(t *testing.T) {
	h := newDispatchHarness(t, Config{EnabledJobs: []string{"something_else"}})
	due := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	_, drops := h.seedCampaign(t, campaigndomain.CampaignStatusActive, due)

	require.NoError(t, h.sched.RunOnce(context.Background()))
	assert.Empty(t, h.publisher.Messages())
	assert.Equal(t, campaigndomain.DropStatusPending, h.dropStatus(t, drops[0].ID))
}

func TestTimeAcceleratorMakesFutureDropDue(t *testing.T) {
	h := newDispatchHarness(t, Config{})
	future := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	campaign, drops := h.seedCampaign(t, campaigndomain.CampaignStatusActive, future, future.Add(24*time.Hour))

	accel := schedtesting.NewTimeAccelerator(h.db)
	info, err := accel.GetDropInfo(context.Background(), drops[0].ID, h.clock.Now())
	require.NoError(t, err)
	assert.False(t, info.IsDue)
	assert.EqualValues(t, 2, info.QueuedJobs)

	require.NoError(t, accel.FastForwardDrop(context.Background(), drops[0].ID, h.clock.Now()))
	require.NoError(t, h.sched.RunOnce(context.Background()))
	assert.Equal(t, campaigndomain.DropStatusSent, h.dropStatus(t, drops[0].ID))
	assert.Equal(t, campaigndomain.DropStatusPending, h.dropStatus(t, drops[1].ID))

	moved, err := accel.FastForwardCampaign(context.Background(), campaign.ID, h.clock.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, moved)
	require.NoError(t, h.sched.RunOnce(context.Background()))
	assert.Len(t, h.publisher.Messages(), 4)

	info, err = accel.GetDropInfo(context.Background(), drops[1].ID, h.clock.Now())
	require.NoError(t, err)
	assert.Equal(t, campaigndomain.DropStatusSent, info.Status)
	assert.Zero(t, info.QueuedJobs)
}
