package cloudmetrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	campaigndomain "github.com/smallbiznis/donora/internal/campaign/domain"
	"github.com/smallbiznis/donora/internal/config"
	organizationdomain "github.com/smallbiznis/donora/internal/organization/domain"
	"github.com/smallbiznis/donora/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPusherDisabled(t *testing.T) {
	assert.Nil(t, NewPusher(config.Config{}, zap.NewNop()))
	assert.Nil(t, NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{Enabled: true}}, zap.NewNop()))
	assert.Nil(t, NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{
		Enabled: true, Exporter: "statsd", Endpoint: "http://collector",
	}}, zap.NewNop()))
}

func TestNewPusherSelectsExporter(t *testing.T) {
	rw := NewPusher(config.Config{MetricsPush: config.MetricsPushConfig{
		Enabled: true, Exporter: exporterPrometheusRemoteWrite, Endpoint: "http://collector/api/v1/write",
	}}, zap.NewNop())
	assert.IsType(t, &RemoteWritePusher{}, rw)

	pg := NewPusher(config.Config{AppName: "donora", MetricsPush: config.MetricsPushConfig{
		Enabled: true, Exporter: exporterPrometheusPushgateway, Endpoint: "http://pushgateway:9091",
	}}, zap.NewNop())
	assert.IsType(t, &PushgatewayPusher{}, pg)
}

func TestRemoteWritePushEncodesSeries(t *testing.T) {
	var (
		got     prompb.WriteRequest
		headers http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	registry := prometheus.NewRegistry()
	backlog := NewBacklog(registry)
	backlog.drops.WithLabelValues("pending").Set(3)

	pusher := NewRemoteWritePusher(srv.URL, "secret")
	pusher.now = func() time.Time { return time.UnixMilli(1700000000000) }
	require.NoError(t, pusher.Push(context.Background(), registry))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))

	var found bool
	for _, ts := range got.Timeseries {
		labels := map[string]string{}
		for _, l := range ts.Labels {
			labels[l.Name] = l.Value
		}
		if labels["__name__"] == "donora_scheduled_drops" && labels["status"] == "pending" {
			found = true
			require.Len(t, ts.Samples, 1)
			assert.Equal(t, float64(3), ts.Samples[0].Value)
			assert.Equal(t, int64(1700000000000), ts.Samples[0].Timestamp)
		}
	}
	assert.True(t, found)
}

func TestRemoteWritePushReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	registry := prometheus.NewRegistry()
	NewBacklog(registry).organizations.Set(1)

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), registry)
	assert.ErrorContains(t, err, "502")
}

func TestBacklogRefreshCountsByStatus(t *testing.T) {
	conn := dbtest.Open(t, append([]any{&organizationdomain.Organization{}}, campaigndomain.Models()...)...)
	now := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, conn.Create(&organizationdomain.Organization{ID: 1, Name: "Main", Slug: "main", Timezone: "UTC", CreatedAt: now, UpdatedAt: now}).Error)
	for i, status := range []campaigndomain.DropStatus{
		campaigndomain.DropStatusPending,
		campaigndomain.DropStatusPending,
		campaigndomain.DropStatusSent,
	} {
		require.NoError(t, conn.Create(&campaigndomain.ScheduledDrop{
			ID:           snowflake.ID(100 + i),
			OrgID:        1,
			CampaignID:   10,
			Position:     i,
			LocalDate:    fmt.Sprintf("2024-03-%02d", i+1),
			PublishAtUTC: now,
			Status:       status,
			CreatedAt:    now,
			UpdatedAt:    now,
		}).Error)
	}

	registry := prometheus.NewRegistry()
	backlog := NewBacklog(registry)
	require.NoError(t, backlog.Refresh(context.Background(), conn))

	families, err := registry.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			key := family.GetName()
			for _, label := range metric.GetLabel() {
				key += ":" + label.GetValue()
			}
			values[key] = metric.GetGauge().GetValue()
		}
	}
	assert.Equal(t, float64(1), values["donora_organizations_total"])
	assert.Equal(t, float64(2), values["donora_scheduled_drops:pending"])
	assert.Equal(t, float64(1), values["donora_scheduled_drops:sent"])
}
