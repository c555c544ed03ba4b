package cloudmetrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Backlog gauges the fan-out tables by status.
type Backlog struct {
	organizations prometheus.Gauge
	campaigns     *prometheus.GaugeVec
	drops         *prometheus.GaugeVec
	sendJobs      *prometheus.GaugeVec
}

func NewBacklog(registry *prometheus.Registry) *Backlog {
	b := &Backlog{
		organizations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "donora_organizations_total",
			Help: "Organizations known to this deployment.",
		}),
		campaigns: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "donora_campaigns",
			Help: "Campaigns by status.",
		}, []string{"status"}),
		drops: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "donora_scheduled_drops",
			Help: "Scheduled drops by status.",
		}, []string{"status"}),
		sendJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "donora_send_jobs",
			Help: "Send jobs by status.",
		}, []string{"status"}),
	}
	if registry != nil {
		registry.MustRegister(b.organizations, b.campaigns, b.drops, b.sendJobs)
	}
	return b
}

type statusCount struct {
	Status string
	Count  int64
}

// Refresh recounts every table. Statuses that disappeared drop to zero.
func (b *Backlog) Refresh(ctx context.Context, db *gorm.DB) error {
	var orgs int64
	if err := db.WithContext(ctx).Table("organizations").Count(&orgs).Error; err != nil {
		return err
	}
	b.organizations.Set(float64(orgs))

	for table, vec := range map[string]*prometheus.GaugeVec{
		"campaigns":       b.campaigns,
		"scheduled_drops": b.drops,
		"send_jobs":       b.sendJobs,
	} {
		var rows []statusCount
		if err := db.WithContext(ctx).
			Table(table).
			Select("status, COUNT(*) AS count").
			Group("status").
			Scan(&rows).Error; err != nil {
			return err
		}
		vec.Reset()
		for _, row := range rows {
			vec.WithLabelValues(row.Status).Set(float64(row.Count))
		}
	}
	return nil
}
