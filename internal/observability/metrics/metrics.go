package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	campaignsCreated    metric.Int64Counter
	dropsCreated        metric.Int64Counter
	sendJobsCreated     metric.Int64Counter
	dropsCancelled      metric.Int64Counter
	referralsCreated    metric.Int64Counter
	deliveriesPublished metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "donora"
	}
	meter := provider.Meter(name)

	counters := map[string]*metric.Int64Counter{}
	m := &Metrics{}
	counters["donora_campaigns_created_total"] = &m.campaignsCreated
	counters["donora_campaign_drops_created_total"] = &m.dropsCreated
	counters["donora_campaign_send_jobs_created_total"] = &m.sendJobsCreated
	counters["donora_campaign_drops_cancelled_total"] = &m.dropsCancelled
	counters["donora_referrals_created_total"] = &m.referralsCreated
	counters["donora_deliveries_published_total"] = &m.deliveriesPublished

	for instrument, target := range counters {
		counter, err := meter.Int64Counter(instrument)
		if err != nil {
			return nil, err
		}
		*target = counter
	}

	return m, nil
}

// NewNop returns instruments backed by the noop provider, for tests.
func NewNop() *Metrics {
	m, _ := New(Config{}, noop.NewMeterProvider())
	return m
}

// RecordCampaignExpanded counts a committed campaign and its fan-out.
func (m *Metrics) RecordCampaignExpanded(ctx context.Context, orgID string, drops, jobs int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))...)
	m.campaignsCreated.Add(ctx, 1, attrs)
	m.dropsCreated.Add(ctx, int64(drops), attrs)
	m.sendJobsCreated.Add(ctx, int64(jobs), attrs)
}

// RecordDropsCancelled counts drops moved to cancelled.
func (m *Metrics) RecordDropsCancelled(ctx context.Context, orgID string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	attrs := FilterAttributes(attribute.String("org_id", strings.TrimSpace(orgID)))
	m.dropsCancelled.Add(ctx, count, metric.WithAttributes(attrs...))
}

// RecordReferral counts referral enrollment outcomes.
func (m *Metrics) RecordReferral(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("outcome", strings.TrimSpace(outcome)))
	m.referralsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDeliveryPublished counts messages handed to the delivery driver.
func (m *Metrics) RecordDeliveryPublished(ctx context.Context, driver, channel string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("driver", strings.TrimSpace(driver)),
		attribute.String("channel", strings.TrimSpace(channel)),
	)
	m.deliveriesPublished.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"org_id":      {},
	"channel":     {},
	"driver":      {},
	"outcome":     {},
	"status_code": {},
	"route":       {},
	"reason":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
