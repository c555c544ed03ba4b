package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifySchedulerJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "deadline",
			err:  context.DeadlineExceeded,
			want: SchedulerJobReasonDeadlineExceeded,
		},
		{
			name: "delivery",
			err:  fmt.Errorf("publish: %w", ErrDelivery),
			want: SchedulerJobReasonDelivery,
		},
		{
			name: "db_lock_timeout",
			err:  &pgconn.PgError{Code: "55P03"},
			want: SchedulerJobReasonDBLockTimeout,
		},
		{
			name: "serialization_failure",
			err:  &pgconn.PgError{Code: "40001"},
			want: SchedulerJobReasonSerializationFailure,
		},
		{
			name: "unique_violation",
			err:  gorm.ErrDuplicatedKey,
			want: SchedulerJobReasonUniqueViolation,
		},
		{
			name: "unknown",
			err:  errors.New("boom"),
			want: SchedulerJobReasonUnknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifySchedulerJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestIsSchedulerErrorRetryable(t *testing.T) {
	if !IsSchedulerErrorRetryable(fmt.Errorf("wrap: %w", ErrDelivery)) {
		t.Fatalf("expected delivery errors to be retryable")
	}
	if IsSchedulerErrorRetryable(errors.New("invalid transition")) {
		t.Fatalf("expected business errors to be terminal")
	}
	if IsSchedulerErrorRetryable(gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found to be terminal")
	}
}

func TestAddBatchProcessed(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{
		ServiceName: "donora",
		Environment: "test",
	})

	metrics.AddBatchProcessed("dispatch_drops", "send_jobs", 3)
	metrics.AddBatchProcessed("dispatch_drops", "send_jobs", 0)

	got := testutil.ToFloat64(metrics.batchProcessed.WithLabelValues("dispatch_drops", "send_jobs"))
	if got != 3 {
		t.Fatalf("expected processed count 3, got %v", got)
	}
}

func TestIncDropTransition(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := newSchedulerMetrics(registry, Config{})

	metrics.IncDropTransition("pending", "expanded")
	metrics.IncDropTransition("pending", "expanded")

	got := testutil.ToFloat64(metrics.dropTransitions.WithLabelValues("pending", "expanded"))
	if got != 2 {
		t.Fatalf("expected 2 transitions, got %v", got)
	}
}
