// Package metrics records per-stage task outcomes and run totals in a
// private Prometheus registry, optionally pushed to a Pushgateway at exit.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/shopspring/decimal"
)

const namespace = "tenbis"

// Task outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Recorder holds the run's metrics. A nil *Recorder is valid and records nothing.
type Recorder struct {
	reg *prometheus.Registry

	tasks         *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	totalCoupons  prometheus.Gauge
	totalAmount   prometheus.Gauge
	unusedCoupons prometheus.Gauge
	unusedAmount  prometheus.Gauge
}

// NewRecorder creates a Recorder backed by its own registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Recorder{
		reg: reg,
		tasks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "tasks_total",
			Help:      "Remote tasks per stage by outcome.",
		}, []string{"stage", "outcome"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"stage"}),
		totalCoupons: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "coupons",
			Help:      "Vendor transactions found in the lookback window.",
		}),
		totalAmount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "coupons_amount",
			Help:      "Total amount of vendor transactions.",
		}),
		unusedCoupons: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "unused_coupons",
			Help:      "Unused coupons kept after filtering.",
		}),
		unusedAmount: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "summary",
			Name:      "unused_coupons_amount",
			Help:      "Amount left on unused coupons.",
		}),
	}
}

// Registry exposes the underlying registry for gathering and tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Task counts one finished task of a stage.
func (r *Recorder) Task(stage, outcome string) {
	if r == nil {
		return
	}
	r.tasks.WithLabelValues(stage, outcome).Inc()
}

// ObserveStage records how long a stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetSummary publishes the run totals.
func (r *Recorder) SetSummary(totalCount, unusedCount int, totalAmount, unusedAmount decimal.Decimal) {
	if r == nil {
		return
	}
	r.totalCoupons.Set(float64(totalCount))
	r.unusedCoupons.Set(float64(unusedCount))
	r.totalAmount.Set(totalAmount.InexactFloat64())
	r.unusedAmount.Set(unusedAmount.InexactFloat64())
}

// Push sends everything recorded so far to a Pushgateway.
func (r *Recorder) Push(ctx context.Context, gatewayURL, job string) error {
	if r == nil || gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(r.reg).PushContext(ctx); err != nil {
		return fmt.Errorf("Push: pushing to %s: %w", gatewayURL, err)
	}
	return nil
}
