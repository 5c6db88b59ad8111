// Package metrics exposes Prometheus collectors for batching outcomes.
package metrics

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/leapstack-labs/pcrbatch/pkg/core"
)

const namespace = "pcrbatch"

// Collector records batch outcomes on its own registry.
type Collector struct {
	registry *prometheus.Registry

	requests       prometheus.Counter
	plans          prometheus.Counter
	plansCancelled prometheus.Counter
	binsTrimmed    prometheus.Counter
	failures       *prometheus.CounterVec
	binsPerPlan    prometheus.Histogram
	stripwells     prometheus.Counter
}

// New creates a Collector with all metrics registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Reaction requests submitted to the batcher.",
		}),
		plans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_total",
			Help:      "Reaction plans assembled.",
		}),
		plansCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_cancelled_total",
			Help:      "Reaction plans cancelled by the operator or by a production failure.",
		}),
		binsTrimmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bins_trimmed_total",
			Help:      "Temperature bins dropped for exceeding the thermocycler row limit.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "request_failures_total",
			Help:      "Requests recorded as failed, by failure kind.",
		}, []string{"kind"}),
		binsPerPlan: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "bins_per_plan",
			Help:      "Distinct temperature bins per assembled plan.",
			Buckets:   prometheus.LinearBuckets(1, 1, 8),
		}),
		stripwells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stripwells_total",
			Help:      "Stripwells produced for surviving plans.",
		}),
	}
	c.registry.MustRegister(c.requests, c.plans, c.plansCancelled, c.binsTrimmed, c.failures, c.binsPerPlan, c.stripwells)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveRequests counts n submitted requests.
func (c *Collector) ObserveRequests(n int) {
	c.requests.Add(float64(n))
}

// ObservePlan records one finished plan.
func (c *Collector) ObservePlan(plan *core.ReactionPlan) {
	c.plans.Inc()
	c.binsPerPlan.Observe(float64(len(plan.Bins)))
	c.binsTrimmed.Add(float64(len(plan.TrimmedBins)))
	if plan.Cancelled {
		c.plansCancelled.Inc()
		return
	}
	c.stripwells.Add(float64(len(plan.Stripwells)))
}

// ObserveFailures counts failures by kind.
func (c *Collector) ObserveFailures(failures []core.Failure) {
	for _, f := range failures {
		c.failures.WithLabelValues(string(f.Kind)).Inc()
	}
}

// WriteText writes every metric in the Prometheus text exposition format.
func (c *Collector) WriteText(w io.Writer) error {
	families, err := c.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to write metric %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
