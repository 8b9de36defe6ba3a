package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "shopkeep"

// Collector is a prometheus.Collector that collects metrics about sale
// transactions.
type Collector struct {
	salesCommitted prometheus.Counter
	salesFailed    *prometheus.CounterVec
	rollbackFailed prometheus.Counter
	unitsSold      prometheus.Counter
	saleDuration   prometheus.Histogram
}

// NewCollector returns a new Collector.
func NewCollector() *Collector {
	return &Collector{
		salesCommitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sales_committed_total",
				Help:      "The number of sales committed.",
			},
		),
		salesFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sales_failed_total",
				Help:      "The number of sales rejected or rolled back, by failure kind.",
			}, []string{"kind"},
		),
		rollbackFailed: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "sale_rollback_failures_total",
				Help:      "The number of sale rollbacks that themselves failed.",
			},
		),
		unitsSold: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "units_sold_total",
				Help:      "The number of stock units decremented by committed sales.",
			},
		),
		saleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "sale_transaction_seconds",
				Help:      "The time taken to record a sale, commit or rollback included.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),
	}
}

// SaleCommitted records a committed sale of units items.
func (c *Collector) SaleCommitted(units int64, took time.Duration) {
	c.salesCommitted.Inc()
	c.unitsSold.Add(float64(units))
	c.saleDuration.Observe(took.Seconds())
}

// SaleFailed records a rejected or rolled back sale.
func (c *Collector) SaleFailed(kind string, took time.Duration) {
	c.salesFailed.WithLabelValues(kind).Inc()
	if took > 0 {
		c.saleDuration.Observe(took.Seconds())
	}
}

// RollbackFailed records a rollback that returned an error.
func (c *Collector) RollbackFailed() {
	c.rollbackFailed.Inc()
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.salesCommitted.Describe(ch)
	c.salesFailed.Describe(ch)
	c.rollbackFailed.Describe(ch)
	c.unitsSold.Describe(ch)
	c.saleDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.salesCommitted.Collect(ch)
	c.salesFailed.Collect(ch)
	c.rollbackFailed.Collect(ch)
	c.unitsSold.Collect(ch)
	c.saleDuration.Collect(ch)
}
