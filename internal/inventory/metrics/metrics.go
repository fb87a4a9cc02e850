package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the inventory module.
type Metrics struct {
	// Loads by result: "ok" or "unavailable"
	Loads *prometheus.CounterVec

	LoadDuration prometheus.Histogram

	// Records dropped during a load, by reason: "malformed" or "interrupted"
	Skipped *prometheus.CounterVec

	// Records folded into an existing item through the HTTP write path
	Merged prometheus.Counter

	Items prometheus.Gauge

	Searches prometheus.Counter
}

// New registers the inventory metrics on reg. Passing a fresh registry keeps
// tests independent of the global one.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Loads: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockroom_inventory_loads_total",
			Help: "Total inventory loads by result",
		}, []string{"result"}),

		LoadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "stockroom_inventory_load_duration_seconds",
			Help:    "Duration of folding the configured source into a repository",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),

		Skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "stockroom_inventory_skipped_records_total",
			Help: "Records dropped while loading, by reason",
		}, []string{"reason"}),

		Merged: f.NewCounter(prometheus.CounterOpts{
			Name: "stockroom_inventory_merged_records_total",
			Help: "Received records merged into an existing item",
		}),

		Items: f.NewGauge(prometheus.GaugeOpts{
			Name: "stockroom_inventory_items",
			Help: "Distinct items currently held",
		}),

		Searches: f.NewCounter(prometheus.CounterOpts{
			Name: "stockroom_inventory_searches_total",
			Help: "Text searches served",
		}),
	}
}

func (m *Metrics) ObserveLoad(result string, d time.Duration) {
	if m != nil {
		m.Loads.WithLabelValues(result).Inc()
		m.LoadDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementSkipped(reason string) {
	if m != nil {
		m.Skipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) IncrementMerged() {
	if m != nil {
		m.Merged.Inc()
	}
}

func (m *Metrics) SetItems(n int) {
	if m != nil {
		m.Items.Set(float64(n))
	}
}

func (m *Metrics) IncrementSearches() {
	if m != nil {
		m.Searches.Inc()
	}
}
