package finder

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pixelfederation/spot-finder/finder/provider"
)

const namespace = "spot_finder"

// Drop reasons reported by rows_dropped_total.
const (
	DropInvalidPrice = "invalid_price"
	DropUnqualified  = "unqualified"
	DropTruncated    = "truncated"
)

// Metrics collects the statistics of one run. They can be written in the
// node-exporter textfile format once the run is over.
type Metrics struct {
	registry       *prometheus.Registry
	duration       prometheus.Gauge
	success        prometheus.Gauge
	pages          *prometheus.CounterVec
	observations   *prometheus.CounterVec
	skipped        *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	catalogEntries prometheus.Gauge
	selected       prometheus.Gauge
	spotPrice      *prometheus.GaugeVec
}

// NewMetrics returns run metrics registered on their own registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "The run duration.",
		}),
		success: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_success",
			Help:      "1 if the last run completed, 0 if it failed.",
		}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Spot price history pages fetched.",
		}, []string{"region"}),
		observations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_total",
			Help:      "Spot price observations fetched.",
		}, []string{"region"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observations_skipped_total",
			Help:      "Spot price observations not matching the instance type regexes.",
		}, []string{"region"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows removed by the pipeline, by reason.",
		}, []string{"reason"}),
		catalogEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_instance_types",
			Help:      "Instance types in the catalog.",
		}),
		selected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_selected",
			Help:      "Rows in the final shortlist.",
		}),
		spotPrice: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "spot_price",
			Help:      "Hourly spot price of the shortlisted instance types.",
		}, []string{"instance_type", "region", "availability_zone", "memory", "vcpu"}),
	}
	m.registry.MustRegister(m.duration, m.success, m.pages, m.observations, m.skipped,
		m.dropped, m.catalogEntries, m.selected, m.spotPrice)
	return m
}

// WriteTextfile writes all metrics to path, atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("error writing metrics to '%s': %w", path, err)
	}
	return nil
}

func (m *Metrics) setShortlist(records []provider.JoinedRecord) {
	m.spotPrice.Reset()
	m.selected.Set(float64(len(records)))
	for _, r := range records {
		price, ok := r.SpotPrice()
		if !ok || r.Spec == nil {
			continue
		}
		value, _ := price.Float64()
		m.spotPrice.With(prometheus.Labels{
			"instance_type":     r.InstanceType,
			"region":            r.Price.Region,
			"availability_zone": r.Price.AvailabilityZone,
			"memory":            fmt.Sprintf("%g", r.Spec.MemoryGB),
			"vcpu":              fmt.Sprintf("%d", r.Spec.VCpu),
		}).Set(value)
	}
}
