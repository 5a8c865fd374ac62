package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the vendor registry module.
type Metrics struct {
	VendorsRegistered prometheus.Counter
	NameConflicts     prometheus.Counter
	FeesCollected     prometheus.Counter
	FeesWithdrawn     prometheus.Counter
	ProductsAdded     prometheus.Counter
	ProductsRemoved   prometheus.Counter
	RegistrationOpen  prometheus.Gauge
	RegisterDuration  prometheus.Histogram
}

// New creates a Metrics instance with all vendor registry metrics registered.
func New() *Metrics {
	m := &Metrics{
		VendorsRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_vendors_registered_total",
			Help: "Total number of vendor profiles created",
		}),
		NameConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_vendor_name_conflicts_total",
			Help: "Registrations and renames rejected because the vendor name was taken",
		}),
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_vendor_fees_collected_total",
			Help: "Registration fees collected in the vendor domain, smallest currency unit",
		}),
		FeesWithdrawn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_vendor_fees_withdrawn_total",
			Help: "Fees withdrawn by the admin in the vendor domain, smallest currency unit",
		}),
		ProductsAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_vendor_products_added_total",
			Help: "Products added across all vendor catalogs",
		}),
		ProductsRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_vendor_products_removed_total",
			Help: "Products removed across all vendor catalogs",
		}),
		RegistrationOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "bazaar_vendor_registration_open",
			Help: "1 while vendor registration is accepting new vendors, 0 while paused",
		}),
		RegisterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bazaar_vendor_register_duration_seconds",
			Help:    "Duration of vendor registration (admission critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
	m.RegistrationOpen.Set(1)
	return m
}

// ObserveRegister records the duration of a Register operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}

// SetPaused reflects the registration pause switch.
func (m *Metrics) SetPaused(paused bool) {
	if paused {
		m.RegistrationOpen.Set(0)
		return
	}
	m.RegistrationOpen.Set(1)
}
