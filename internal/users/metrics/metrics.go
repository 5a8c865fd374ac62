package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the user registry module.
type Metrics struct {
	UsersRegistered  prometheus.Counter
	NameConflicts    prometheus.Counter
	FeesCollected    prometheus.Counter
	FeesWithdrawn    prometheus.Counter
	RegisterDuration prometheus.Histogram
}

// New creates a Metrics instance with all user registry metrics registered.
func New() *Metrics {
	return &Metrics{
		UsersRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_users_registered_total",
			Help: "Total number of user profiles created",
		}),
		NameConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_username_conflicts_total",
			Help: "Registrations and renames rejected because the username was taken",
		}),
		FeesCollected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_user_fees_collected_total",
			Help: "Registration fees collected in the user domain, smallest currency unit",
		}),
		FeesWithdrawn: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bazaar_user_fees_withdrawn_total",
			Help: "Fees withdrawn by the admin in the user domain, smallest currency unit",
		}),
		RegisterDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bazaar_user_register_duration_seconds",
			Help:    "Duration of user registration (admission critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveRegister records the duration of a Register operation.
// Call with time.Now() captured at the start of the operation.
func (m *Metrics) ObserveRegister(start time.Time) {
	m.RegisterDuration.Observe(time.Since(start).Seconds())
}
