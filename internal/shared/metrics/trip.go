package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TripTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildorite_trip_transitions_total",
		Help: "Accepted milestone transitions by milestone and actor role",
	}, []string{"milestone", "role"})

	TripRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildorite_trip_rejections_total",
		Help: "Rejected trip writes by operation and reason",
	}, []string{"operation", "reason"})

	TripStatusChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "buildorite_trip_status_changes_total",
		Help: "Trips entering a status other than active",
	}, []string{"status"})
)

// IncTransition records an accepted milestone write.
func IncTransition(milestone, role string) {
	TripTransitionsTotal.WithLabelValues(orUnknown(milestone), orUnknown(role)).Inc()
}

// IncRejection records a write refused by the trip rules or by storage.
func IncRejection(operation, reason string) {
	TripRejectionsTotal.WithLabelValues(orUnknown(operation), orUnknown(reason)).Inc()
}

func IncStatusChange(status string) {
	TripStatusChangesTotal.WithLabelValues(orUnknown(status)).Inc()
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
