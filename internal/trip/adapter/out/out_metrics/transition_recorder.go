package out_metrics

import (
	"buildorite/internal/shared/metrics"
	"buildorite/internal/trip/domain"
)

// PrometheusRecorder реализует out.TransitionRecorder поверх счетчиков Prometheus
type PrometheusRecorder struct{}

// NewPrometheusRecorder создает recorder
func NewPrometheusRecorder() *PrometheusRecorder {
	return &PrometheusRecorder{}
}

func (PrometheusRecorder) RecordTransition(m domain.Milestone, role domain.Role) {
	metrics.IncTransition(string(m), string(role))
}

func (PrometheusRecorder) RecordRejection(operation, reason string) {
	metrics.IncRejection(operation, reason)
}

func (PrometheusRecorder) RecordStatusChange(status domain.TripStatus) {
	metrics.IncStatusChange(string(status))
}
