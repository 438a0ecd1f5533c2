package out

import "buildorite/internal/trip/domain"

// TransitionRecorder — счетчики переходов и отказов
type TransitionRecorder interface {
	RecordTransition(m domain.Milestone, role domain.Role)
	RecordRejection(operation, reason string)
	RecordStatusChange(status domain.TripStatus)
}
