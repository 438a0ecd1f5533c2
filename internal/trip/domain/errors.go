package domain

import "errors"

var (
	// ErrTripNotFound возвращается когда рейс не найден
	ErrTripNotFound = errors.New("trip not found")

	// ErrInvalidTrip возвращается при некорректных данных нового рейса
	ErrInvalidTrip = errors.New("invalid trip")

	// ErrDuplicateTrip возвращается когда рейс по заявке уже создан
	ErrDuplicateTrip = errors.New("trip for this request already exists")

	// ErrUnknownMilestone возвращается для статуса вне канонической последовательности
	ErrUnknownMilestone = errors.New("unknown milestone")

	// ErrOutOfOrder возвращается когда предыдущий этап еще не достигнут
	ErrOutOfOrder = errors.New("milestone out of order")

	// ErrMilestoneAlreadyReached возвращается при повторной отправке этапа
	ErrMilestoneAlreadyReached = errors.New("milestone already reached")

	// ErrRoleNotPermitted возвращается когда роль не может выполнить переход
	ErrRoleNotPermitted = errors.New("role not permitted for this transition")

	// ErrVerifierRequired возвращается при попытке продвинуть gated-этап через advance
	ErrVerifierRequired = errors.New("milestone requires verifier confirmation")

	// ErrNotTripParticipant возвращается когда пользователь не участник рейса
	ErrNotTripParticipant = errors.New("user is not a participant of this trip")

	// ErrTripClosed возвращается при изменении завершенного, отмененного или остановленного рейса
	ErrTripClosed = errors.New("trip is closed")

	// ErrInvalidIssueReason возвращается при неизвестной причине проблемы
	ErrInvalidIssueReason = errors.New("invalid issue reason")

	// ErrCancelReasonRequired возвращается при отмене без причины
	ErrCancelReasonRequired = errors.New("cancel reason is required")

	// ErrCancelNotAllowed возвращается когда отмена уже невозможна
	ErrCancelNotAllowed = errors.New("trip can no longer be canceled")
)
