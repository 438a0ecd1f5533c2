package domain

import (
	"math"
	"time"
)

// ============================================================================
// MILESTONE ENGINE
// ============================================================================
//
// Чистые функции над историей этапов. Ничего не хранят, не ходят в сеть и
// не паникуют на кривых данных: вместо ошибки отдают безопасный sentinel,
// чтобы экран рейса всегда можно было отрисовать.
//
// Все экраны (рейс водителя, рейс владельца грузовика, список рейсов,
// расписание) получают состояние только отсюда.
// ============================================================================

// ActionKind — вид следующего шага для роли.
type ActionKind string

const (
	// ActionNone — действий нет (чужой шаг, отмена, проблема)
	ActionNone ActionKind = "none"
	// ActionAvailable — роль может выполнить переход прямо сейчас
	ActionAvailable ActionKind = "actionable"
	// ActionWaiting — переход ждет подтверждения другой стороны
	ActionWaiting ActionKind = "waiting"
	// ActionCompleted — рейс завершен
	ActionCompleted ActionKind = "completed"
)

const (
	tripCompletedLabel          = "Trip Completed"
	waitingPickupVerification   = "Waiting for Mine Owner Verification"
	waitingDeliveryVerification = "Waiting for Delivery Verification"
)

// Action — следующий шаг, который экран показывает роли.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Milestone Milestone  `json:"milestone,omitempty"`
	Label     string     `json:"label,omitempty"`
}

// Enabled — можно ли вызывать запись для этого действия.
func (a Action) Enabled() bool {
	return a.Kind == ActionAvailable
}

// LatestInfo — текущий (последний) этап рейса.
type LatestInfo struct {
	Status    Milestone  `json:"status"`
	Label     string     `json:"label"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// TimelineItem — один из девяти пунктов таймлайна.
type TimelineItem struct {
	Status    Milestone  `json:"status"`
	Label     string     `json:"label"`
	Completed bool       `json:"is_completed"`
	Current   bool       `json:"is_current"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// LatestMilestone возвращает последний элемент истории или sentinel
// {trip_assigned, "Not Available"}, если история пуста.
func LatestMilestone(trip *Trip) LatestInfo {
	if trip == nil || len(trip.MilestoneHistory) == 0 {
		return LatestInfo{Status: MilestoneTripAssigned, Label: NotAvailableLabel}
	}
	last := trip.MilestoneHistory[len(trip.MilestoneHistory)-1]
	ts := last.Timestamp
	return LatestInfo{Status: last.Status, Label: last.Status.Label(), Timestamp: &ts}
}

// NextAction возвращает не более одного следующего шага для роли.
func NextAction(trip *Trip, role Role) Action {
	if trip == nil {
		return Action{Kind: ActionNone}
	}

	switch trip.Status {
	case TripStatusCompleted:
		return Action{Kind: ActionCompleted, Label: tripCompletedLabel}
	case TripStatusActive:
	default:
		// canceled / issue_reported: только баннер
		return Action{Kind: ActionNone}
	}

	n, canonical := progression(trip)
	if n >= MilestoneCount {
		// вся последовательность пройдена, но статус еще не закрыт
		return Action{Kind: ActionCompleted, Label: tripCompletedLabel}
	}

	action := actionFor(Sequence[n], role)
	if !canonical && action.Enabled() {
		// запись все равно будет отклонена: экран показывает только ожидание
		return Action{Kind: ActionNone}
	}
	return action
}

// progression — сколько этапов Sequence пройдено подряд с начала.
// trip_assigned считается достигнутым, даже если его нет в истории.
// canonical=false: после этого префикса в истории есть лишние или чужие записи.
func progression(trip *Trip) (n int, canonical bool) {
	history := trip.MilestoneHistory
	if len(history) > 0 && history[0].Status == MilestoneTripAssigned {
		history = history[1:]
	}
	n = 1
	for _, e := range history {
		if n >= MilestoneCount || e.Status != Sequence[n] {
			return n, false
		}
		n++
	}
	return n, true
}

func actionFor(m Milestone, role Role) Action {
	if m.IsVerifierGated() {
		verifier, _ := m.Verifier()
		switch role {
		case verifier:
			return Action{Kind: ActionAvailable, Milestone: m, Label: actionLabels[m]}
		case RoleDriver:
			return Action{Kind: ActionWaiting, Milestone: m, Label: waitingLabel(m)}
		default:
			return Action{Kind: ActionNone}
		}
	}

	if role != RoleDriver {
		return Action{Kind: ActionNone}
	}
	return Action{Kind: ActionAvailable, Milestone: m, Label: actionLabels[m]}
}

func waitingLabel(m Milestone) string {
	if m == MilestonePickupVerified {
		return waitingPickupVerification
	}
	return waitingDeliveryVerification
}

// BuildTimeline строит фиксированный список из девяти этапов в каноническом порядке.
func BuildTimeline(trip *Trip) []TimelineItem {
	latest := LatestMilestone(trip)
	items := make([]TimelineItem, 0, MilestoneCount)

	for _, m := range Sequence {
		item := TimelineItem{
			Status:  m,
			Label:   m.Label(),
			Current: m == latest.Status,
		}
		if trip != nil {
			if e, ok := trip.EventFor(m); ok {
				ts := e.Timestamp
				item.Completed = true
				item.Timestamp = &ts
			}
		}
		items = append(items, item)
	}
	return items
}

// Progress — доля пройденных этапов, от 0 до 1.
func Progress(trip *Trip) float64 {
	completed := 0
	for _, item := range BuildTimeline(trip) {
		if item.Completed {
			completed++
		}
	}
	return float64(completed) / float64(MilestoneCount)
}

// ProgressPercent — Progress в целых процентах.
func ProgressPercent(trip *Trip) int {
	return int(math.Round(Progress(trip) * 100))
}
