package domain

import (
	"fmt"
	"strings"
	"time"
)

// dueNowWindow — в пределах этого окна вокруг нуля срок считается "сейчас"
const dueNowWindow = time.Minute

// Countdown — оставшееся время до даты по расписанию или просрочка.
type Countdown struct {
	Text      string `json:"text"`
	IsOverdue bool   `json:"is_overdue"`
}

// ElapsedSince форматирует now − ts как "2h 15m" или "15m".
func ElapsedSince(ts, now time.Time) string {
	d := now.Sub(ts)
	if d < 0 {
		d = 0
	}
	hours := int(d / time.Hour)
	minutes := int(d/time.Minute) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

// RemainingOrOverdue считает знаковую разницу между scheduled и now.
func RemainingOrOverdue(scheduled, now time.Time) Countdown {
	d := scheduled.Sub(now)

	switch {
	case d >= dueNowWindow:
		if days := int(d / (24 * time.Hour)); days >= 1 {
			return Countdown{Text: plural(days, "day")}
		}
		if hours := int(d / time.Hour); hours >= 1 {
			return Countdown{Text: plural(hours, "hour")}
		}
		return Countdown{Text: plural(int(d/time.Minute), "minute")}

	case d > -dueNowWindow:
		return Countdown{Text: "Due now"}
	}

	overdue := -d
	if days := int(overdue / (24 * time.Hour)); days >= 1 {
		return Countdown{Text: fmt.Sprintf("%dd overdue", days), IsOverdue: true}
	}
	if hours := int(overdue / time.Hour); hours >= 1 {
		return Countdown{Text: fmt.Sprintf("%dh overdue", hours), IsOverdue: true}
	}
	return Countdown{Text: fmt.Sprintf("%dm overdue", int(overdue/time.Minute)), IsOverdue: true}
}

// DurationBetween форматирует end − start как "1d 4h 10m", ведущие нули опускаются.
func DurationBetween(start, end time.Time) string {
	d := end.Sub(start)
	if d < 0 {
		d = 0
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	minutes := int(d/time.Minute) % 60

	parts := make([]string, 0, 3)
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if days > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	parts = append(parts, fmt.Sprintf("%dm", minutes))
	return strings.Join(parts, " ")
}

// TripDuration — время от trip_started до delivery_verified для сводки по завершенному рейсу.
func TripDuration(trip *Trip) (string, bool) {
	if trip == nil {
		return "", false
	}
	started, ok := trip.EventFor(MilestoneTripStarted)
	if !ok {
		return "", false
	}
	verified, ok := trip.EventFor(MilestoneDeliveryVerified)
	if !ok {
		return "", false
	}
	return DurationBetween(started.Timestamp, verified.Timestamp), true
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
