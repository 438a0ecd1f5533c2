package in

import (
	"time"

	"buildorite/internal/trip/domain"
)

// TripView — рейс вместе с производным состоянием для роли, которая его смотрит.
type TripView struct {
	Trip            *domain.Trip          `json:"trip"`
	Role            domain.Role           `json:"role"`
	LatestMilestone domain.LatestInfo     `json:"latest_milestone"`
	NextAction      domain.Action         `json:"next_action"`
	Timeline        []domain.TimelineItem `json:"timeline"`
	ProgressPercent int                   `json:"progress_percent"`
	Category        domain.Category       `json:"category"`
	Elapsed         string                `json:"elapsed,omitempty"`
	Countdown       *domain.Countdown     `json:"countdown,omitempty"`
	Duration        string                `json:"duration,omitempty"`
}

// BuildTripView собирает представление рейса на момент now.
func BuildTripView(trip *domain.Trip, role domain.Role, now time.Time) *TripView {
	latest := domain.LatestMilestone(trip)
	view := &TripView{
		Trip:            trip,
		Role:            role,
		LatestMilestone: latest,
		NextAction:      domain.NextAction(trip, role),
		Timeline:        domain.BuildTimeline(trip),
		ProgressPercent: domain.ProgressPercent(trip),
		Category:        domain.Categorize(trip),
	}

	if view.Category == domain.CategoryActive && latest.Timestamp != nil {
		view.Elapsed = domain.ElapsedSince(*latest.Timestamp, now)
	}
	if view.Category == domain.CategoryScheduled && trip.ScheduledAt != nil {
		c := domain.RemainingOrOverdue(*trip.ScheduledAt, now)
		view.Countdown = &c
	}
	if d, ok := domain.TripDuration(trip); ok {
		view.Duration = d
	}
	return view
}
