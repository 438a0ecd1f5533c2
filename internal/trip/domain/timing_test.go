package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRemainingOrOverdue(t *testing.T) {
	now := baseTime

	tests := []struct {
		name      string
		scheduled time.Time
		want      Countdown
	}{
		{"two hours ahead", now.Add(2 * time.Hour), Countdown{Text: "2 hours"}},
		{"one hour ahead", now.Add(time.Hour + 20*time.Minute), Countdown{Text: "1 hour"}},
		{"days ahead", now.Add(50 * time.Hour), Countdown{Text: "2 days"}},
		{"minutes ahead", now.Add(45 * time.Minute), Countdown{Text: "45 minutes"}},
		{"one minute ahead", now.Add(time.Minute), Countdown{Text: "1 minute"}},
		{"exact boundary", now, Countdown{Text: "Due now"}},
		{"just past boundary", now.Add(-30 * time.Second), Countdown{Text: "Due now"}},
		{"thirty minutes late", now.Add(-30 * time.Minute), Countdown{Text: "30m overdue", IsOverdue: true}},
		{"hours late", now.Add(-3*time.Hour - 10*time.Minute), Countdown{Text: "3h overdue", IsOverdue: true}},
		{"days late", now.Add(-49 * time.Hour), Countdown{Text: "2d overdue", IsOverdue: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingOrOverdue(tt.scheduled, now))
		})
	}
}

func TestElapsedSince(t *testing.T) {
	now := baseTime
	assert.Equal(t, "0m", ElapsedSince(now, now))
	assert.Equal(t, "15m", ElapsedSince(now.Add(-15*time.Minute), now))
	assert.Equal(t, "2h 5m", ElapsedSince(now.Add(-125*time.Minute), now))
	assert.Equal(t, "0m", ElapsedSince(now.Add(time.Hour), now), "future timestamps clamp to zero")
}

func TestDurationBetween(t *testing.T) {
	start := baseTime
	assert.Equal(t, "0m", DurationBetween(start, start))
	assert.Equal(t, "42m", DurationBetween(start, start.Add(42*time.Minute)))
	assert.Equal(t, "3h 0m", DurationBetween(start, start.Add(3*time.Hour)))
	assert.Equal(t, "1d 4h 10m", DurationBetween(start, start.Add(28*time.Hour+10*time.Minute)))
	assert.Equal(t, "0m", DurationBetween(start, start.Add(-time.Hour)))
}

func TestTripDuration(t *testing.T) {
	_, ok := TripDuration(tripThrough(5, TripStatusActive))
	assert.False(t, ok)

	// trip_started в +30m, delivery_verified в +240m
	got, ok := TripDuration(tripThrough(9, TripStatusCompleted))
	assert.True(t, ok)
	assert.Equal(t, "3h 30m", got)
}
