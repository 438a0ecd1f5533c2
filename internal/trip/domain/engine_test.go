package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

var allRoles = []Role{RoleDriver, RoleTruckOwner, RoleMineOwner}

// tripThrough строит рейс, прошедший первые n этапов.
func tripThrough(n int, status TripStatus) *Trip {
	t := &Trip{ID: "trip-1", Status: status}
	for i := 0; i < n; i++ {
		t.MilestoneHistory = append(t.MilestoneHistory, MilestoneEvent{
			Status:    Sequence[i],
			Timestamp: baseTime.Add(time.Duration(i) * 30 * time.Minute),
		})
	}
	return t
}

func TestLatestMilestone(t *testing.T) {
	t.Run("empty history falls back to sentinel", func(t *testing.T) {
		got := LatestMilestone(&Trip{Status: TripStatusActive})
		assert.Equal(t, MilestoneTripAssigned, got.Status)
		assert.Equal(t, "Not Available", got.Label)
		assert.Nil(t, got.Timestamp)
	})

	t.Run("nil trip falls back to sentinel", func(t *testing.T) {
		got := LatestMilestone(nil)
		assert.Equal(t, MilestoneTripAssigned, got.Status)
	})

	t.Run("last entry wins", func(t *testing.T) {
		trip := tripThrough(3, TripStatusActive)
		got := LatestMilestone(trip)
		assert.Equal(t, MilestoneArrivedAtPickup, got.Status)
		assert.Equal(t, "Arrived at Pickup", got.Label)
		require.NotNil(t, got.Timestamp)
		assert.Equal(t, baseTime.Add(time.Hour), *got.Timestamp)
	})
}

func TestNextAction_Scenarios(t *testing.T) {
	t.Run("assigned trip offers Start Trip to driver", func(t *testing.T) {
		trip := tripThrough(1, TripStatusActive)
		assert.Equal(t, MilestoneTripAssigned, LatestMilestone(trip).Status)

		got := NextAction(trip, RoleDriver)
		assert.Equal(t, Action{Kind: ActionAvailable, Milestone: MilestoneTripStarted, Label: "Start Trip"}, got)
		assert.True(t, got.Enabled())
	})

	t.Run("loading complete waits on mine owner", func(t *testing.T) {
		trip := tripThrough(4, TripStatusActive)

		driver := NextAction(trip, RoleDriver)
		assert.Equal(t, ActionWaiting, driver.Kind)
		assert.Equal(t, "Waiting for Mine Owner Verification", driver.Label)
		assert.False(t, driver.Enabled())

		assert.Equal(t, ActionNone, NextAction(trip, RoleTruckOwner).Kind)

		mine := NextAction(trip, RoleMineOwner)
		assert.Equal(t, Action{Kind: ActionAvailable, Milestone: MilestonePickupVerified, Label: "Verify Pickup"}, mine)
	})

	t.Run("delivery complete is verified by truck owner", func(t *testing.T) {
		trip := tripThrough(8, TripStatusActive)

		owner := NextAction(trip, RoleTruckOwner)
		assert.Equal(t, Action{Kind: ActionAvailable, Milestone: MilestoneDeliveryVerified, Label: "Verify Delivery"}, owner)

		driver := NextAction(trip, RoleDriver)
		assert.Equal(t, ActionWaiting, driver.Kind)
		assert.Equal(t, MilestoneDeliveryVerified, driver.Milestone)

		assert.Equal(t, ActionNone, NextAction(trip, RoleMineOwner).Kind)
	})

	t.Run("completed trip is frozen for every role", func(t *testing.T) {
		trip := tripThrough(9, TripStatusCompleted)
		for _, role := range allRoles {
			got := NextAction(trip, role)
			assert.Equal(t, ActionCompleted, got.Kind, role)
			assert.Equal(t, "Trip Completed", got.Label, role)
			assert.False(t, got.Enabled(), role)
		}
		assert.Equal(t, CategoryHistory, Categorize(trip))
	})

	t.Run("issue reported offers nothing", func(t *testing.T) {
		trip := tripThrough(5, TripStatusIssueReported)
		trip.Issue = &Issue{Reason: IssueReasonAccident, Notes: "minor collision"}
		for _, role := range allRoles {
			assert.Equal(t, ActionNone, NextAction(trip, role).Kind, role)
		}
	})

	t.Run("canceled offers nothing", func(t *testing.T) {
		trip := tripThrough(2, TripStatusCanceled)
		for _, role := range allRoles {
			assert.Equal(t, ActionNone, NextAction(trip, role).Kind, role)
		}
	})
}

func TestNextAction_EmptyHistoryTreatsAssignedAsImplicit(t *testing.T) {
	trip := &Trip{Status: TripStatusActive}
	got := NextAction(trip, RoleDriver)
	assert.Equal(t, MilestoneTripStarted, got.Milestone)
	assert.True(t, got.Enabled())
}

func TestNextAction_UnknownRoleGetsNothing(t *testing.T) {
	trip := tripThrough(2, TripStatusActive)
	assert.Equal(t, ActionNone, NextAction(trip, Role("dispatcher")).Kind)
}

func TestNextAction_DriverControlledSteps(t *testing.T) {
	cases := map[int]string{
		1: "Start Trip",
		2: "Mark Arrived at Pickup",
		3: "Mark Loading Complete",
		5: "Start Delivery",
		6: "Mark Arrived at Delivery",
		7: "Mark Delivery Complete",
	}
	for n, label := range cases {
		trip := tripThrough(n, TripStatusActive)
		got := NextAction(trip, RoleDriver)
		assert.Equal(t, ActionAvailable, got.Kind, n)
		assert.Equal(t, Sequence[n], got.Milestone, n)
		assert.Equal(t, label, got.Label, n)

		assert.Equal(t, ActionNone, NextAction(trip, RoleTruckOwner).Kind, n)
		assert.Equal(t, ActionNone, NextAction(trip, RoleMineOwner).Kind, n)
	}
}

// этап из истории никогда не предлагается снова.
func TestNextAction_NeverRepeatsReachedMilestone(t *testing.T) {
	for n := 0; n <= MilestoneCount; n++ {
		trip := tripThrough(n, TripStatusActive)
		for _, role := range allRoles {
			got := NextAction(trip, role)
			if got.Milestone == "" {
				continue
			}
			assert.False(t, trip.HasReached(got.Milestone), "n=%d role=%s", n, role)
		}
	}
}

// одно действие на вызов, и только для ожидаемого следующего этапа.
func TestNextAction_SingleItemMatchesExpectedNext(t *testing.T) {
	for n := 1; n < MilestoneCount; n++ {
		trip := tripThrough(n, TripStatusActive)
		expected, ok := ExpectedNext(trip)
		require.True(t, ok)

		enabled := 0
		for _, role := range allRoles {
			got := NextAction(trip, role)
			if got.Kind == ActionNone {
				continue
			}
			assert.Equal(t, expected, got.Milestone, "n=%d role=%s", n, role)
			if got.Enabled() {
				enabled++
			}
		}
		assert.Equal(t, 1, enabled, "exactly one role can act at n=%d", n)
	}
}

// gate для водителя всегда закрыт.
func TestNextAction_GateEnforcement(t *testing.T) {
	for _, n := range []int{4, 8} {
		trip := tripThrough(n, TripStatusActive)
		gate := Sequence[n]
		verifier, ok := gate.Verifier()
		require.True(t, ok)

		assert.Equal(t, ActionWaiting, NextAction(trip, RoleDriver).Kind)
		assert.True(t, NextAction(trip, verifier).Enabled())
	}
}

func TestNextAction_WaitingTakesPriorityOnMalformedHistory(t *testing.T) {
	trip := tripThrough(4, TripStatusActive)
	// en_route записан без pickup_verified
	trip.MilestoneHistory = append(trip.MilestoneHistory, MilestoneEvent{Status: MilestoneEnRouteToDelivery, Timestamp: baseTime.Add(3 * time.Hour)})

	got := NextAction(trip, RoleDriver)
	assert.Equal(t, ActionWaiting, got.Kind)
	assert.Equal(t, MilestonePickupVerified, got.Milestone)
}

func TestNextAction_NonCanonicalHistoryOffersNoWrite(t *testing.T) {
	skipped := tripThrough(4, TripStatusActive)
	skipped.MilestoneHistory = append(skipped.MilestoneHistory, MilestoneEvent{Status: MilestoneEnRouteToDelivery, Timestamp: baseTime.Add(3 * time.Hour)})

	bogus := tripThrough(2, TripStatusActive)
	bogus.MilestoneHistory = append(bogus.MilestoneHistory, MilestoneEvent{Status: Milestone("bogus"), Timestamp: baseTime.Add(time.Hour)})

	for name, trip := range map[string]*Trip{"skipped gate": skipped, "unknown status": bogus} {
		for _, role := range allRoles {
			assert.False(t, NextAction(trip, role).Enabled(), "%s role=%s", name, role)
		}
		_, ok := ExpectedNext(trip)
		assert.False(t, ok, name)
	}

	assert.Equal(t, ActionNone, NextAction(skipped, RoleMineOwner).Kind)
	assert.ErrorIs(t, ValidateVerify(skipped, MilestonePickupVerified, RoleMineOwner), ErrOutOfOrder)
	assert.ErrorIs(t, ValidateAdvance(bogus, MilestoneArrivedAtPickup, RoleDriver), ErrOutOfOrder)
}

// Включенное действие всегда проходит проверку записи.
func TestNextAction_EnabledImpliesValidWrite(t *testing.T) {
	histories := map[string]*Trip{
		"empty": {Status: TripStatusActive},
		"missing assigned": {Status: TripStatusActive, MilestoneHistory: []MilestoneEvent{
			{Status: MilestoneTripStarted, Timestamp: baseTime},
		}},
		"duplicate": {Status: TripStatusActive, MilestoneHistory: []MilestoneEvent{
			{Status: MilestoneTripAssigned, Timestamp: baseTime},
			{Status: MilestoneTripStarted, Timestamp: baseTime},
			{Status: MilestoneTripStarted, Timestamp: baseTime},
		}},
		"reordered": {Status: TripStatusActive, MilestoneHistory: []MilestoneEvent{
			{Status: MilestoneTripAssigned, Timestamp: baseTime},
			{Status: MilestoneArrivedAtPickup, Timestamp: baseTime},
			{Status: MilestoneTripStarted, Timestamp: baseTime},
		}},
	}
	for n := 0; n <= MilestoneCount; n++ {
		histories[fmt.Sprintf("through %d", n)] = tripThrough(n, TripStatusActive)
	}

	for name, trip := range histories {
		for _, role := range allRoles {
			action := NextAction(trip, role)
			if !action.Enabled() {
				continue
			}
			var err error
			if action.Milestone.IsVerifierGated() {
				err = ValidateVerify(trip, action.Milestone, role)
			} else {
				err = ValidateAdvance(trip, action.Milestone, role)
			}
			assert.NoError(t, err, "%s role=%s milestone=%s", name, role, action.Milestone)
		}
	}
}

func TestNextAction_FullHistoryWithActiveStatus(t *testing.T) {
	trip := tripThrough(9, TripStatusActive)
	assert.Equal(t, ActionCompleted, NextAction(trip, RoleDriver).Kind)
}

// таймлайн всегда из девяти пунктов в каноническом порядке.
func TestBuildTimeline_AlwaysNineItems(t *testing.T) {
	for n := 0; n <= MilestoneCount; n++ {
		trip := tripThrough(n, TripStatusActive)
		items := BuildTimeline(trip)
		require.Len(t, items, MilestoneCount)

		current := 0
		for i, item := range items {
			assert.Equal(t, Sequence[i], item.Status)
			assert.Equal(t, i < n, item.Completed, "n=%d i=%d", n, i)
			assert.Equal(t, item.Completed, item.Timestamp != nil)
			if item.Current {
				current++
			}
		}
		assert.Equal(t, 1, current, "n=%d", n)
	}
}

func TestBuildTimeline_MarksCurrent(t *testing.T) {
	items := BuildTimeline(tripThrough(6, TripStatusActive))
	assert.True(t, items[5].Current)
	assert.Equal(t, MilestoneEnRouteToDelivery, items[5].Status)
	assert.Equal(t, baseTime.Add(150*time.Minute), *items[5].Timestamp)

	empty := BuildTimeline(&Trip{Status: TripStatusActive})
	assert.True(t, empty[0].Current)
	assert.False(t, empty[0].Completed)
}

func TestBuildTimeline_Deterministic(t *testing.T) {
	trip := tripThrough(5, TripStatusActive)
	assert.Equal(t, BuildTimeline(trip), BuildTimeline(trip))
}

func TestProgress(t *testing.T) {
	assert.InDelta(t, 0.0, Progress(&Trip{}), 1e-9)
	assert.InDelta(t, 3.0/9.0, Progress(tripThrough(3, TripStatusActive)), 1e-9)
	assert.InDelta(t, 1.0, Progress(tripThrough(9, TripStatusCompleted)), 1e-9)
	assert.Equal(t, 44, ProgressPercent(tripThrough(4, TripStatusActive)))
	assert.Equal(t, 100, ProgressPercent(tripThrough(9, TripStatusCompleted)))
}
