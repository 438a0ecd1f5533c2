package usecase

import (
	"context"
	"sync"
	"testing"

	"buildorite/internal/trip/application/ports/in"
	"buildorite/internal/trip/application/ports/out"
	"buildorite/internal/trip/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceMilestone_Success(t *testing.T) {
	h := newHarness(seededTrip(1, domain.TripStatusActive))
	ctx := context.Background()

	view, err := h.advance().Execute(ctx, in.AdvanceMilestoneInput{
		TripID:    "trip-1",
		ActorID:   "driver-1",
		Role:      domain.RoleDriver,
		Milestone: domain.MilestoneTripStarted,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MilestoneTripStarted, view.LatestMilestone.Status)
	assert.Equal(t, domain.CategoryActive, view.Category)
	assert.Equal(t, domain.MilestoneArrivedAtPickup, view.NextAction.Milestone)
	assert.Equal(t, 22, view.ProgressPercent)
	assert.Equal(t, "0m", view.Elapsed)

	stored, err := h.repo.FindByID(ctx, "trip-1")
	require.NoError(t, err)
	require.Len(t, stored.MilestoneHistory, 2)
	assert.Equal(t, testNow, stored.MilestoneHistory[1].Timestamp)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, out.EventMilestoneAdvanced, h.publisher.events[0].Type)
	assert.Equal(t, domain.MilestoneTripStarted, h.publisher.events[0].Data.Milestone)

	for _, userID := range []string{"driver-1", "truck-owner-1", "mine-owner-1"} {
		require.Len(t, h.notifier.sent[userID], 1, userID)
		assert.Equal(t, "trip_update", h.notifier.sent[userID][0].Type)
	}
	mineView, ok := h.notifier.sent["mine-owner-1"][0].Data.(*in.TripView)
	require.True(t, ok)
	assert.Equal(t, domain.RoleMineOwner, mineView.Role)
	assert.False(t, mineView.NextAction.Enabled())

	assert.Equal(t, []domain.Milestone{domain.MilestoneTripStarted}, h.recorder.transitions)
}

func TestAdvanceMilestone_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		trip    *domain.Trip
		input   in.AdvanceMilestoneInput
		wantErr error
		reason  string
	}{
		{
			name:    "skip ahead",
			trip:    seededTrip(2, domain.TripStatusActive),
			input:   in.AdvanceMilestoneInput{ActorID: "driver-1", Role: domain.RoleDriver, Milestone: domain.MilestoneLoadingComplete},
			wantErr: domain.ErrOutOfOrder,
			reason:  "advance:out_of_order",
		},
		{
			name:    "replay",
			trip:    seededTrip(2, domain.TripStatusActive),
			input:   in.AdvanceMilestoneInput{ActorID: "driver-1", Role: domain.RoleDriver, Milestone: domain.MilestoneTripStarted},
			wantErr: domain.ErrMilestoneAlreadyReached,
			reason:  "advance:already_reached",
		},
		{
			name:    "gated by verifier",
			trip:    seededTrip(4, domain.TripStatusActive),
			input:   in.AdvanceMilestoneInput{ActorID: "driver-1", Role: domain.RoleDriver, Milestone: domain.MilestonePickupVerified},
			wantErr: domain.ErrVerifierRequired,
			reason:  "advance:verifier_required",
		},
		{
			name:    "owner cannot drive",
			trip:    seededTrip(2, domain.TripStatusActive),
			input:   in.AdvanceMilestoneInput{ActorID: "truck-owner-1", Role: domain.RoleTruckOwner, Milestone: domain.MilestoneArrivedAtPickup},
			wantErr: domain.ErrRoleNotPermitted,
			reason:  "advance:role_not_permitted",
		},
		{
			name:    "another driver",
			trip:    seededTrip(2, domain.TripStatusActive),
			input:   in.AdvanceMilestoneInput{ActorID: "driver-2", Role: domain.RoleDriver, Milestone: domain.MilestoneArrivedAtPickup},
			wantErr: domain.ErrNotTripParticipant,
			reason:  "advance:not_participant",
		},
		{
			name:    "closed trip",
			trip:    seededTrip(3, domain.TripStatusIssueReported),
			input:   in.AdvanceMilestoneInput{ActorID: "driver-1", Role: domain.RoleDriver, Milestone: domain.MilestoneLoadingComplete},
			wantErr: domain.ErrTripClosed,
			reason:  "advance:trip_closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(tt.trip)
			tt.input.TripID = tt.trip.ID

			view, err := h.advance().Execute(context.Background(), tt.input)
			assert.Nil(t, view)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, []string{tt.reason}, h.recorder.rejections)

			stored, _ := h.repo.FindByID(context.Background(), tt.trip.ID)
			assert.Len(t, stored.MilestoneHistory, len(tt.trip.MilestoneHistory), "history must not change")
			assert.Empty(t, h.publisher.events)
		})
	}
}

func TestAdvanceMilestone_UnknownTrip(t *testing.T) {
	h := newHarness()
	_, err := h.advance().Execute(context.Background(), in.AdvanceMilestoneInput{
		TripID: "missing", ActorID: "driver-1", Role: domain.RoleDriver, Milestone: domain.MilestoneTripStarted,
	})
	assert.ErrorIs(t, err, domain.ErrTripNotFound)
}

// Одновременные отправки одного этапа: ровно одна проходит.
func TestAdvanceMilestone_ConcurrentDuplicates(t *testing.T) {
	h := newHarness(seededTrip(1, domain.TripStatusActive))
	svc := h.advance()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Execute(context.Background(), in.AdvanceMilestoneInput{
				TripID: "trip-1", ActorID: "driver-1", Role: domain.RoleDriver, Milestone: domain.MilestoneTripStarted,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrMilestoneAlreadyReached)
	}
	assert.Equal(t, 1, succeeded)

	stored, err := h.repo.FindByID(context.Background(), "trip-1")
	require.NoError(t, err)
	assert.Len(t, stored.MilestoneHistory, 2)
}

func TestVerifyMilestone_PickupByMineOwner(t *testing.T) {
	h := newHarness(seededTrip(4, domain.TripStatusActive))

	view, err := h.verify().Execute(context.Background(), in.VerifyMilestoneInput{
		TripID: "trip-1", ActorID: "mine-owner-1", Role: domain.RoleMineOwner, Milestone: domain.MilestonePickupVerified,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MilestonePickupVerified, view.LatestMilestone.Status)
	assert.Equal(t, domain.TripStatusActive, view.Trip.Status)
	assert.Empty(t, h.recorder.statuses)

	driverView := h.notifier.sent["driver-1"][0].Data.(*in.TripView)
	assert.Equal(t, domain.ActionAvailable, driverView.NextAction.Kind)
	assert.Equal(t, domain.MilestoneEnRouteToDelivery, driverView.NextAction.Milestone)
}

func TestVerifyMilestone_DeliveryCompletesTrip(t *testing.T) {
	h := newHarness(seededTrip(8, domain.TripStatusActive))

	view, err := h.verify().Execute(context.Background(), in.VerifyMilestoneInput{
		TripID: "trip-1", ActorID: "truck-owner-1", Role: domain.RoleTruckOwner, Milestone: domain.MilestoneDeliveryVerified,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCompleted, view.Trip.Status)
	assert.Equal(t, domain.CategoryHistory, view.Category)
	assert.Equal(t, 100, view.ProgressPercent)
	assert.NotEmpty(t, view.Duration)
	assert.Equal(t, []domain.TripStatus{domain.TripStatusCompleted}, h.recorder.statuses)

	require.Len(t, h.publisher.events, 1)
	assert.Equal(t, out.EventMilestoneVerified, h.publisher.events[0].Type)
	assert.Equal(t, domain.TripStatusCompleted, h.publisher.events[0].Data.Status)
}

func TestVerifyMilestone_WrongVerifier(t *testing.T) {
	h := newHarness(seededTrip(4, domain.TripStatusActive))

	_, err := h.verify().Execute(context.Background(), in.VerifyMilestoneInput{
		TripID: "trip-1", ActorID: "truck-owner-1", Role: domain.RoleTruckOwner, Milestone: domain.MilestonePickupVerified,
	})
	assert.ErrorIs(t, err, domain.ErrRoleNotPermitted)

	_, err = h.verify().Execute(context.Background(), in.VerifyMilestoneInput{
		TripID: "trip-1", ActorID: "mine-owner-2", Role: domain.RoleMineOwner, Milestone: domain.MilestonePickupVerified,
	})
	assert.ErrorIs(t, err, domain.ErrNotTripParticipant)
}

func TestReportIssue(t *testing.T) {
	h := newHarness(seededTrip(6, domain.TripStatusActive))

	view, err := h.reportIssue().Execute(context.Background(), in.ReportIssueInput{
		TripID: "trip-1", ActorID: "driver-1", Role: domain.RoleDriver,
		Reason: domain.IssueReasonBreakdown, Notes: "  flat tyre  ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusIssueReported, view.Trip.Status)
	require.NotNil(t, view.Trip.Issue)
	assert.Equal(t, "flat tyre", view.Trip.Issue.Notes)
	assert.Len(t, view.Trip.MilestoneHistory, 6)
	assert.Equal(t, domain.CategoryHistory, view.Category)
	assert.Equal(t, domain.ActionNone, view.NextAction.Kind)

	// после остановки рейс больше не двигается
	_, err = h.advance().Execute(context.Background(), in.AdvanceMilestoneInput{
		TripID: "trip-1", ActorID: "driver-1", Role: domain.RoleDriver, Milestone: domain.MilestoneArrivedAtDelivery,
	})
	assert.ErrorIs(t, err, domain.ErrTripClosed)
}

func TestReportIssue_InvalidReason(t *testing.T) {
	h := newHarness(seededTrip(6, domain.TripStatusActive))
	_, err := h.reportIssue().Execute(context.Background(), in.ReportIssueInput{
		TripID: "trip-1", ActorID: "driver-1", Role: domain.RoleDriver, Reason: "bored",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidIssueReason)
}

func TestCancelTrip(t *testing.T) {
	h := newHarness(seededTrip(2, domain.TripStatusActive))

	view, err := h.cancel().Execute(context.Background(), in.CancelTripInput{
		TripID: "trip-1", ActorID: "mine-owner-1", Role: domain.RoleMineOwner, Reason: "quarry closed",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCanceled, view.Trip.Status)
	require.NotNil(t, view.Trip.CancelReason)
	assert.Equal(t, "quarry closed", *view.Trip.CancelReason)
	assert.Equal(t, out.EventTripCanceled, h.publisher.events[0].Type)
}

func TestCancelTrip_AfterPickupVerified(t *testing.T) {
	h := newHarness(seededTrip(5, domain.TripStatusActive))

	_, err := h.cancel().Execute(context.Background(), in.CancelTripInput{
		TripID: "trip-1", ActorID: "truck-owner-1", Role: domain.RoleTruckOwner, Reason: "too late",
	})
	assert.ErrorIs(t, err, domain.ErrCancelNotAllowed)
	assert.Equal(t, []string{"cancel:cancel_not_allowed"}, h.recorder.rejections)
}

func TestFullLifecycle(t *testing.T) {
	h := newHarness(seededTrip(1, domain.TripStatusActive))
	ctx := context.Background()

	for _, m := range domain.Sequence[1:] {
		var err error
		if verifier, gated := m.Verifier(); gated {
			actor := map[domain.Role]string{domain.RoleMineOwner: "mine-owner-1", domain.RoleTruckOwner: "truck-owner-1"}[verifier]
			_, err = h.verify().Execute(ctx, in.VerifyMilestoneInput{TripID: "trip-1", ActorID: actor, Role: verifier, Milestone: m})
		} else {
			_, err = h.advance().Execute(ctx, in.AdvanceMilestoneInput{TripID: "trip-1", ActorID: "driver-1", Role: domain.RoleDriver, Milestone: m})
		}
		require.NoError(t, err, m)
	}

	stored, err := h.repo.FindByID(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCompleted, stored.Status)
	assert.Len(t, stored.MilestoneHistory, domain.MilestoneCount)
	for i, e := range stored.MilestoneHistory {
		assert.Equal(t, domain.Sequence[i], e.Status)
	}
	assert.Len(t, h.publisher.events, domain.MilestoneCount-1)
}
