package domain

import (
	"fmt"
	"strings"
	"time"
)

// NewTripParams — данные принятой заявки, из которой создается рейс.
type NewTripParams struct {
	ID               string
	RequestID        string
	MineID           string
	MineOwnerID      string
	TruckOwnerID     string
	DriverID         string
	TruckID          string
	Material         string
	Quantity         float64
	Price            float64
	DeliveryMethod   DeliveryMethod
	DeliveryLocation string
	ScheduledAt      *time.Time
}

// NewTrip создает рейс в состоянии trip_assigned.
func NewTrip(p NewTripParams, now time.Time) (*Trip, error) {
	switch {
	case p.ID == "":
		return nil, fmt.Errorf("%w: id is required", ErrInvalidTrip)
	case p.RequestID == "":
		return nil, fmt.Errorf("%w: request_id is required", ErrInvalidTrip)
	case p.DriverID == "":
		return nil, fmt.Errorf("%w: driver_id is required", ErrInvalidTrip)
	case p.TruckOwnerID == "":
		return nil, fmt.Errorf("%w: truck_owner_id is required", ErrInvalidTrip)
	case p.MineOwnerID == "":
		return nil, fmt.Errorf("%w: mine_owner_id is required", ErrInvalidTrip)
	}

	method := p.DeliveryMethod
	if method == "" {
		method = DeliveryMethodPickup
	}
	if method != DeliveryMethodPickup && method != DeliveryMethodDelivery {
		return nil, fmt.Errorf("%w: delivery_method %q", ErrInvalidTrip, method)
	}

	now = now.UTC()
	return &Trip{
		ID:               p.ID,
		Status:           TripStatusActive,
		MilestoneHistory: []MilestoneEvent{{Status: MilestoneTripAssigned, Timestamp: now}},
		RequestID:        p.RequestID,
		MineID:           p.MineID,
		MineOwnerID:      p.MineOwnerID,
		TruckOwnerID:     p.TruckOwnerID,
		DriverID:         p.DriverID,
		TruckID:          p.TruckID,
		Material:         p.Material,
		Quantity:         p.Quantity,
		Price:            p.Price,
		DeliveryMethod:   method,
		DeliveryLocation: p.DeliveryLocation,
		ScheduledAt:      p.ScheduledAt,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

// ExpectedNext — единственный этап, который сейчас может быть записан.
// Для истории вне канонического порядка записать ничего нельзя.
func ExpectedNext(trip *Trip) (Milestone, bool) {
	if trip == nil {
		return "", false
	}
	n, canonical := progression(trip)
	if !canonical || n >= MilestoneCount {
		return "", false
	}
	return Sequence[n], true
}

// ValidateAdvance проверяет переход, выполняемый водителем.
func ValidateAdvance(trip *Trip, m Milestone, role Role) error {
	if !m.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownMilestone, m)
	}
	if err := ensureOpen(trip); err != nil {
		return err
	}
	if m.IsVerifierGated() {
		return fmt.Errorf("%w: %s", ErrVerifierRequired, m)
	}
	if !m.IsDriverControlled() || role != RoleDriver {
		return fmt.Errorf("%w: %s cannot set %s", ErrRoleNotPermitted, role, m)
	}
	return ensureNext(trip, m)
}

// ValidateVerify проверяет подтверждение gated-этапа.
func ValidateVerify(trip *Trip, m Milestone, role Role) error {
	if !m.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownMilestone, m)
	}
	if err := ensureOpen(trip); err != nil {
		return err
	}
	verifier, ok := m.Verifier()
	if !ok {
		return fmt.Errorf("%w: %s is not a verification milestone", ErrRoleNotPermitted, m)
	}
	if role != verifier {
		return fmt.Errorf("%w: %s must be verified by %s", ErrRoleNotPermitted, m, verifier)
	}
	return ensureNext(trip, m)
}

// ValidateReportIssue — сообщить о проблеме может только водитель открытого рейса.
func ValidateReportIssue(trip *Trip, role Role, reason IssueReason) error {
	if err := ensureOpen(trip); err != nil {
		return err
	}
	if role != RoleDriver {
		return fmt.Errorf("%w: only driver can report an issue", ErrRoleNotPermitted)
	}
	if !reason.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidIssueReason, reason)
	}
	return nil
}

// ValidateCancel — отмена сторонами заявки, пока материал не подтвержден на карьере.
func ValidateCancel(trip *Trip, role Role, reason string) error {
	if err := ensureOpen(trip); err != nil {
		return err
	}
	if role != RoleTruckOwner && role != RoleMineOwner {
		return fmt.Errorf("%w: %s cannot cancel a trip", ErrRoleNotPermitted, role)
	}
	if strings.TrimSpace(reason) == "" {
		return ErrCancelReasonRequired
	}
	if LatestMilestone(trip).Status.Index() >= MilestonePickupVerified.Index() {
		return fmt.Errorf("%w: pickup already verified", ErrCancelNotAllowed)
	}
	return nil
}

// AppendMilestone добавляет запись в историю. delivery_verified закрывает рейс.
func (t *Trip) AppendMilestone(m Milestone, now time.Time) MilestoneEvent {
	e := MilestoneEvent{Status: m, Timestamp: now.UTC()}
	t.MilestoneHistory = append(t.MilestoneHistory, e)
	if m == MilestoneDeliveryVerified {
		t.Status = TripStatusCompleted
	}
	t.UpdatedAt = e.Timestamp
	return e
}

// MarkIssueReported замораживает прогресс рейса.
func (t *Trip) MarkIssueReported(issue Issue, now time.Time) {
	t.Status = TripStatusIssueReported
	t.Issue = &issue
	t.UpdatedAt = now.UTC()
}

// MarkCanceled закрывает рейс с причиной.
func (t *Trip) MarkCanceled(reason string, now time.Time) {
	reason = strings.TrimSpace(reason)
	t.Status = TripStatusCanceled
	t.CancelReason = &reason
	t.UpdatedAt = now.UTC()
}

func ensureOpen(trip *Trip) error {
	if trip == nil {
		return ErrTripNotFound
	}
	if trip.Status.IsTerminal() {
		return fmt.Errorf("%w: status %s", ErrTripClosed, trip.Status)
	}
	if trip.Status != TripStatusActive {
		return fmt.Errorf("%w: unknown status %q", ErrTripClosed, trip.Status)
	}
	return nil
}

func ensureNext(trip *Trip, m Milestone) error {
	if trip.HasReached(m) {
		return fmt.Errorf("%w: %s", ErrMilestoneAlreadyReached, m)
	}
	expected, ok := ExpectedNext(trip)
	if !ok {
		return fmt.Errorf("%w: history after %s is not in canonical order", ErrOutOfOrder, LatestMilestone(trip).Status)
	}
	if expected != m {
		return fmt.Errorf("%w: expected %s, got %s", ErrOutOfOrder, expected, m)
	}
	return nil
}
