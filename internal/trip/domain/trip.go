package domain

import "time"

// TripStatus — грубый статус рейса, отдельный от текущего этапа.
type TripStatus string

const (
	TripStatusActive        TripStatus = "active"
	TripStatusCompleted     TripStatus = "completed"
	TripStatusCanceled      TripStatus = "canceled"
	TripStatusIssueReported TripStatus = "issue_reported"
)

// IsTerminal — после этих статусов этапы больше не меняются.
func (s TripStatus) IsTerminal() bool {
	return s == TripStatusCompleted || s == TripStatusCanceled || s == TripStatusIssueReported
}

// Role — роль участника, который смотрит на рейс или меняет его.
type Role string

const (
	RoleDriver     Role = "driver"
	RoleTruckOwner Role = "truck_owner"
	RoleMineOwner  Role = "mine_owner"
)

// IsValid проверяет роль
func (r Role) IsValid() bool {
	switch r {
	case RoleDriver, RoleTruckOwner, RoleMineOwner:
		return true
	default:
		return false
	}
}

// DeliveryMethod — кто везет материал по договоренности.
type DeliveryMethod string

const (
	DeliveryMethodPickup   DeliveryMethod = "pickup"
	DeliveryMethodDelivery DeliveryMethod = "delivery"
)

// IssueReason — причина, по которой водитель остановил рейс.
type IssueReason string

const (
	IssueReasonAccident     IssueReason = "accident"
	IssueReasonBreakdown    IssueReason = "breakdown"
	IssueReasonTrafficDelay IssueReason = "traffic_delay"
	IssueReasonWeather      IssueReason = "weather"
	IssueReasonLoadIssue    IssueReason = "load_issue"
	IssueReasonOther        IssueReason = "other"
)

// IsValid проверяет причину
func (r IssueReason) IsValid() bool {
	switch r {
	case IssueReasonAccident, IssueReasonBreakdown, IssueReasonTrafficDelay,
		IssueReasonWeather, IssueReasonLoadIssue, IssueReasonOther:
		return true
	default:
		return false
	}
}

// Issue описывает проблему, о которой сообщил водитель.
type Issue struct {
	Reason IssueReason `json:"reason"`
	Notes  string      `json:"notes"`
}

// MilestoneEvent — неизменяемая запись о переходе. Время проставляет сервер.
type MilestoneEvent struct {
	Status    Milestone `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Trip — один рейс по принятой заявке.
type Trip struct {
	ID               string           `json:"id"`
	Status           TripStatus       `json:"status"`
	MilestoneHistory []MilestoneEvent `json:"milestone_history"`
	CancelReason     *string          `json:"cancel_reason,omitempty"`
	Issue            *Issue           `json:"issue,omitempty"`

	RequestID        string         `json:"request_id"`
	MineID           string         `json:"mine_id"`
	MineOwnerID      string         `json:"mine_owner_id"`
	TruckOwnerID     string         `json:"truck_owner_id"`
	DriverID         string         `json:"driver_id"`
	TruckID          string         `json:"truck_id"`
	Material         string         `json:"material"`
	Quantity         float64        `json:"quantity"`
	Price            float64        `json:"price"`
	DeliveryMethod   DeliveryMethod `json:"delivery_method"`
	DeliveryLocation string         `json:"delivery_location"`
	ScheduledAt      *time.Time     `json:"scheduled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasReached проверяет, есть ли этап в истории.
func (t *Trip) HasReached(m Milestone) bool {
	for _, e := range t.MilestoneHistory {
		if e.Status == m {
			return true
		}
	}
	return false
}

// EventFor возвращает запись истории для этапа.
func (t *Trip) EventFor(m Milestone) (MilestoneEvent, bool) {
	for _, e := range t.MilestoneHistory {
		if e.Status == m {
			return e, true
		}
	}
	return MilestoneEvent{}, false
}

// ParticipantID возвращает id участника рейса в указанной роли.
func (t *Trip) ParticipantID(role Role) string {
	switch role {
	case RoleDriver:
		return t.DriverID
	case RoleTruckOwner:
		return t.TruckOwnerID
	case RoleMineOwner:
		return t.MineOwnerID
	default:
		return ""
	}
}
