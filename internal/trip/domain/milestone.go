package domain

// Milestone — один этап жизненного цикла рейса.
type Milestone string

const (
	MilestoneTripAssigned      Milestone = "trip_assigned"
	MilestoneTripStarted       Milestone = "trip_started"
	MilestoneArrivedAtPickup   Milestone = "arrived_at_pickup"
	MilestoneLoadingComplete   Milestone = "loading_complete"
	MilestonePickupVerified    Milestone = "pickup_verified"
	MilestoneEnRouteToDelivery Milestone = "en_route_to_delivery"
	MilestoneArrivedAtDelivery Milestone = "arrived_at_delivery"
	MilestoneDeliveryComplete  Milestone = "delivery_complete"
	MilestoneDeliveryVerified  Milestone = "delivery_verified"
)

// NotAvailableLabel — подпись sentinel-этапа при пустой истории.
const NotAvailableLabel = "Not Available"

// Sequence — канонический порядок этапов. Пропуски и перестановки запрещены.
var Sequence = [...]Milestone{
	MilestoneTripAssigned,
	MilestoneTripStarted,
	MilestoneArrivedAtPickup,
	MilestoneLoadingComplete,
	MilestonePickupVerified,
	MilestoneEnRouteToDelivery,
	MilestoneArrivedAtDelivery,
	MilestoneDeliveryComplete,
	MilestoneDeliveryVerified,
}

// MilestoneCount — длина канонической последовательности.
const MilestoneCount = len(Sequence)

var milestoneLabels = map[Milestone]string{
	MilestoneTripAssigned:      "Trip Assigned",
	MilestoneTripStarted:       "Trip Started",
	MilestoneArrivedAtPickup:   "Arrived at Pickup",
	MilestoneLoadingComplete:   "Loading Complete",
	MilestonePickupVerified:    "Pickup Verified",
	MilestoneEnRouteToDelivery: "En Route to Delivery",
	MilestoneArrivedAtDelivery: "Arrived at Delivery",
	MilestoneDeliveryComplete:  "Delivery Complete",
	MilestoneDeliveryVerified:  "Delivery Verified",
}

// actionLabels — подписи кнопок для исполнителя следующего шага
var actionLabels = map[Milestone]string{
	MilestoneTripStarted:       "Start Trip",
	MilestoneArrivedAtPickup:   "Mark Arrived at Pickup",
	MilestoneLoadingComplete:   "Mark Loading Complete",
	MilestonePickupVerified:    "Verify Pickup",
	MilestoneEnRouteToDelivery: "Start Delivery",
	MilestoneArrivedAtDelivery: "Mark Arrived at Delivery",
	MilestoneDeliveryComplete:  "Mark Delivery Complete",
	MilestoneDeliveryVerified:  "Verify Delivery",
}

// Index возвращает позицию этапа в Sequence или -1 для неизвестного значения.
func (m Milestone) Index() int {
	for i, s := range Sequence {
		if s == m {
			return i
		}
	}
	return -1
}

// IsValid проверяет, что этап входит в каноническую последовательность
func (m Milestone) IsValid() bool {
	return m.Index() >= 0
}

// Label — человекочитаемое название этапа.
func (m Milestone) Label() string {
	if l, ok := milestoneLabels[m]; ok {
		return l
	}
	return NotAvailableLabel
}

// Prerequisite возвращает этап, который должен быть достигнут перед m.
// Для trip_assigned и неизвестных значений возвращает false.
func (m Milestone) Prerequisite() (Milestone, bool) {
	i := m.Index()
	if i <= 0 {
		return "", false
	}
	return Sequence[i-1], true
}

// IsVerifierGated — этап подтверждается не водителем, а другой стороной.
func (m Milestone) IsVerifierGated() bool {
	return m == MilestonePickupVerified || m == MilestoneDeliveryVerified
}

// Verifier возвращает роль, которая подтверждает gated-этап.
func (m Milestone) Verifier() (Role, bool) {
	switch m {
	case MilestonePickupVerified:
		return RoleMineOwner, true
	case MilestoneDeliveryVerified:
		return RoleTruckOwner, true
	default:
		return "", false
	}
}

// IsDriverControlled — шесть переходов, которые выполняет назначенный водитель.
func (m Milestone) IsDriverControlled() bool {
	return m.Index() > 0 && !m.IsVerifierGated()
}
