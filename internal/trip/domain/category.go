package domain

// Category — вкладка списка рейсов. Каждый рейс всегда ровно в одной.
type Category string

const (
	CategoryActive    Category = "active"
	CategoryScheduled Category = "scheduled"
	CategoryHistory   Category = "history"
)

// ParseCategory разбирает значение фильтра из запроса.
func ParseCategory(s string) (Category, bool) {
	switch Category(s) {
	case CategoryActive, CategoryScheduled, CategoryHistory:
		return Category(s), true
	default:
		return "", false
	}
}

// Categorize вычисляется заново при каждом чтении и нигде не кэшируется.
func Categorize(trip *Trip) Category {
	if trip == nil || trip.Status.IsTerminal() {
		return CategoryHistory
	}

	latest := LatestMilestone(trip).Status
	switch {
	case latest == MilestoneTripAssigned:
		return CategoryScheduled
	case latest == MilestoneDeliveryVerified:
		// все этапы пройдены, хотя статус не закрыт
		return CategoryHistory
	default:
		return CategoryActive
	}
}
