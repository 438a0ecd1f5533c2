package user

import "time"

// Роли пользователей маркетплейса
const (
	RoleDriver     = "DRIVER"
	RoleTruckOwner = "TRUCK_OWNER"
	RoleMineOwner  = "MINE_OWNER"
)

const StatusActive = "ACTIVE"

// User — участник маркетплейса, как его видит trip service
type User struct {
	ID        string
	Email     string
	Role      string // DRIVER | TRUCK_OWNER | MINE_OWNER
	Status    string // ACTIVE | INACTIVE | BANNED
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsActive проверяет, активен ли пользователь
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// HasRole проверяет наличие роли
func (u *User) HasRole(role string) bool {
	return u.Role == role
}
