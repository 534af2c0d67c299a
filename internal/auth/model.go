package auth

import "time"

const (
	RoleManager = "manager"
	RoleViewer  = "viewer"

	UsersCollection      = "users"
	UserEmailsCollection = "userEmails"
)

// User is the domain entity. Email never changes after creation.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	RestaurantIDs  []string  `json:"restaurantIds"`
	BackgroundPath string    `json:"backgroundPath,omitempty"`
	Password       string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// CanAccess reports whether the user may read and edit a restaurant.
func (u *User) CanAccess(restaurantID string) bool {
	if u.IsManager() {
		return true
	}
	for _, id := range u.RestaurantIDs {
		if id == restaurantID {
			return true
		}
	}
	return false
}

func ValidRole(role string) bool {
	return role == RoleManager || role == RoleViewer
}
