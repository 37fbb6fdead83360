package user

import "time"

// User is an authenticated account.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	Mobile      string    `json:"mobile,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NameOrDefault returns the display name, or "User" when it is empty.
func (u User) NameOrDefault() string {
	if u.DisplayName == "" {
		return "User"
	}
	return u.DisplayName
}
