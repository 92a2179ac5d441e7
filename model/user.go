package model

import "time"

// User is an account that can authenticate against the API.
type User struct {
	ID           string    `json:"_id" bson:"-" gorm:"primaryKey;size:64"`
	Username     string    `json:"username" bson:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" bson:"password" gorm:"column:password;not null"`
	Role         Role      `json:"role" bson:"role" gorm:"size:16;not null"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Role is the capability level of a user.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleInspektur Role = "Inspektur"
)

// ParseRole returns the role named by s, or false when s is not a known role.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, true
	case RoleInspektur:
		return RoleInspektur, true
	}
	return "", false
}

// IsAdmin reports whether the user may use administrator routes.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
