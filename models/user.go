package models

import (
	"time"

	"taskassign/constants"
)

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:150;not null" json:"username"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	IsAdmin      bool      `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Role derives the user's role from the persisted admin flag.
func (u User) Role() constants.Role {
	if u.IsAdmin {
		return constants.RoleAdmin
	}
	return constants.RoleMember
}
