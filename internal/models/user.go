package models

import (
	"time"
)

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     *string   `gorm:"uniqueIndex" json:"email,omitempty"` // nil marks an anonymous identity
	Name      *string   `json:"name,omitempty"`                     // display name, may change on login
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAuthenticated reports whether this identity came from an external login.
// Anonymous identities carry no email and may read but not write.
func (u *User) IsAuthenticated() bool {
	return u.Email != nil
}
