package domain

import "time"

// UserStatus represents lifecycle states for a back-office account.
type UserStatus string

const (
	UserStatusNormal   UserStatus = "NORMAL"
	UserStatusDisabled UserStatus = "DISABLED"
)

// User is the domain model for back-office accounts.
type User struct {
	ID           int64
	Username     string
	Nickname     string
	Email        string
	PasswordHash string
	Status       UserStatus
	Admin        bool
	DeptID       *int64
	PostIDs      []int64
	Roles        []*Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin reports whether the account holds the administrator override.
func (u *User) IsAdmin() bool {
	return u != nil && u.Admin
}
