package domain

import "time"

// Role controls what a user may do across projects and defects.
type Role string

const (
	RoleManager  Role = "MANAGER"
	RoleEngineer Role = "ENGINEER"
	RoleObserver Role = "OBSERVER"
)

// ValidRole reports whether the value is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleManager, RoleEngineer, RoleObserver:
		return true
	}
	return false
}

// User is the domain model for registered accounts.
type User struct {
	ID           string
	Username     string
	FullName     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
