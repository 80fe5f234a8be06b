package auth

import "time"

// Staff represents a clinic staff account.
type Staff struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	PasswordHash string    `json:"-"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Roles assigned to staff accounts.
const (
	RoleAdmin   = "admin"
	RoleDentist = "dentist"
	RoleStaff   = "staff"
)
