package patients

import (
	"errors"
	"time"
)

// Patient is a registry entry for a person receiving care.
type Patient struct {
	ID        int64      `json:"id"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	BirthDate *time.Time `json:"birth_date,omitempty"`
	Phone     string     `json:"phone,omitempty"`
	Email     string     `json:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ErrPatientNotFound indicates an unknown patient id.
var ErrPatientNotFound = errors.New("patients: not found")
