package appointments

import (
	"errors"
	"time"
)

// Status enumerates appointment states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus is the two-valued projection of a visit's payment outcome.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// Appointment is an independent booking record. Its payment_status is a
// best-effort projection of the matching visit's resolved payment outcome:
// last writer wins, not linearizable with direct appointment edits.
type Appointment struct {
	ID            int64         `json:"id"`
	PatientID     int64         `json:"patient_id"`
	ServiceID     *int64        `json:"service_id,omitempty"`
	Date          time.Time     `json:"date"`
	StartTime     string        `json:"start_time"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Notes         string        `json:"notes,omitempty"`
	CreatedBy     int64         `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ClinicHours define the bookable window and slot capacity per weekday.
type ClinicHours struct {
	Weekday      time.Weekday `json:"weekday"`
	Opens        string       `json:"opens"`
	Closes       string       `json:"closes"`
	SlotCapacity int          `json:"slot_capacity"`
}

// BookInput describes a booking request.
type BookInput struct {
	PatientID int64
	ServiceID *int64
	Date      time.Time
	StartTime string
	Notes     string
	ActorID   int64
}

// ListFilter filters appointment listings.
type ListFilter struct {
	Date   time.Time
	Status Status
	Limit  int
}

var (
	// ErrAppointmentNotFound indicates an unknown appointment id.
	ErrAppointmentNotFound = errors.New("appointments: not found")
	// ErrClinicClosed indicates the requested slot falls outside clinic hours.
	ErrClinicClosed = errors.New("appointments: clinic closed at requested time")
	// ErrCapacityFull indicates the slot has no chairs left.
	ErrCapacityFull = errors.New("appointments: slot capacity reached")
	// ErrInvalidTransition indicates a disallowed status change.
	ErrInvalidTransition = errors.New("appointments: invalid status transition")
	// ErrInvalidSlot indicates a malformed start time.
	ErrInvalidSlot = errors.New("appointments: start time must be HH:MM")
)
