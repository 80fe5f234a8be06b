package visits

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/novadent/novadent/internal/payments"
)

// Status enumerates visit states. A visit is terminal once non-pending.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusRejected  Status = "rejected"
)

// Note is the structured clinical record attached to a visit. It replaces
// the older free-form blob so each field is addressable and validated.
type Note struct {
	DentistNotes  string `json:"dentist_notes,omitempty"`
	Findings      string `json:"findings,omitempty"`
	TreatmentPlan string `json:"treatment_plan,omitempty"`
}

// Visit represents one clinical encounter.
type Visit struct {
	ID        int64              `json:"id"`
	PatientID int64              `json:"patient_id"`
	ServiceID *int64             `json:"service_id,omitempty"`
	Date      time.Time          `json:"date"`
	StartedAt time.Time          `json:"started_at"`
	EndedAt   *time.Time         `json:"ended_at,omitempty"`
	Status    Status             `json:"status"`
	Note      Note               `json:"note"`
	CreatedAt time.Time          `json:"created_at"`
	Payments  []payments.Payment `json:"payments,omitempty"`
}

// DeclaredOutcome is the staff-declared payment result for a completed visit.
type DeclaredOutcome string

const (
	OutcomePaid            DeclaredOutcome = "paid"
	OutcomeHMOFullyCovered DeclaredOutcome = "hmo_fully_covered"
	OutcomePartial         DeclaredOutcome = "partial"
	OutcomeUnpaid          DeclaredOutcome = "unpaid"
)

// MethodChangeMayaToCash converts a pending maya payment to settled cash.
const MethodChangeMayaToCash = "maya_to_cash"

// StockLine is one requested deduction during completion.
type StockLine struct {
	ItemID int64
	Qty    decimal.Decimal
	Notes  string
}

// CompleteInput carries everything a completion request declares.
type CompleteInput struct {
	StockLines   []StockLine
	Note         Note
	Outcome      DeclaredOutcome
	OnsiteAmount decimal.Decimal
	MethodChange string
	ActorID      int64
}

// CreateInput opens a new pending visit.
type CreateInput struct {
	PatientID int64
	ServiceID *int64
	Date      time.Time
	ActorID   int64
}

// ListFilter filters visit listings.
type ListFilter struct {
	Status Status
	Date   time.Time
	Limit  int
}

var (
	// ErrVisitNotFound indicates an unknown visit id.
	ErrVisitNotFound = errors.New("visits: not found")
	// ErrInvalidState indicates the visit already left pending.
	ErrInvalidState = errors.New("visits: visit is not pending")
	// ErrUnknownOutcome indicates an unsupported declared payment status.
	ErrUnknownOutcome = errors.New("visits: unknown payment status")
	// ErrInvalidAmount indicates a missing or non-positive on-site amount.
	ErrInvalidAmount = errors.New("visits: on-site amount must be positive")
	// ErrNoPendingPayment indicates a requested maya-to-cash conversion found
	// no pending maya payment to convert.
	ErrNoPendingPayment = errors.New("visits: no pending maya payment to convert")
)
