package appointments

import (
	"context"
	"fmt"
	"time"

	"github.com/novadent/novadent/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (Appointment, error)
	Insert(ctx context.Context, a Appointment) (int64, error)
	UpdateStatus(ctx context.Context, id int64, status Status) error
	List(ctx context.Context, filter ListFilter) ([]Appointment, error)
	CountAtSlot(ctx context.Context, date time.Time, startTime string) (int, error)
	GetHours(ctx context.Context, weekday time.Weekday) (ClinicHours, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates booking and status transitions.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Book creates a pending appointment after resolving clinic hours and slot
// capacity for the requested date and time.
func (s *Service) Book(ctx context.Context, input BookInput) (Appointment, error) {
	if input.PatientID == 0 {
		return Appointment{}, fmt.Errorf("appointments: patient required")
	}
	if input.Date.IsZero() {
		return Appointment{}, fmt.Errorf("appointments: date required")
	}

	hours, err := s.repo.GetHours(ctx, input.Date.Weekday())
	if err != nil {
		return Appointment{}, err
	}
	ok, err := withinHours(hours, input.StartTime)
	if err != nil {
		return Appointment{}, err
	}
	if !ok {
		return Appointment{}, fmt.Errorf("%w: %s opens %s closes %s", ErrClinicClosed, input.Date.Weekday(), hours.Opens, hours.Closes)
	}

	booked, err := s.repo.CountAtSlot(ctx, input.Date, input.StartTime)
	if err != nil {
		return Appointment{}, err
	}
	if booked >= hours.SlotCapacity {
		return Appointment{}, fmt.Errorf("%w: %d of %d chairs taken", ErrCapacityFull, booked, hours.SlotCapacity)
	}

	appt := Appointment{
		PatientID:     input.PatientID,
		ServiceID:     input.ServiceID,
		Date:          input.Date,
		StartTime:     input.StartTime,
		Status:        StatusPending,
		PaymentStatus: PaymentUnpaid,
		Notes:         input.Notes,
		CreatedBy:     input.ActorID,
	}
	id, err := s.repo.Insert(ctx, appt)
	if err != nil {
		return Appointment{}, err
	}
	appt.ID = id

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "appointments:book",
			Entity:   "appointment",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"patient_id": input.PatientID, "date": input.Date.Format("2006-01-02"), "start_time": input.StartTime},
		})
	}
	return appt, nil
}

// Approve moves a pending appointment to approved.
func (s *Service) Approve(ctx context.Context, id, actorID int64) (Appointment, error) {
	return s.transition(ctx, id, actorID, StatusApproved, []Status{StatusPending})
}

// Cancel cancels an appointment that is not already final.
func (s *Service) Cancel(ctx context.Context, id, actorID int64) (Appointment, error) {
	return s.transition(ctx, id, actorID, StatusCancelled, []Status{StatusPending, StatusApproved})
}

// Complete marks an approved appointment as completed.
func (s *Service) Complete(ctx context.Context, id, actorID int64) (Appointment, error) {
	return s.transition(ctx, id, actorID, StatusCompleted, []Status{StatusApproved})
}

// Get fetches one appointment.
func (s *Service) Get(ctx context.Context, id int64) (Appointment, error) {
	return s.repo.Get(ctx, id)
}

// List lists appointments.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) transition(ctx context.Context, id, actorID int64, to Status, from []Status) (Appointment, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	allowed := false
	for _, st := range from {
		if existing.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, existing.Status, to)
	}
	if err := s.repo.UpdateStatus(ctx, id, to); err != nil {
		return Appointment{}, err
	}
	existing.Status = to

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   fmt.Sprintf("appointments:%s", to),
			Entity:   "appointment",
			EntityID: fmt.Sprintf("%d", id),
		})
	}
	return existing, nil
}
