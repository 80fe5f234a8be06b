package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	hours        map[time.Weekday]ClinicHours
	appointments map[int64]Appointment
	nextID       int64
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{hours: make(map[time.Weekday]ClinicHours), appointments: make(map[int64]Appointment)}
}

func (r *fakeRepo) Get(ctx context.Context, id int64) (Appointment, error) {
	a, ok := r.appointments[id]
	if !ok {
		return Appointment{}, ErrAppointmentNotFound
	}
	return a, nil
}

func (r *fakeRepo) Insert(ctx context.Context, a Appointment) (int64, error) {
	r.nextID++
	a.ID = r.nextID
	r.appointments[a.ID] = a
	return a.ID, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	a, ok := r.appointments[id]
	if !ok {
		return ErrAppointmentNotFound
	}
	a.Status = status
	r.appointments[id] = a
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	return nil, nil
}

func (r *fakeRepo) CountAtSlot(ctx context.Context, date time.Time, startTime string) (int, error) {
	count := 0
	for _, a := range r.appointments {
		if a.Date.Equal(date) && a.StartTime == startTime && (a.Status == StatusPending || a.Status == StatusApproved) {
			count++
		}
	}
	return count, nil
}

func (r *fakeRepo) GetHours(ctx context.Context, weekday time.Weekday) (ClinicHours, error) {
	h, ok := r.hours[weekday]
	if !ok {
		return ClinicHours{}, ErrClinicClosed
	}
	return h, nil
}

// nextWeekday returns the next date falling on the given weekday.
func nextWeekday(wd time.Weekday) time.Time {
	d := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // a Monday
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func TestBookWithinHours(t *testing.T) {
	repo := newFakeRepo()
	repo.hours[time.Monday] = ClinicHours{Weekday: time.Monday, Opens: "09:00", Closes: "17:00", SlotCapacity: 2}
	svc := NewService(repo, nil)

	appt, err := svc.Book(context.Background(), BookInput{
		PatientID: 1,
		Date:      nextWeekday(time.Monday),
		StartTime: "09:30",
		ActorID:   5,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, appt.Status)
	require.Equal(t, PaymentUnpaid, appt.PaymentStatus)
}

func TestBookOutsideHours(t *testing.T) {
	repo := newFakeRepo()
	repo.hours[time.Monday] = ClinicHours{Weekday: time.Monday, Opens: "09:00", Closes: "17:00", SlotCapacity: 2}
	svc := NewService(repo, nil)

	_, err := svc.Book(context.Background(), BookInput{PatientID: 1, Date: nextWeekday(time.Monday), StartTime: "18:00"})
	require.ErrorIs(t, err, ErrClinicClosed)

	// Closing time itself is not bookable.
	_, err = svc.Book(context.Background(), BookInput{PatientID: 1, Date: nextWeekday(time.Monday), StartTime: "17:00"})
	require.ErrorIs(t, err, ErrClinicClosed)
}

func TestBookClosedWeekday(t *testing.T) {
	repo := newFakeRepo()
	svc := NewService(repo, nil)

	_, err := svc.Book(context.Background(), BookInput{PatientID: 1, Date: nextWeekday(time.Sunday), StartTime: "10:00"})
	require.ErrorIs(t, err, ErrClinicClosed)
}

func TestBookCapacity(t *testing.T) {
	repo := newFakeRepo()
	repo.hours[time.Monday] = ClinicHours{Weekday: time.Monday, Opens: "09:00", Closes: "17:00", SlotCapacity: 2}
	svc := NewService(repo, nil)
	ctx := context.Background()
	date := nextWeekday(time.Monday)

	_, err := svc.Book(ctx, BookInput{PatientID: 1, Date: date, StartTime: "10:00"})
	require.NoError(t, err)
	_, err = svc.Book(ctx, BookInput{PatientID: 2, Date: date, StartTime: "10:00"})
	require.NoError(t, err)

	_, err = svc.Book(ctx, BookInput{PatientID: 3, Date: date, StartTime: "10:00"})
	require.ErrorIs(t, err, ErrCapacityFull)

	// A different slot on the same day is still open.
	_, err = svc.Book(ctx, BookInput{PatientID: 3, Date: date, StartTime: "11:00"})
	require.NoError(t, err)
}

func TestBookCapacityIgnoresCancelled(t *testing.T) {
	repo := newFakeRepo()
	repo.hours[time.Monday] = ClinicHours{Weekday: time.Monday, Opens: "09:00", Closes: "17:00", SlotCapacity: 1}
	svc := NewService(repo, nil)
	ctx := context.Background()
	date := nextWeekday(time.Monday)

	first, err := svc.Book(ctx, BookInput{PatientID: 1, Date: date, StartTime: "10:00"})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, first.ID, 5)
	require.NoError(t, err)

	_, err = svc.Book(ctx, BookInput{PatientID: 2, Date: date, StartTime: "10:00"})
	require.NoError(t, err)
}

func TestTransitions(t *testing.T) {
	repo := newFakeRepo()
	repo.hours[time.Monday] = ClinicHours{Weekday: time.Monday, Opens: "08:00", Closes: "12:00", SlotCapacity: 3}
	svc := NewService(repo, nil)
	ctx := context.Background()

	appt, err := svc.Book(ctx, BookInput{PatientID: 1, Date: nextWeekday(time.Monday), StartTime: "08:30"})
	require.NoError(t, err)

	// pending -> completed is not allowed.
	_, err = svc.Complete(ctx, appt.ID, 5)
	require.ErrorIs(t, err, ErrInvalidTransition)

	approved, err := svc.Approve(ctx, appt.ID, 5)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)

	_, err = svc.Approve(ctx, appt.ID, 5)
	require.ErrorIs(t, err, ErrInvalidTransition)

	done, err := svc.Complete(ctx, appt.ID, 5)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, done.Status)

	_, err = svc.Cancel(ctx, appt.ID, 5)
	require.ErrorIs(t, err, ErrInvalidTransition)
}
