package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists appointments in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the projection update used by visit completion.
type TxRepository interface {
	SyncPaymentStatus(ctx context.Context, patientID int64, serviceID *int64, date time.Time, status PaymentStatus) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction with appointment queries.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

const appointmentColumns = `id, patient_id, service_id, date, start_time, status, payment_status, notes, created_by, created_at`

func (r *Repository) Get(ctx context.Context, id int64) (Appointment, error) {
	return scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id=$1`, id))
}

func (r *Repository) Insert(ctx context.Context, a Appointment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO appointments (patient_id, service_id, date, start_time, status, payment_status, notes, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		a.PatientID, a.ServiceID, a.Date, a.StartTime, string(a.Status), string(a.PaymentStatus), a.Notes, a.CreatedBy).Scan(&id)
	return id, err
}

func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE appointments SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+appointmentColumns+`
FROM appointments
WHERE ($1::date IS NULL OR date = $1)
  AND ($2 = '' OR status = $2)
ORDER BY date ASC, start_time ASC, id ASC
LIMIT $3`, nullDate(filter.Date), string(filter.Status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Appointment{}
	for rows.Next() {
		a, err := collectAppointment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// CountAtSlot counts live bookings competing for a chair at the given slot.
func (r *Repository) CountAtSlot(ctx context.Context, date time.Time, startTime string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM appointments
WHERE date=$1 AND start_time=$2 AND status IN ($3, $4)`,
		date, startTime, string(StatusPending), string(StatusApproved)).Scan(&count)
	return count, err
}

// GetHours loads the clinic hours row for a weekday, if configured.
func (r *Repository) GetHours(ctx context.Context, weekday time.Weekday) (ClinicHours, error) {
	var h ClinicHours
	var wd int
	err := r.pool.QueryRow(ctx, `SELECT weekday, opens, closes, slot_capacity FROM clinic_hours WHERE weekday=$1`, int(weekday)).
		Scan(&wd, &h.Opens, &h.Closes, &h.SlotCapacity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ClinicHours{}, ErrClinicClosed
		}
		return ClinicHours{}, err
	}
	h.Weekday = time.Weekday(wd)
	return h, nil
}

// SyncPaymentStatus applies the visit's resolved payment outcome to every
// appointment matching the same patient, service and date whose status is
// approved or completed. Best-effort projection: no row locks, all matches
// updated, last writer wins.
func (r *txRepository) SyncPaymentStatus(ctx context.Context, patientID int64, serviceID *int64, date time.Time, status PaymentStatus) (int64, error) {
	tag, err := r.tx.Exec(ctx, `UPDATE appointments SET payment_status=$4
WHERE patient_id=$1
  AND service_id IS NOT DISTINCT FROM $2
  AND date=$3
  AND status IN ($5, $6)`,
		patientID, serviceID, date, string(status), string(StatusApproved), string(StatusCompleted))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	var status, payStatus string
	err := row.Scan(&a.ID, &a.PatientID, &a.ServiceID, &a.Date, &a.StartTime, &status, &payStatus, &a.Notes, &a.CreatedBy, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Appointment{}, ErrAppointmentNotFound
		}
		return Appointment{}, err
	}
	a.Status = Status(status)
	a.PaymentStatus = PaymentStatus(payStatus)
	return a, nil
}

func collectAppointment(rows pgx.Rows) (Appointment, error) {
	var a Appointment
	var status, payStatus string
	if err := rows.Scan(&a.ID, &a.PatientID, &a.ServiceID, &a.Date, &a.StartTime, &status, &payStatus, &a.Notes, &a.CreatedBy, &a.CreatedAt); err != nil {
		return Appointment{}, err
	}
	a.Status = Status(status)
	a.PaymentStatus = PaymentStatus(payStatus)
	return a, nil
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
