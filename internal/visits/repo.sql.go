package visits

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/novadent/novadent/internal/appointments"
	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/internal/payments"
	"github.com/novadent/novadent/internal/platform/db"
)

// Repository persists visits in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the operations the completion transaction needs.
// Inventory, payment and appointment writes share the same underlying
// transaction so a failure anywhere rolls everything back together.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Visit, error)
	SetCompleted(ctx context.Context, id int64, note Note, endedAt time.Time) error
	SetRejected(ctx context.Context, id int64, endedAt time.Time) error
	Inventory() inventory.TxRepository
	Payments() payments.TxRepository
	Appointments() appointments.TxRepository
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("visits repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const visitColumns = `id, patient_id, service_id, date, started_at, ended_at, status, note, created_at`

func (r *Repository) Get(ctx context.Context, id int64) (Visit, error) {
	return scanVisit(r.pool.QueryRow(ctx, `SELECT `+visitColumns+` FROM patient_visits WHERE id=$1`, id))
}

func (r *Repository) Create(ctx context.Context, v Visit) (int64, error) {
	noteJSON, err := json.Marshal(v.Note)
	if err != nil {
		return 0, err
	}
	var id int64
	err = r.pool.QueryRow(ctx, `INSERT INTO patient_visits (patient_id, service_id, date, started_at, status, note)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		v.PatientID, v.ServiceID, v.Date, v.StartedAt, string(v.Status), noteJSON).Scan(&id)
	return id, err
}

func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Visit, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+visitColumns+`
FROM patient_visits
WHERE ($1 = '' OR status = $1)
  AND ($2::date IS NULL OR date = $2)
ORDER BY date DESC, started_at DESC, id DESC
LIMIT $3`, string(filter.Status), nullDate(filter.Date), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	visits := []Visit{}
	for rows.Next() {
		v, err := collectVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// GetForUpdate locks the visit row so two staff members cannot complete the
// same visit concurrently.
func (r *txRepository) GetForUpdate(ctx context.Context, id int64) (Visit, error) {
	return scanVisit(r.tx.QueryRow(ctx, `SELECT `+visitColumns+` FROM patient_visits WHERE id=$1 FOR UPDATE`, id))
}

func (r *txRepository) SetCompleted(ctx context.Context, id int64, note Note, endedAt time.Time) error {
	noteJSON, err := json.Marshal(note)
	if err != nil {
		return err
	}
	tag, err := r.tx.Exec(ctx, `UPDATE patient_visits SET status=$2, note=$3, ended_at=$4 WHERE id=$1`,
		id, string(StatusCompleted), noteJSON, endedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVisitNotFound
	}
	return nil
}

func (r *txRepository) SetRejected(ctx context.Context, id int64, endedAt time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE patient_visits SET status=$2, ended_at=$3 WHERE id=$1`,
		id, string(StatusRejected), endedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVisitNotFound
	}
	return nil
}

func (r *txRepository) Inventory() inventory.TxRepository {
	return inventory.NewTxRepository(r.tx)
}

func (r *txRepository) Payments() payments.TxRepository {
	return payments.NewTxRepository(r.tx)
}

func (r *txRepository) Appointments() appointments.TxRepository {
	return appointments.NewTxRepository(r.tx)
}

func scanVisit(row pgx.Row) (Visit, error) {
	var v Visit
	var status string
	var noteJSON []byte
	err := row.Scan(&v.ID, &v.PatientID, &v.ServiceID, &v.Date, &v.StartedAt, &v.EndedAt, &status, &noteJSON, &v.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Visit{}, ErrVisitNotFound
		}
		return Visit{}, err
	}
	v.Status = Status(status)
	if len(noteJSON) > 0 {
		if err := json.Unmarshal(noteJSON, &v.Note); err != nil {
			return Visit{}, err
		}
	}
	return v, nil
}

func collectVisit(rows pgx.Rows) (Visit, error) {
	var v Visit
	var status string
	var noteJSON []byte
	if err := rows.Scan(&v.ID, &v.PatientID, &v.ServiceID, &v.Date, &v.StartedAt, &v.EndedAt, &status, &noteJSON, &v.CreatedAt); err != nil {
		return Visit{}, err
	}
	v.Status = Status(status)
	if len(noteJSON) > 0 {
		if err := json.Unmarshal(noteJSON, &v.Note); err != nil {
			return Visit{}, err
		}
	}
	return v, nil
}

func nullDate(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
