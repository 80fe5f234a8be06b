package devices

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists devices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const deviceColumns = `id, fingerprint, label, status, last_seen_at, created_at`

func (r *Repository) GetByFingerprint(ctx context.Context, fingerprint string) (Device, error) {
	return scanDevice(r.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE fingerprint=$1`, fingerprint))
}

func (r *Repository) Get(ctx context.Context, id int64) (Device, error) {
	return scanDevice(r.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id=$1`, id))
}

// Insert registers a new device. The fingerprint is unique; a concurrent
// insert of the same fingerprint surfaces as a constraint error the caller
// resolves by re-reading.
func (r *Repository) Insert(ctx context.Context, d Device) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO devices (fingerprint, label, status)
VALUES ($1, $2, $3) RETURNING id`, d.Fingerprint, d.Label, string(d.Status)).Scan(&id)
	return id, err
}

func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx, `UPDATE devices SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

func (r *Repository) TouchLastSeen(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE devices SET last_seen_at=$2 WHERE id=$1`, id, at)
	return err
}

func (r *Repository) List(ctx context.Context, status Status) ([]Device, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+deviceColumns+` FROM devices
WHERE ($1 = '' OR status = $1) ORDER BY created_at DESC, id DESC`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Device{}
	for rows.Next() {
		var d Device
		var status string
		if err := rows.Scan(&d.ID, &d.Fingerprint, &d.Label, &status, &d.LastSeenAt, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Status = Status(status)
		list = append(list, d)
	}
	return list, rows.Err()
}

func scanDevice(row pgx.Row) (Device, error) {
	var d Device
	var status string
	err := row.Scan(&d.ID, &d.Fingerprint, &d.Label, &status, &d.LastSeenAt, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Device{}, ErrDeviceNotFound
		}
		return Device{}, err
	}
	d.Status = Status(status)
	return d, nil
}
