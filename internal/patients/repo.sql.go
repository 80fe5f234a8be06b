package patients

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists patients in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const patientColumns = `id, first_name, last_name, birth_date, phone, email, created_at`

func (r *Repository) Get(ctx context.Context, id int64) (Patient, error) {
	var p Patient
	err := r.pool.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id=$1`, id).
		Scan(&p.ID, &p.FirstName, &p.LastName, &p.BirthDate, &p.Phone, &p.Email, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Patient{}, ErrPatientNotFound
		}
		return Patient{}, err
	}
	return p, nil
}

func (r *Repository) Insert(ctx context.Context, p Patient) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO patients (first_name, last_name, birth_date, phone, email) VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.FirstName, p.LastName, p.BirthDate, p.Phone, p.Email).Scan(&id)
	return id, err
}

func (r *Repository) Update(ctx context.Context, p Patient) error {
	tag, err := r.pool.Exec(ctx, `UPDATE patients SET first_name=$2, last_name=$3, birth_date=$4, phone=$5, email=$6 WHERE id=$1`,
		p.ID, p.FirstName, p.LastName, p.BirthDate, p.Phone, p.Email)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *Repository) Search(ctx context.Context, query string, limit, offset int) ([]Patient, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT `+patientColumns+`
FROM patients
WHERE $1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%'
ORDER BY last_name ASC, first_name ASC
LIMIT $2 OFFSET $3`, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Patient{}
	for rows.Next() {
		var p Patient
		if err := rows.Scan(&p.ID, &p.FirstName, &p.LastName, &p.BirthDate, &p.Phone, &p.Email, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *Repository) CountSearch(ctx context.Context, query string) (int, error) {
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients
WHERE $1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%'`, query).Scan(&total)
	return total, err
}
