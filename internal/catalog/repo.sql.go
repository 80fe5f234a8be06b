package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the procedure catalog in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, id int64) (Procedure, error) {
	var p Procedure
	err := r.pool.QueryRow(ctx, `SELECT id, name, price, active, created_at FROM services WHERE id=$1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Procedure{}, ErrProcedureNotFound
		}
		return Procedure{}, err
	}
	return p, nil
}

func (r *Repository) List(ctx context.Context, activeOnly bool) ([]Procedure, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price, active, created_at FROM services WHERE NOT $1 OR active ORDER BY name ASC`, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []Procedure{}
	for rows.Next() {
		var p Procedure
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Active, &p.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (r *Repository) Insert(ctx context.Context, p Procedure) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO services (name, price, active) VALUES ($1, $2, $3) RETURNING id`,
		p.Name, p.Price, p.Active).Scan(&id)
	return id, err
}

func (r *Repository) Update(ctx context.Context, p Procedure) error {
	tag, err := r.pool.Exec(ctx, `UPDATE services SET name=$2, price=$3, active=$4 WHERE id=$1`, p.ID, p.Name, p.Price, p.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProcedureNotFound
	}
	return nil
}
