package payments

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads payment data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the write operations the visit completion transaction
// needs. There is deliberately no delete.
type TxRepository interface {
	ListByVisit(ctx context.Context, visitID int64) ([]Payment, error)
	Insert(ctx context.Context, p Payment) (int64, error)
	ConvertToCash(ctx context.Context, paymentID int64, paidAt time.Time) error
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction with payment queries.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

const paymentColumns = `id, visit_id, amount_due, amount_paid, method, status, paid_at, ref_code, created_by, created_at`

// ListByVisit returns a visit's payments ordered by creation.
func (r *Repository) ListByVisit(ctx context.Context, visitID int64) ([]Payment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE visit_id=$1 ORDER BY created_at ASC, id ASC`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *txRepository) ListByVisit(ctx context.Context, visitID int64) ([]Payment, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE visit_id=$1 ORDER BY created_at ASC, id ASC`, visitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPayments(rows)
}

func (r *txRepository) Insert(ctx context.Context, p Payment) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO payments (visit_id, amount_due, amount_paid, method, status, paid_at, ref_code, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.VisitID, p.AmountDue, p.AmountPaid, string(p.Method), string(p.Status), p.PaidAt, p.RefCode, p.CreatedBy).Scan(&id)
	return id, err
}

// ConvertToCash flips a pending payment to a settled cash payment in place,
// setting amount_paid to amount_due.
func (r *txRepository) ConvertToCash(ctx context.Context, paymentID int64, paidAt time.Time) error {
	tag, err := r.tx.Exec(ctx, `UPDATE payments SET method=$2, status=$3, amount_paid=amount_due, paid_at=$4 WHERE id=$1`,
		paymentID, string(MethodCash), string(StatusPaid), paidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func collectPayments(rows pgx.Rows) ([]Payment, error) {
	list := []Payment{}
	for rows.Next() {
		var p Payment
		var method, status string
		if err := rows.Scan(&p.ID, &p.VisitID, &p.AmountDue, &p.AmountPaid, &method, &status, &p.PaidAt, &p.RefCode, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Method = Method(method)
		p.Status = Status(status)
		list = append(list, p)
	}
	return list, rows.Err()
}
