package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/novadent/novadent/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service and by
// the visit completion flow, which runs them inside its own transaction.
type TxRepository interface {
	GetItem(ctx context.Context, id int64) (Item, error)
	SelectBatchesForUpdate(ctx context.Context, itemID int64) ([]Batch, error)
	InsertBatch(ctx context.Context, batch Batch) (int64, error)
	UpdateBatchQty(ctx context.Context, batchID int64, qty decimal.Decimal) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository wraps an open transaction with inventory queries. The
// caller owns commit and rollback.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

func (r *Repository) GetItem(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.pool.QueryRow(ctx, `SELECT id, name, unit, low_stock_threshold, created_at FROM inventory_items WHERE id=$1`, id))
}

func (r *Repository) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, unit, low_stock_threshold, created_at FROM inventory_items ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Unit, &item.LowStockThreshold, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repository) CreateItem(ctx context.Context, item Item) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO inventory_items (name, unit, low_stock_threshold) VALUES ($1, $2, $3) RETURNING id`,
		item.Name, item.Unit, item.LowStockThreshold).Scan(&id)
	return id, err
}

func (r *Repository) UpdateItem(ctx context.Context, item Item) error {
	tag, err := r.pool.Exec(ctx, `UPDATE inventory_items SET name=$2, unit=$3, low_stock_threshold=$4 WHERE id=$1`,
		item.ID, item.Name, item.Unit, item.LowStockThreshold)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *Repository) ListBatches(ctx context.Context, itemID int64) ([]Batch, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, qty_on_hand, expires_at, received_at
FROM inventory_batches WHERE item_id=$1 AND qty_on_hand > 0
ORDER BY expires_at ASC NULLS LAST, received_at ASC`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBatches(rows)
}

func (r *Repository) StockLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := r.pool.Query(ctx, `SELECT i.id, i.name, i.unit, i.low_stock_threshold, i.created_at, COALESCE(SUM(b.qty_on_hand), 0)
FROM inventory_items i
LEFT JOIN inventory_batches b ON b.item_id = i.id
GROUP BY i.id
ORDER BY i.name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	levels := []StockLevel{}
	for rows.Next() {
		var lvl StockLevel
		if err := rows.Scan(&lvl.Item.ID, &lvl.Item.Name, &lvl.Item.Unit, &lvl.Item.LowStockThreshold, &lvl.Item.CreatedAt, &lvl.OnHand); err != nil {
			return nil, err
		}
		levels = append(levels, lvl)
	}
	return levels, rows.Err()
}

func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, item_id, batch_id, qty, ref_type, ref_id, actor_id, note, created_at
FROM inventory_movements
WHERE ($1 = 0 OR item_id = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2`, filter.ItemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	moves := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ItemID, &m.BatchID, &m.Qty, &m.RefType, &m.RefID, &m.ActorID, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		moves = append(moves, m)
	}
	return moves, rows.Err()
}

func (r *txRepository) GetItem(ctx context.Context, id int64) (Item, error) {
	return scanItem(r.tx.QueryRow(ctx, `SELECT id, name, unit, low_stock_threshold, created_at FROM inventory_items WHERE id=$1`, id))
}

// SelectBatchesForUpdate locks the item's open batch rows for the duration of
// the read-modify-write so concurrent completions cannot over-draw a batch.
func (r *txRepository) SelectBatchesForUpdate(ctx context.Context, itemID int64) ([]Batch, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, item_id, qty_on_hand, expires_at, received_at
FROM inventory_batches WHERE item_id=$1 AND qty_on_hand > 0
ORDER BY expires_at ASC NULLS LAST, received_at ASC
FOR UPDATE`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectBatches(rows)
}

func (r *txRepository) InsertBatch(ctx context.Context, batch Batch) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_batches (item_id, qty_on_hand, expires_at, received_at) VALUES ($1, $2, $3, COALESCE($4, NOW())) RETURNING id`,
		batch.ItemID, batch.QtyOnHand, batch.ExpiresAt, nullTime(batch.ReceivedAt)).Scan(&id)
	return id, err
}

func (r *txRepository) UpdateBatchQty(ctx context.Context, batchID int64, qty decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE inventory_batches SET qty_on_hand=$2 WHERE id=$1`, batchID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errors.New("inventory: batch not found")
	}
	return nil
}

func (r *txRepository) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO inventory_movements (item_id, batch_id, qty, ref_type, ref_id, actor_id, note) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		m.ItemID, m.BatchID, m.Qty, m.RefType, m.RefID, m.ActorID, m.Note).Scan(&id)
	return id, err
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.Unit, &item.LowStockThreshold, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func collectBatches(rows pgx.Rows) ([]Batch, error) {
	batches := []Batch{}
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.ItemID, &b.QtyOnHand, &b.ExpiresAt, &b.ReceivedAt); err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
