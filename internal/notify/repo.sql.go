package notify

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AlertStore persists alerts in PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore constructs AlertStore.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

// InsertAlert records a new low-stock alert.
func (s *AlertStore) InsertAlert(ctx context.Context, alert Alert) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `INSERT INTO low_stock_alerts (item_id, on_hand, threshold)
VALUES ($1, $2, $3) RETURNING id`, alert.ItemID, alert.OnHand, alert.Threshold).Scan(&id)
	return id, err
}

// RecentAlerts lists the latest alerts, newest first.
func (s *AlertStore) RecentAlerts(ctx context.Context, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `SELECT id, item_id, on_hand, threshold, created_at
FROM low_stock_alerts ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	alerts := []Alert{}
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.ItemID, &a.OnHand, &a.Threshold, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
