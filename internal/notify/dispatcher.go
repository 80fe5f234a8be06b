package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/novadent/novadent/internal/inventory"
	"github.com/novadent/novadent/jobs"
)

// AlertStorePort persists low-stock alert records.
type AlertStorePort interface {
	InsertAlert(ctx context.Context, alert Alert) (int64, error)
}

// EnqueuerPort hands alert mails to the background queue.
type EnqueuerPort interface {
	EnqueueLowStockEmail(ctx context.Context, payload jobs.LowStockEmailPayload) (*asynq.TaskInfo, error)
}

// MetricsPort counts dispatched alerts. May be nil.
type MetricsPort interface {
	LowStockAlert()
}

// Alert is one recorded low-stock event.
type Alert struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"item_id"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Threshold decimal.Decimal `json:"threshold"`
	CreatedAt time.Time       `json:"created_at"`
}

// Dispatcher raises low-stock alerts. A redis key debounces repeats so an
// item crossing its threshold several times inside the window produces one
// alert. All failures are logged and swallowed; alerting must never break
// the operation that triggered it.
type Dispatcher struct {
	rdb      *redis.Client
	store    AlertStorePort
	enqueuer EnqueuerPort
	window   time.Duration
	metrics  MetricsPort
	logger   *slog.Logger
}

// NewDispatcher constructs Dispatcher.
func NewDispatcher(rdb *redis.Client, store AlertStorePort, enqueuer EnqueuerPort, window time.Duration, metrics MetricsPort, logger *slog.Logger) *Dispatcher {
	if window <= 0 {
		window = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{rdb: rdb, store: store, enqueuer: enqueuer, window: window, metrics: metrics, logger: logger}
}

// LowStock records and dispatches an alert for the item unless one already
// went out inside the debounce window. Returns whether a new alert was
// created.
func (d *Dispatcher) LowStock(ctx context.Context, item inventory.Item, onHand decimal.Decimal) (bool, error) {
	key := fmt.Sprintf("lowstock:%d", item.ID)
	acquired, err := d.rdb.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), d.window).Result()
	if err != nil {
		d.logger.Error("low-stock debounce check failed", slog.Int64("item_id", item.ID), slog.Any("error", err))
		return false, nil
	}
	if !acquired {
		return false, nil
	}

	if _, err := d.store.InsertAlert(ctx, Alert{
		ItemID:    item.ID,
		OnHand:    onHand,
		Threshold: item.LowStockThreshold,
	}); err != nil {
		d.logger.Error("low-stock alert insert failed", slog.Int64("item_id", item.ID), slog.Any("error", err))
	}

	if d.enqueuer != nil {
		_, err := d.enqueuer.EnqueueLowStockEmail(ctx, jobs.LowStockEmailPayload{
			ItemID:    item.ID,
			ItemName:  item.Name,
			Unit:      item.Unit,
			OnHand:    onHand.String(),
			Threshold: item.LowStockThreshold.String(),
		})
		if err != nil {
			d.logger.Error("low-stock mail enqueue failed", slog.Int64("item_id", item.ID), slog.Any("error", err))
		}
	}
	if d.metrics != nil {
		d.metrics.LowStockAlert()
	}
	return true, nil
}
