package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/novadent/novadent/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetItem(ctx context.Context, id int64) (Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	CreateItem(ctx context.Context, item Item) (int64, error)
	UpdateItem(ctx context.Context, item Item) error
	ListBatches(ctx context.Context, itemID int64) ([]Batch, error)
	StockLevels(ctx context.Context) ([]StockLevel, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations.
type Service struct {
	repo        RepositoryPort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	levels      singleflight.Group
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, audit: audit, idempotency: idem}
}

// Receive posts an inbound batch and the matching positive movement.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (Batch, error) {
	if input.Qty.Sign() <= 0 {
		return Batch{}, ErrInvalidQuantity
	}

	insertedKey := false
	if s.idempotency != nil && input.Code != "" {
		key := fmt.Sprintf("receive:%d:%s", input.ItemID, input.Code)
		if err := s.idempotency.CheckAndInsert(ctx, key, "inventory"); err != nil {
			return Batch{}, err
		}
		insertedKey = true
	}

	var batch Batch
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetItem(ctx, input.ItemID)
		if err != nil {
			return err
		}
		batch = Batch{ItemID: item.ID, QtyOnHand: input.Qty, ExpiresAt: input.ExpiresAt}
		id, err := tx.InsertBatch(ctx, batch)
		if err != nil {
			return err
		}
		batch.ID = id
		_, err = tx.InsertMovement(ctx, Movement{
			ItemID:  item.ID,
			BatchID: id,
			Qty:     input.Qty,
			RefType: RefTypeReceipt,
			RefID:   id,
			ActorID: input.ActorID,
		})
		return err
	})
	if err != nil {
		if insertedKey {
			_ = s.idempotency.Delete(ctx, fmt.Sprintf("receive:%d:%s", input.ItemID, input.Code))
		}
		return Batch{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  input.ActorID,
			Action:   "inventory:receive",
			Entity:   "inventory_batch",
			EntityID: fmt.Sprintf("%d", batch.ID),
			Meta: map[string]any{
				"item_id": input.ItemID,
				"qty":     input.Qty.String(),
			},
		})
	}
	return batch, nil
}

// ConsumeTx runs a FEFO allocation against an item inside the caller's
// transaction. Batch rows are locked for the read-modify-write; either every
// deduction applies or the error propagates and the caller rolls back.
func (s *Service) ConsumeTx(ctx context.Context, tx TxRepository, input ConsumeInput) (ConsumeResult, error) {
	if input.Qty.Sign() <= 0 {
		return ConsumeResult{}, ErrInvalidQuantity
	}
	item, err := tx.GetItem(ctx, input.ItemID)
	if err != nil {
		return ConsumeResult{}, err
	}
	batches, err := tx.SelectBatchesForUpdate(ctx, item.ID)
	if err != nil {
		return ConsumeResult{}, err
	}

	allocations, err := Allocate(batches, input.Qty)
	if err != nil {
		return ConsumeResult{}, fmt.Errorf("item %q: %w", item.Name, err)
	}

	onHand := decimal.Zero
	byID := make(map[int64]Batch, len(batches))
	for _, b := range batches {
		onHand = onHand.Add(b.QtyOnHand)
		byID[b.ID] = b
	}

	for _, alloc := range allocations {
		b := byID[alloc.BatchID]
		if err := tx.UpdateBatchQty(ctx, b.ID, b.QtyOnHand.Sub(alloc.Qty)); err != nil {
			return ConsumeResult{}, err
		}
		if _, err := tx.InsertMovement(ctx, Movement{
			ItemID:  item.ID,
			BatchID: b.ID,
			Qty:     alloc.Qty.Neg(),
			RefType: input.RefType,
			RefID:   input.RefID,
			ActorID: input.ActorID,
			Note:    input.Note,
		}); err != nil {
			return ConsumeResult{}, err
		}
	}

	return ConsumeResult{
		Item:        item,
		Allocations: allocations,
		Remaining:   onHand.Sub(input.Qty),
	}, nil
}

// GetItem fetches a single item.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	return s.repo.GetItem(ctx, id)
}

// ListItems lists all items.
func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	return s.repo.ListItems(ctx)
}

// CreateItem registers a new supply item.
func (s *Service) CreateItem(ctx context.Context, item Item, actorID int64) (Item, error) {
	if item.Name == "" || item.Unit == "" {
		return Item{}, fmt.Errorf("inventory: name and unit required")
	}
	if item.LowStockThreshold.Sign() < 0 {
		return Item{}, fmt.Errorf("inventory: threshold must be >= 0")
	}
	id, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return Item{}, err
	}
	item.ID = id
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "inventory:item_create",
			Entity:   "inventory_item",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"name": item.Name},
		})
	}
	return item, nil
}

// UpdateItem edits item master data.
func (s *Service) UpdateItem(ctx context.Context, item Item) error {
	if item.ID == 0 {
		return ErrItemNotFound
	}
	return s.repo.UpdateItem(ctx, item)
}

// ListBatches lists an item's open batches in allocation order.
func (s *Service) ListBatches(ctx context.Context, itemID int64) ([]Batch, error) {
	if _, err := s.repo.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return s.repo.ListBatches(ctx, itemID)
}

// StockLevels reports per-item on-hand totals. Concurrent identical
// requests share one aggregate query; the dashboard polls this endpoint.
func (s *Service) StockLevels(ctx context.Context) ([]StockLevel, error) {
	resultChan := s.levels.DoChan("stock-levels", func() (any, error) {
		return s.repo.StockLevels(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]StockLevel), nil
	}
}

// ListMovements lists the audit trail of quantity changes.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}
