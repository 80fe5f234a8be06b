package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	items     map[int64]Item
	batches   map[int64]Batch
	movements []Movement
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[int64]Item), batches: make(map[int64]Batch)}
}

type memoryTx struct {
	repo *memoryRepo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetItem(ctx context.Context, id int64) (Item, error) {
	item, ok := r.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (r *memoryRepo) ListItems(ctx context.Context) ([]Item, error) { return nil, nil }

func (r *memoryRepo) CreateItem(ctx context.Context, item Item) (int64, error) {
	r.nextID++
	item.ID = r.nextID
	r.items[item.ID] = item
	return item.ID, nil
}

func (r *memoryRepo) UpdateItem(ctx context.Context, item Item) error {
	if _, ok := r.items[item.ID]; !ok {
		return ErrItemNotFound
	}
	r.items[item.ID] = item
	return nil
}

func (r *memoryRepo) ListBatches(ctx context.Context, itemID int64) ([]Batch, error) {
	var out []Batch
	for _, b := range r.batches {
		if b.ItemID == itemID && b.QtyOnHand.Sign() > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryRepo) StockLevels(ctx context.Context) ([]StockLevel, error) { return nil, nil }

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return r.movements, nil
}

func (tx *memoryTx) GetItem(ctx context.Context, id int64) (Item, error) {
	return tx.repo.GetItem(ctx, id)
}

func (tx *memoryTx) SelectBatchesForUpdate(ctx context.Context, itemID int64) ([]Batch, error) {
	return tx.repo.ListBatches(ctx, itemID)
}

func (tx *memoryTx) InsertBatch(ctx context.Context, batch Batch) (int64, error) {
	tx.repo.nextID++
	batch.ID = tx.repo.nextID
	if batch.ReceivedAt.IsZero() {
		batch.ReceivedAt = time.Now().UTC()
	}
	tx.repo.batches[batch.ID] = batch
	return batch.ID, nil
}

func (tx *memoryTx) UpdateBatchQty(ctx context.Context, batchID int64, qty decimal.Decimal) error {
	b := tx.repo.batches[batchID]
	b.QtyOnHand = qty
	tx.repo.batches[batchID] = b
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	tx.repo.nextID++
	m.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, m)
	return m.ID, nil
}

func seedItem(t *testing.T, repo *memoryRepo, threshold string) Item {
	t.Helper()
	id, err := repo.CreateItem(context.Background(), Item{Name: "Lidocaine 2%", Unit: "carpule", LowStockThreshold: dec(threshold)})
	require.NoError(t, err)
	return repo.items[id]
}

func seedBatch(repo *memoryRepo, itemID int64, qty string, expiry *time.Time, received time.Time) int64 {
	repo.nextID++
	repo.batches[repo.nextID] = Batch{ID: repo.nextID, ItemID: itemID, QtyOnHand: dec(qty), ExpiresAt: expiry, ReceivedAt: received}
	return repo.nextID
}

func TestConsumeTxDeductsFEFO(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	item := seedItem(t, repo, "2")
	now := time.Now().UTC()
	soon := now.AddDate(0, 0, 1)
	later := now.AddDate(0, 0, 30)
	first := seedBatch(repo, item.ID, "3", &soon, now.Add(-2*time.Hour))
	second := seedBatch(repo, item.ID, "4", &later, now.Add(-time.Hour))

	var result ConsumeResult
	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		result, err = svc.ConsumeTx(ctx, tx, ConsumeInput{ItemID: item.ID, Qty: dec("5"), RefType: RefTypeVisit, RefID: 77, ActorID: 9})
		return err
	})
	require.NoError(t, err)

	require.True(t, repo.batches[first].QtyOnHand.IsZero())
	require.True(t, repo.batches[second].QtyOnHand.Equal(dec("2")))
	require.True(t, result.Remaining.Equal(dec("2")))
	require.True(t, result.LowStock())

	require.Len(t, repo.movements, 2)
	for _, m := range repo.movements {
		require.Equal(t, RefTypeVisit, m.RefType)
		require.Equal(t, int64(77), m.RefID)
		require.Equal(t, int64(9), m.ActorID)
		require.True(t, m.Qty.Sign() < 0)
	}
	require.True(t, repo.movements[0].Qty.Equal(dec("-3")))
	require.True(t, repo.movements[1].Qty.Equal(dec("-2")))
}

func TestConsumeTxInsufficientLeavesStockUntouched(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	item := seedItem(t, repo, "0")
	now := time.Now().UTC()
	batchID := seedBatch(repo, item.ID, "2", nil, now)

	err := repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		_, err := svc.ConsumeTx(ctx, tx, ConsumeInput{ItemID: item.ID, Qty: dec("3"), RefType: RefTypeVisit, RefID: 1, ActorID: 1})
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	require.True(t, repo.batches[batchID].QtyOnHand.Equal(dec("2")))
	require.Empty(t, repo.movements)
}

func TestConsumeTxUnknownItem(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	err := repo.WithTx(context.Background(), func(ctx context.Context, tx TxRepository) error {
		_, err := svc.ConsumeTx(ctx, tx, ConsumeInput{ItemID: 404, Qty: dec("1"), RefType: RefTypeVisit, RefID: 1})
		return err
	})
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestReceiveRecordsBatchAndMovement(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	item := seedItem(t, repo, "1")
	expiry := time.Now().UTC().AddDate(1, 0, 0)

	batch, err := svc.Receive(ctx, ReceiveInput{ItemID: item.ID, Qty: dec("50"), ExpiresAt: &expiry, ActorID: 3})
	require.NoError(t, err)
	require.NotZero(t, batch.ID)
	require.True(t, repo.batches[batch.ID].QtyOnHand.Equal(dec("50")))

	require.Len(t, repo.movements, 1)
	require.Equal(t, RefTypeReceipt, repo.movements[0].RefType)
	require.True(t, repo.movements[0].Qty.Equal(dec("50")))
	require.Equal(t, int64(3), repo.movements[0].ActorID)
}

func TestReceiveRejectsNonPositiveQty(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	_, err := svc.Receive(context.Background(), ReceiveInput{ItemID: 1, Qty: dec("0")})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}
