package inventory

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Allocation records the quantity taken from a single batch.
type Allocation struct {
	BatchID int64
	Qty     decimal.Decimal
}

// Allocate selects batches to cover qty in FEFO order: batches with an expiry
// date before undated ones, soonest expiry first, ties broken by earliest
// receipt. Deduction is greedy per batch. When the item's total on-hand
// quantity is short, ErrInsufficientStock is returned and nothing is taken.
func Allocate(batches []Batch, qty decimal.Decimal) ([]Allocation, error) {
	if qty.Sign() <= 0 {
		return nil, ErrInvalidQuantity
	}

	open := make([]Batch, 0, len(batches))
	for _, b := range batches {
		if b.QtyOnHand.Sign() > 0 {
			open = append(open, b)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		bi, bj := open[i], open[j]
		switch {
		case bi.ExpiresAt != nil && bj.ExpiresAt == nil:
			return true
		case bi.ExpiresAt == nil && bj.ExpiresAt != nil:
			return false
		case bi.ExpiresAt != nil && bj.ExpiresAt != nil && !bi.ExpiresAt.Equal(*bj.ExpiresAt):
			return bi.ExpiresAt.Before(*bj.ExpiresAt)
		}
		return bi.ReceivedAt.Before(bj.ReceivedAt)
	})

	remaining := qty
	allocations := make([]Allocation, 0, len(open))
	for _, b := range open {
		if remaining.Sign() == 0 {
			break
		}
		take := decimal.Min(b.QtyOnHand, remaining)
		allocations = append(allocations, Allocation{BatchID: b.ID, Qty: take})
		remaining = remaining.Sub(take)
	}
	if remaining.Sign() > 0 {
		return nil, fmt.Errorf("%w: requested %s, short %s", ErrInsufficientStock, qty, remaining)
	}
	return allocations, nil
}
