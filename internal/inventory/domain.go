package inventory

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a stock-tracked supply (anesthetic carpules, gloves, composite).
type Item struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Unit              string          `json:"unit"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	CreatedAt         time.Time       `json:"created_at"`
}

// Batch is a received lot of an item. QtyOnHand never goes below zero;
// the allocator refuses to over-draw.
type Batch struct {
	ID         int64           `json:"id"`
	ItemID     int64           `json:"item_id"`
	QtyOnHand  decimal.Decimal `json:"qty_on_hand"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
}

// Movement is an immutable audit record of a stock quantity change.
// Qty is signed: negative for consumption, positive for receipts.
type Movement struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"item_id"`
	BatchID   int64           `json:"batch_id"`
	Qty       decimal.Decimal `json:"qty"`
	RefType   string          `json:"ref_type"`
	RefID     int64           `json:"ref_id"`
	ActorID   int64           `json:"actor_id"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Movement reference types.
const (
	RefTypeVisit   = "visit"
	RefTypeReceipt = "receipt"
)

// ReceiveInput describes an inbound batch posting.
type ReceiveInput struct {
	ItemID    int64
	Qty       decimal.Decimal
	ExpiresAt *time.Time
	Code      string
	ActorID   int64
}

// ConsumeInput requests a FEFO deduction against an item.
type ConsumeInput struct {
	ItemID  int64
	Qty     decimal.Decimal
	RefType string
	RefID   int64
	ActorID int64
	Note    string
}

// ConsumeResult reports what a consumption deducted and what is left.
type ConsumeResult struct {
	Item        Item
	Allocations []Allocation
	Remaining   decimal.Decimal
}

// LowStock reports whether the post-consumption total sits at or below
// the item's threshold.
func (r ConsumeResult) LowStock() bool {
	return r.Remaining.LessThanOrEqual(r.Item.LowStockThreshold)
}

// StockLevel summarises on-hand quantity per item.
type StockLevel struct {
	Item   Item            `json:"item"`
	OnHand decimal.Decimal `json:"on_hand"`
}

// MovementFilter filters movement listings.
type MovementFilter struct {
	ItemID int64
	Limit  int
}

var (
	// ErrInsufficientStock is returned when an item's total on-hand quantity
	// cannot cover a requested deduction. No partial deduction occurs.
	ErrInsufficientStock = errors.New("inventory: insufficient stock")
	// ErrInvalidQuantity indicates a non-positive requested quantity.
	ErrInvalidQuantity = errors.New("inventory: quantity must be positive")
	// ErrItemNotFound indicates an unknown item id.
	ErrItemNotFound = errors.New("inventory: item not found")
)
