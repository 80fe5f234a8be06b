package payments

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Method enumerates accepted payment channels.
type Method string

const (
	MethodCash Method = "cash"
	MethodMaya Method = "maya"
	MethodHMO  Method = "hmo"
)

// Status enumerates the lifecycle of a payment row.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Payment belongs to a visit. Rows are created during visit completion and
// only ever updated in place when a pending maya payment is converted to
// cash; nothing deletes a payment.
type Payment struct {
	ID         int64           `json:"id"`
	VisitID    int64           `json:"visit_id"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Method     Method          `json:"method"`
	Status     Status          `json:"status"`
	PaidAt     *time.Time      `json:"paid_at,omitempty"`
	RefCode    string          `json:"ref_code"`
	CreatedBy  int64           `json:"created_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ErrPaymentNotFound indicates an unknown payment id.
var ErrPaymentNotFound = errors.New("payments: payment not found")

// TotalPaid sums amount_paid across payments.
func TotalPaid(list []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range list {
		total = total.Add(p.AmountPaid)
	}
	return total
}
