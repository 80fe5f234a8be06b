package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Procedure is a billable dental service with a list price.
type Procedure struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
}

// ErrProcedureNotFound indicates an unknown catalog entry.
var ErrProcedureNotFound = errors.New("catalog: procedure not found")
