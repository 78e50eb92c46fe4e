package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item that can be added to a cart
type Product struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Profit    decimal.Decimal `json:"profit"`
	CreatedAt time.Time       `json:"created_at"`
}

// UnknownProduct stands in for a product that no longer exists in the catalog.
// Its ID is never a valid store id.
var UnknownProduct = Product{ID: 0, Name: "Unknown product"}

// IsKnown reports whether the product refers to a real catalog row
func (p Product) IsKnown() bool {
	return p.ID > 0
}
