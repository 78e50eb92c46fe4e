package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a billed invoice as held by the record store.
// ID is assigned by the store on insert and is the only ordering key between orders.
type Order struct {
	ID          int64           `json:"id"`
	CreatedAt   time.Time       `json:"created_at"`
	BillDate    *time.Time      `json:"bill_date,omitempty"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	Items       []OrderLine     `json:"items"`
}

// OrderLine is a single line of an order. Name, price and profit are snapshots taken
// at billing time so old receipts survive catalog changes.
type OrderLine struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   *int64          `json:"product_id,omitempty"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	UnitProfit  decimal.Decimal `json:"unit_profit"`
}

// Amount returns unit price times quantity
func (l OrderLine) Amount() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Profit returns unit profit times quantity
func (l OrderLine) Profit() decimal.Decimal {
	return l.UnitProfit.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SumLines returns the amount and profit totals of a set of lines.
func SumLines(lines []OrderLine) (amount, profit decimal.Decimal) {
	amount, profit = decimal.Zero, decimal.Zero
	for _, l := range lines {
		amount = amount.Add(l.Amount())
		profit = profit.Add(l.Profit())
	}
	return amount, profit
}

// Invoice is an order paired with its derived daily ordinal.
type Invoice struct {
	Order
	Ordinal int    `json:"ordinal"`
	Day     string `json:"day"`
}
