package entity

import "github.com/shopspring/decimal"

// ReceiptHeader holds the shop details printed at the top of a receipt.
type ReceiptHeader struct {
	ShopName string `json:"shop_name"`
	Address  string `json:"address,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Footer   string `json:"footer,omitempty"`
}

// ReceiptLine represents a single line item on a receipt.
type ReceiptLine struct {
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Receipt is a value object representing a printable receipt.
// It is composed from an order and its daily ordinal at print time and is never stored.
type Receipt struct {
	Header  ReceiptHeader   `json:"header"`
	Ordinal int             `json:"ordinal"`
	Date    string          `json:"date"`
	Time    string          `json:"time"`
	Lines   []ReceiptLine   `json:"lines"`
	Total   decimal.Decimal `json:"total"`
}
