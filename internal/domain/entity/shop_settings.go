package entity

import "time"

// ShopSettings are the shop details printed on every receipt. There is one row per
// shop; until it is first saved the configured defaults apply.
type ShopSettings struct {
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Footer    string    `json:"footer"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Header returns the receipt header built from the settings
func (s ShopSettings) Header() ReceiptHeader {
	return ReceiptHeader{
		ShopName: s.Name,
		Address:  s.Address,
		Phone:    s.Phone,
		Footer:   s.Footer,
	}
}
