package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
)

// Rows are the storage shape of the entities. Everything read back from the store is
// decoded through the decode* functions so a bad row surfaces as ErrMalformedRow
// instead of a zero-valued entity.

type orderRow struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime;index"`
	BillDate    *time.Time      `gorm:"type:date;index"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalProfit decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Lines       []orderLineRow  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRow) TableName() string { return "orders" }

type orderLineRow struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	OrderID     int64           `gorm:"not null;index"`
	ProductID   *int64          `gorm:"index"`
	ProductName string          `gorm:"size:255;not null"`
	Quantity    int             `gorm:"not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	UnitProfit  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
}

func (orderLineRow) TableName() string { return "order_lines" }

type productRow struct {
	ID        int64           `gorm:"primaryKey;autoIncrement"`
	Name      string          `gorm:"size:255;not null"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Profit    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedAt time.Time       `gorm:"autoCreateTime"`
}

func (productRow) TableName() string { return "products" }

type idempotencyRow struct {
	Key          string    `gorm:"primaryKey;size:255"`
	TerminalID   string    `gorm:"primaryKey;size:100"`
	Endpoint     string    `gorm:"size:255;not null"`
	ResponseCode int       `gorm:"not null"`
	ResponseBody string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	ExpiresAt    time.Time `gorm:"not null;index"`
}

func (idempotencyRow) TableName() string { return "idempotency_keys" }

type shopSettingsRow struct {
	ID        int64     `gorm:"primaryKey"`
	Name      string    `gorm:"size:100;not null"`
	Address   string    `gorm:"size:255"`
	Phone     string    `gorm:"size:50"`
	Footer    string    `gorm:"size:255"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (shopSettingsRow) TableName() string { return "shop_settings" }

// Models lists the row types for migration.
func Models() []interface{} {
	return []interface{}{&productRow{}, &orderRow{}, &orderLineRow{}, &idempotencyRow{}, &shopSettingsRow{}}
}

func malformed(table string, id int64, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s %d: %s", domainRepo.ErrMalformedRow, table, id, fmt.Sprintf(format, args...))
}

func decodeOrder(row orderRow) (entity.Order, error) {
	if row.ID <= 0 {
		return entity.Order{}, malformed("orders", row.ID, "non-positive id")
	}
	if row.CreatedAt.IsZero() {
		return entity.Order{}, malformed("orders", row.ID, "missing created_at")
	}

	o := entity.Order{
		ID:          row.ID,
		CreatedAt:   row.CreatedAt,
		TotalAmount: row.TotalAmount,
		TotalProfit: row.TotalProfit,
		Items:       make([]entity.OrderLine, 0, len(row.Lines)),
	}
	if row.BillDate != nil && !row.BillDate.IsZero() {
		y, m, d := row.BillDate.Date()
		bd := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		o.BillDate = &bd
	}
	for _, lr := range row.Lines {
		line, err := decodeOrderLine(lr)
		if err != nil {
			return entity.Order{}, err
		}
		o.Items = append(o.Items, line)
	}
	return o, nil
}

// decodeOrders decodes a day set. Every malformed order is reported, none is dropped.
func decodeOrders(rows []orderRow) ([]entity.Order, error) {
	orders := make([]entity.Order, 0, len(rows))
	var errs []error
	for _, row := range rows {
		o, err := decodeOrder(row)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		orders = append(orders, o)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return orders, nil
}

func decodeOrderLine(row orderLineRow) (entity.OrderLine, error) {
	if row.OrderID <= 0 {
		return entity.OrderLine{}, malformed("order_lines", row.ID, "missing order_id")
	}
	if row.Quantity <= 0 {
		return entity.OrderLine{}, malformed("order_lines", row.ID, "quantity %d", row.Quantity)
	}
	if strings.TrimSpace(row.ProductName) == "" {
		return entity.OrderLine{}, malformed("order_lines", row.ID, "empty product_name")
	}
	if row.UnitPrice.IsNegative() {
		return entity.OrderLine{}, malformed("order_lines", row.ID, "negative unit_price")
	}
	return entity.OrderLine{
		ID:          row.ID,
		OrderID:     row.OrderID,
		ProductID:   row.ProductID,
		ProductName: row.ProductName,
		Quantity:    row.Quantity,
		UnitPrice:   row.UnitPrice,
		UnitProfit:  row.UnitProfit,
	}, nil
}

func encodeOrderLine(l entity.OrderLine) orderLineRow {
	return orderLineRow{
		OrderID:     l.OrderID,
		ProductID:   l.ProductID,
		ProductName: l.ProductName,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		UnitProfit:  l.UnitProfit,
	}
}

func decodeProduct(row productRow) (entity.Product, error) {
	if row.ID <= 0 {
		return entity.Product{}, malformed("products", row.ID, "non-positive id")
	}
	if strings.TrimSpace(row.Name) == "" {
		return entity.Product{}, malformed("products", row.ID, "empty name")
	}
	if row.Price.IsNegative() {
		return entity.Product{}, malformed("products", row.ID, "negative price")
	}
	return entity.Product{
		ID:        row.ID,
		Name:      row.Name,
		Price:     row.Price,
		Profit:    row.Profit,
		CreatedAt: row.CreatedAt,
	}, nil
}

func decodeIdempotency(row idempotencyRow) entity.IdempotencyKey {
	return entity.IdempotencyKey{
		Key:          row.Key,
		TerminalID:   row.TerminalID,
		Endpoint:     row.Endpoint,
		ResponseCode: row.ResponseCode,
		ResponseBody: row.ResponseBody,
		CreatedAt:    row.CreatedAt,
		ExpiresAt:    row.ExpiresAt,
	}
}

func decodeShopSettings(row shopSettingsRow) entity.ShopSettings {
	return entity.ShopSettings{
		Name:      row.Name,
		Address:   row.Address,
		Phone:     row.Phone,
		Footer:    row.Footer,
		UpdatedAt: row.UpdatedAt,
	}
}
