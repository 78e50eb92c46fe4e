package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
)

// OrderRepository defines the interface for order data operations
type OrderRepository interface {
	// Create inserts the order header only. The store assigns ID and CreatedAt.
	Create(ctx context.Context, order *entity.Order) error
	// GetByID returns the order with its lines, or ErrNotFound.
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	UpdateTotals(ctx context.Context, id int64, totalAmount, totalProfit decimal.Decimal) error
	// Delete removes the order; its lines are removed by the store.
	Delete(ctx context.Context, id int64) error
	// ListByDays returns every order, with lines, whose numbering day lies in [from, to].
	ListByDays(ctx context.Context, from, to invoice.DayKey) ([]entity.Order, error)
}

// OrderLineRepository defines the interface for order line data operations
type OrderLineRepository interface {
	CreateBatch(ctx context.Context, lines []entity.OrderLine) error
	GetByOrderID(ctx context.Context, orderID int64) ([]entity.OrderLine, error)
	DeleteByOrderID(ctx context.Context, orderID int64) error
}
