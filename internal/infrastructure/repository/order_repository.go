package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
)

type orderRepository struct {
	db  *gorm.DB
	loc *time.Location
	log zerolog.Logger
}

// NewOrderRepository creates a new order repository. loc is the shop timezone used to
// turn created_at instants into calendar days.
func NewOrderRepository(db *gorm.DB, loc *time.Location, log zerolog.Logger) domainRepo.OrderRepository {
	return &orderRepository{db: db, loc: loc, log: log}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	row := orderRow{
		BillDate:    order.BillDate,
		TotalAmount: order.TotalAmount,
		TotalProfit: order.TotalProfit,
	}
	if err := r.db.WithContext(ctx).Omit("Lines").Create(&row).Error; err != nil {
		return err
	}
	order.ID = row.ID
	order.CreatedAt = row.CreatedAt
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	var row orderRow
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainRepo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	order, err := decodeOrder(row)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) UpdateTotals(ctx context.Context, id int64, totalAmount, totalProfit decimal.Decimal) error {
	res := r.db.WithContext(ctx).Model(&orderRow{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"total_amount": totalAmount, "total_profit": totalProfit})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainRepo.ErrNotFound
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&orderRow{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domainRepo.ErrNotFound
	}
	return nil
}

// ListByDays selects on the same day key the numbering engine groups by: bill_date when
// set, else created_at in the shop timezone. A malformed row fails the whole read:
// dropping it would renumber every later invoice of its day.
func (r *orderRepository) ListByDays(ctx context.Context, from, to invoice.DayKey) ([]entity.Order, error) {
	var rows []orderRow
	err := r.db.WithContext(ctx).
		Where("COALESCE(bill_date, (created_at AT TIME ZONE ?)::date) BETWEEN ? AND ?",
			r.loc.String(), from.String(), to.String()).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list orders %s..%s: %w", from, to, err)
	}

	orders, err := decodeOrders(rows)
	if err != nil {
		r.log.Error().Err(err).Str("from", from.String()).Str("to", to.String()).Msg("malformed orders in day range")
		return nil, err
	}
	return orders, nil
}

type orderLineRepository struct {
	db *gorm.DB
}

// NewOrderLineRepository creates a new order line repository
func NewOrderLineRepository(db *gorm.DB) domainRepo.OrderLineRepository {
	return &orderLineRepository{db: db}
}

func (r *orderLineRepository) CreateBatch(ctx context.Context, lines []entity.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	rows := make([]orderLineRow, len(lines))
	for i, l := range lines {
		rows[i] = encodeOrderLine(l)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].ID = rows[i].ID
	}
	return nil
}

func (r *orderLineRepository) GetByOrderID(ctx context.Context, orderID int64) ([]entity.OrderLine, error) {
	var rows []orderLineRow
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	lines := make([]entity.OrderLine, 0, len(rows))
	for _, row := range rows {
		l, err := decodeOrderLine(row)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, nil
}

func (r *orderLineRepository) DeleteByOrderID(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).Where("order_id = ?", orderID).Delete(&orderLineRow{}).Error
}
