package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sangkips/tillpoint/internal/application/cart"
	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
	"github.com/sangkips/tillpoint/internal/domain/repository"
	"github.com/sangkips/tillpoint/pkg/apperror"
)

// Write steps named in write-path errors
const (
	StepCreateOrder   = "create order"
	StepInsertLines   = "insert lines"
	StepRollbackOrder = "rollback order"
	StepDeleteLines   = "delete lines"
	StepUpdateTotals  = "update totals"
	StepDeleteOrder   = "delete order"
)

// BillResult is a stored invoice and the cart it came from.
type BillResult struct {
	Invoice entity.Invoice `json:"invoice"`
	Cart    cart.Cart      `json:"cart"`
}

// BillingService turns carts into orders and serves numbered invoices.
// Store writes run one after another and are never retried.
type BillingService struct {
	orders   repository.OrderRepository
	lines    repository.OrderLineRepository
	products repository.ProductRepository
	carts    *cart.Registry
	book     *InvoiceBook
	feed     repository.ChangeFeed
	orphans  *OrphanRegistry
	loc      *time.Location
	log      zerolog.Logger
}

// NewBillingService creates a new billing service
func NewBillingService(
	orders repository.OrderRepository,
	lines repository.OrderLineRepository,
	products repository.ProductRepository,
	carts *cart.Registry,
	book *InvoiceBook,
	feed repository.ChangeFeed,
	orphans *OrphanRegistry,
	loc *time.Location,
	log zerolog.Logger,
) *BillingService {
	return &BillingService{
		orders:   orders,
		lines:    lines,
		products: products,
		carts:    carts,
		book:     book,
		feed:     feed,
		orphans:  orphans,
		loc:      loc,
		log:      log.With().Str("component", "billing").Logger(),
	}
}

// Bill stores a cart as a new order. A cart that is editing an invoice is routed to
// Update. The cart is claimed for the whole write, so a second Bill of the same cart
// gets a conflict; it is retired only when the order and all its lines are stored
// and handed back unchanged on any failure.
func (s *BillingService) Bill(ctx context.Context, cartID uuid.UUID) (*BillResult, error) {
	c, err := s.carts.Claim(cartID)
	if err != nil {
		return nil, cartError(err)
	}

	var res *BillResult
	if c.EditingOrderID != nil {
		res, err = s.update(ctx, c)
	} else {
		res, err = s.bill(ctx, c)
	}
	if err != nil {
		s.release(cartID)
		return nil, err
	}
	return res, nil
}

func (s *BillingService) bill(ctx context.Context, c cart.Cart) (*BillResult, error) {
	lines := c.OrderLines(0)
	amount, profit := entity.SumLines(lines)
	order := &entity.Order{
		BillDate:    c.BillDate,
		TotalAmount: amount,
		TotalProfit: profit,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.log.Error().Err(err).Str("cart_id", c.ID.String()).Msg("create order failed")
		return nil, apperror.NewWriteError(StepCreateOrder, err)
	}

	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if err := s.lines.CreateBatch(ctx, lines); err != nil {
		return nil, s.rollback(ctx, order.ID, err)
	}
	order.Items = lines

	inv, err := s.numbered(ctx, *order)
	if err != nil {
		// the order is stored; only its number could not be read back
		s.log.Warn().Err(err).Int64("order_id", order.ID).Msg("could not number new invoice")
		inv = entity.Invoice{Order: *order, Day: invoice.DayOf(*order, s.loc).String()}
	}

	s.log.Info().
		Int64("order_id", order.ID).
		Int("ordinal", inv.Ordinal).
		Str("day", inv.Day).
		Str("total", order.TotalAmount.StringFixed(2)).
		Msg("order billed")

	s.changed(ctx)
	billed := s.retire(c.ID)
	return &BillResult{Invoice: inv, Cart: billed}, nil
}

// rollback deletes an order whose lines failed to insert. A failed delete leaves an
// orphan that is recorded for manual cleanup.
func (s *BillingService) rollback(ctx context.Context, orderID int64, cause error) error {
	s.log.Error().Err(cause).Int64("order_id", orderID).Msg("insert lines failed, deleting order")

	delErr := s.orders.Delete(context.WithoutCancel(ctx), orderID)
	if delErr != nil && !errors.Is(delErr, repository.ErrNotFound) {
		s.log.Error().
			Err(delErr).
			AnErr("cause", cause).
			Int64("order_id", orderID).
			Msg("orphan order left in store")
		s.orphans.Record(Orphan{
			OrderID:    orderID,
			Step:       StepRollbackOrder,
			Error:      delErr.Error(),
			RecordedAt: time.Now(),
		})
		return apperror.NewCriticalWriteError(StepRollbackOrder,
			fmt.Sprintf("Order %d was saved without lines and could not be removed", orderID),
			errors.Join(cause, delErr))
	}
	return apperror.NewWriteError(StepInsertLines, cause)
}

// Update replaces every line of the invoice a cart is editing and recomputes its
// totals. It is a destructive replace: a failure after the old lines are deleted
// leaves the invoice short of lines and is reported as critical. The cart is claimed
// the same way Bill claims it.
func (s *BillingService) Update(ctx context.Context, cartID uuid.UUID) (*BillResult, error) {
	c, err := s.carts.Claim(cartID)
	if err != nil {
		return nil, cartError(err)
	}
	if c.EditingOrderID == nil {
		s.release(cartID)
		return nil, apperror.NewConflictError("Cart is not editing an invoice")
	}
	res, err := s.update(ctx, c)
	if err != nil {
		s.release(cartID)
		return nil, err
	}
	return res, nil
}

func (s *BillingService) update(ctx context.Context, c cart.Cart) (*BillResult, error) {
	orderID := *c.EditingOrderID

	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Invoice")
		}
		return nil, err
	}

	lines, err := s.resolveLines(ctx, c, orderID)
	if err != nil {
		return nil, err
	}
	amount, profit := entity.SumLines(lines)

	if err := s.lines.DeleteByOrderID(ctx, orderID); err != nil {
		return nil, apperror.NewWriteError(StepDeleteLines, err)
	}
	if err := s.lines.CreateBatch(ctx, lines); err != nil {
		s.log.Error().Err(err).Int64("order_id", orderID).Msg("invoice lost its lines during update")
		s.changed(ctx)
		return nil, apperror.NewCriticalWriteError(StepInsertLines,
			fmt.Sprintf("Invoice %d has no lines after a failed update and needs them re-entered", orderID), err)
	}
	if err := s.orders.UpdateTotals(ctx, orderID, amount, profit); err != nil {
		s.log.Error().Err(err).Int64("order_id", orderID).Msg("invoice totals out of date after update")
		s.changed(ctx)
		return nil, apperror.NewCriticalWriteError(StepUpdateTotals,
			fmt.Sprintf("Invoice %d lines were replaced but its totals are out of date", orderID), err)
	}

	inv, err := s.Invoice(ctx, orderID)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("order_id", orderID).Int("ordinal", inv.Ordinal).Msg("invoice updated")
	s.changed(ctx)
	billed := s.retire(c.ID)
	return &BillResult{Invoice: *inv, Cart: billed}, nil
}

// resolveLines checks the cart's products against the catalog. Products that no
// longer exist keep their snapshot but lose the product reference.
func (s *BillingService) resolveLines(ctx context.Context, c cart.Cart, orderID int64) ([]entity.OrderLine, error) {
	ids := make([]int64, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.Product.IsKnown() {
			ids = append(ids, l.Product.ID)
		}
	}
	found, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	exists := make(map[int64]bool, len(found))
	for _, p := range found {
		exists[p.ID] = true
	}

	resolved := c
	resolved.Lines = make([]cart.Line, len(c.Lines))
	for i, l := range c.Lines {
		if !exists[l.Product.ID] {
			name := l.Product.Name
			if name == "" {
				name = entity.UnknownProduct.Name
			}
			l.Product = entity.Product{ID: entity.UnknownProduct.ID, Name: name, Price: l.Product.Price, Profit: l.Product.Profit}
		}
		resolved.Lines[i] = l
	}
	return resolved.OrderLines(orderID), nil
}

// Delete removes an order. Later invoices of its day are renumbered on the next read.
func (s *BillingService) Delete(ctx context.Context, orderID int64) error {
	if err := s.orders.Delete(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NewNotFoundError("Invoice")
		}
		return apperror.NewWriteError(StepDeleteOrder, err)
	}
	s.orphans.Forget(orderID)
	s.log.Info().Int64("order_id", orderID).Msg("invoice deleted")
	s.changed(ctx)
	return nil
}

// Invoices returns the numbered invoices of the whole days from..to.
func (s *BillingService) Invoices(ctx context.Context, from, to invoice.DayKey) ([]entity.Invoice, error) {
	if to.Before(from) {
		return nil, apperror.NewBadRequestError("from must not be after to")
	}
	orders, err := s.orders.ListByDays(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return invoice.Number(orders, s.loc), nil
}

// Invoice returns one order with the ordinal it has today.
func (s *BillingService) Invoice(ctx context.Context, orderID int64) (*entity.Invoice, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Invoice")
		}
		return nil, err
	}
	inv, err := s.numbered(ctx, *order)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// numbered reads the order's whole day and numbers it.
func (s *BillingService) numbered(ctx context.Context, order entity.Order) (entity.Invoice, error) {
	day := invoice.DayOf(order, s.loc)
	dayOrders, err := s.orders.ListByDays(ctx, day, day)
	if err != nil {
		return entity.Invoice{}, err
	}
	ordinals := invoice.ComputeDailyOrdinals(dayOrders, s.loc)
	ordinal, ok := ordinals[order.ID]
	if !ok {
		// the order was deleted between the two reads
		return entity.Invoice{}, apperror.NewNotFoundError("Invoice")
	}
	return entity.Invoice{Order: order, Ordinal: ordinal, Day: day.String()}, nil
}

// NextInvoiceNumber returns the number the next order billed on day would get.
func (s *BillingService) NextInvoiceNumber(ctx context.Context, day invoice.DayKey) (int, error) {
	orders, err := s.orders.ListByDays(ctx, day, day)
	if err != nil {
		return 0, err
	}
	return invoice.NextInvoiceNumber(orders, day, s.loc), nil
}

// Today returns the current day in the shop timezone.
func (s *BillingService) Today() invoice.DayKey {
	return invoice.DayKeyOf(time.Now(), s.loc)
}

// LoadForEdit opens an editing cart filled with the invoice's lines.
func (s *BillingService) LoadForEdit(ctx context.Context, orderID int64) (*cart.Cart, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewNotFoundError("Invoice")
		}
		return nil, err
	}
	c, err := s.carts.OpenForEdit(*order)
	if err != nil {
		return nil, cartError(err)
	}
	return &c, nil
}

// Orphans lists orders left behind by failed rollbacks.
func (s *BillingService) Orphans() []Orphan {
	return s.orphans.List()
}

// Book returns the cached recent invoices.
func (s *BillingService) Book() InvoiceSnapshot {
	return s.book.Snapshot()
}

// release hands a claimed cart back after a failed write.
func (s *BillingService) release(cartID uuid.UUID) {
	if _, err := s.carts.Release(cartID); err != nil {
		s.log.Warn().Err(err).Str("cart_id", cartID.String()).Msg("release cart")
	}
}

func (s *BillingService) retire(cartID uuid.UUID) cart.Cart {
	billed, err := s.carts.Retire(cartID)
	if err != nil {
		// the cart changed state while the order was written
		s.log.Warn().Err(err).Str("cart_id", cartID.String()).Msg("retire cart")
	}
	return billed
}

// changed refreshes the local projection and tells the other tills.
func (s *BillingService) changed(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	if err := s.book.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("refresh invoice book")
	}
	if s.feed != nil {
		if err := s.feed.Publish(ctx, repository.CollectionOrders); err != nil {
			s.log.Warn().Err(err).Msg("publish order change")
		}
	}
}

func cartError(err error) error {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		return apperror.NewNotFoundError("Cart")
	case errors.Is(err, cart.ErrItemNotFound):
		return apperror.NewNotFoundError("Cart item")
	case errors.Is(err, cart.ErrInvalidQuantity):
		return apperror.NewValidationError([]apperror.FieldError{{Field: "quantity", Message: err.Error()}})
	case errors.Is(err, cart.ErrEmpty):
		return apperror.NewBadRequestError("Cart is empty")
	case errors.Is(err, cart.ErrBillingInProgress):
		return apperror.NewConflictError("Cart is already being billed")
	case errors.Is(err, cart.ErrInvalidTransition), errors.Is(err, cart.ErrAlreadyEditing):
		return apperror.NewConflictError(err.Error())
	}
	return err
}
