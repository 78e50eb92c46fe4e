// Package cart keeps the in-progress carts of the tills. Carts are never persisted;
// billing turns a cart into an order and retires it.
package cart

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/enum"
)

var (
	ErrNotFound          = errors.New("cart not found")
	ErrInvalidTransition = errors.New("invalid cart state transition")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
	ErrItemNotFound      = errors.New("item not in cart")
	ErrAlreadyEditing    = errors.New("invoice is already open for editing")
	ErrEmpty             = errors.New("cart is empty")
	ErrBillingInProgress = errors.New("cart is already being billed")
)

// Line is a product and how many of it are in the cart.
type Line struct {
	Product  entity.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// Amount returns price times quantity
func (l Line) Amount() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an order in progress.
type Cart struct {
	ID             uuid.UUID      `json:"id"`
	State          enum.CartState `json:"state"`
	Lines          []Line         `json:"lines"`
	EditingOrderID *int64         `json:"editing_order_id,omitempty"`
	BillDate       *time.Time     `json:"bill_date,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`

	claimedFrom enum.CartState
}

// IsEmpty reports whether the cart has no lines
func (c Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// Total returns the sum of the line amounts
func (c Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Amount())
	}
	return total
}

// OrderLines converts the cart lines into order lines for orderID, snapshotting name,
// price and profit. Products with an id <= 0 are stored without a product id.
func (c Cart) OrderLines(orderID int64) []entity.OrderLine {
	lines := make([]entity.OrderLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		ol := entity.OrderLine{
			OrderID:     orderID,
			ProductName: l.Product.Name,
			Quantity:    l.Quantity,
			UnitPrice:   l.Product.Price,
			UnitProfit:  l.Product.Profit,
		}
		if l.Product.IsKnown() {
			id := l.Product.ID
			ol.ProductID = &id
		}
		lines = append(lines, ol)
	}
	return lines
}

func (c *Cart) clone() Cart {
	out := *c
	out.Lines = append([]Line(nil), c.Lines...)
	if c.EditingOrderID != nil {
		id := *c.EditingOrderID
		out.EditingOrderID = &id
	}
	if c.BillDate != nil {
		bd := *c.BillDate
		out.BillDate = &bd
	}
	return out
}

func (c *Cart) transition(next enum.CartState) error {
	if c.State == next {
		return nil
	}
	if !c.State.CanTransition(next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, c.State, next)
	}
	c.State = next
	return nil
}

// Registry is the process-wide set of carts. Every method returns copies.
type Registry struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*Cart
	now   func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{carts: make(map[uuid.UUID]*Cart), now: time.Now}
}

// Create opens an empty cart
func (r *Registry) Create() Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	c := &Cart{ID: uuid.New(), State: enum.CartStateEmpty, Lines: []Line{}, CreatedAt: now, UpdatedAt: now}
	r.carts[c.ID] = c
	return c.clone()
}

// OpenForEdit opens a cart pre-filled from an existing order. Lines whose product no
// longer has an id get distinct negative ids so they stay addressable.
func (r *Registry) OpenForEdit(order entity.Order) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.carts {
		if c.EditingOrderID != nil && *c.EditingOrderID == order.ID {
			return c.clone(), fmt.Errorf("%w: order %d in cart %s", ErrAlreadyEditing, order.ID, c.ID)
		}
	}

	now := r.now()
	orderID := order.ID
	c := &Cart{
		ID:             uuid.New(),
		State:          enum.CartStateEmpty,
		Lines:          make([]Line, 0, len(order.Items)),
		EditingOrderID: &orderID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if order.BillDate != nil {
		bd := *order.BillDate
		c.BillDate = &bd
	}

	var unknown int64
	for _, item := range order.Items {
		p := entity.Product{Name: item.ProductName, Price: item.UnitPrice, Profit: item.UnitProfit}
		if item.ProductID != nil && *item.ProductID > 0 {
			p.ID = *item.ProductID
		} else {
			unknown--
			p.ID = unknown
		}
		c.Lines = append(c.Lines, Line{Product: p, Quantity: item.Quantity})
	}
	if err := c.transition(enum.CartStateEditing); err != nil {
		return Cart{}, err
	}
	r.carts[c.ID] = c
	return c.clone(), nil
}

// Get returns a cart by id
func (r *Registry) Get(id uuid.UUID) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	return c.clone(), nil
}

// List returns every cart, oldest first
func (r *Registry) List() []Cart {
	return r.filter(func(*Cart) bool { return true })
}

// Held returns the held carts, oldest first
func (r *Registry) Held() []Cart {
	return r.filter(func(c *Cart) bool { return c.State == enum.CartStateHeld })
}

func (r *Registry) filter(keep func(*Cart) bool) []Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Cart{}
	for _, c := range r.carts {
		if keep(c) {
			out = append(out, c.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// update applies fn to a cart under the lock and returns the updated copy.
func (r *Registry) update(id uuid.UUID, fn func(*Cart) error) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	work := c.clone()
	if err := fn(&work); err != nil {
		return c.clone(), err
	}
	work.UpdatedAt = r.now()
	*c = work
	return c.clone(), nil
}

func editable(c *Cart) error {
	switch c.State {
	case enum.CartStateEmpty, enum.CartStatePopulated, enum.CartStateEditing:
		return nil
	}
	return fmt.Errorf("%w: cannot change a %s cart", ErrInvalidTransition, c.State)
}

// settle moves a non-editing cart between Empty and Populated after its lines changed.
func settle(c *Cart) error {
	if c.State == enum.CartStateEditing {
		return nil
	}
	if c.IsEmpty() {
		return c.transition(enum.CartStateEmpty)
	}
	return c.transition(enum.CartStatePopulated)
}

// AddItem adds qty of product, merging with an existing line for the same product
func (r *Registry) AddItem(id uuid.UUID, product entity.Product, qty int) (Cart, error) {
	if qty <= 0 {
		return Cart{}, ErrInvalidQuantity
	}
	return r.update(id, func(c *Cart) error {
		if err := editable(c); err != nil {
			return err
		}
		for i := range c.Lines {
			if c.Lines[i].Product.ID == product.ID {
				c.Lines[i].Quantity += qty
				return settle(c)
			}
		}
		c.Lines = append(c.Lines, Line{Product: product, Quantity: qty})
		return settle(c)
	})
}

// SetQuantity sets a line's quantity; zero or less removes the line
func (r *Registry) SetQuantity(id uuid.UUID, productID int64, qty int) (Cart, error) {
	if qty <= 0 {
		return r.RemoveItem(id, productID)
	}
	return r.update(id, func(c *Cart) error {
		if err := editable(c); err != nil {
			return err
		}
		for i := range c.Lines {
			if c.Lines[i].Product.ID == productID {
				c.Lines[i].Quantity = qty
				return settle(c)
			}
		}
		return ErrItemNotFound
	})
}

// RemoveItem removes a product's line
func (r *Registry) RemoveItem(id uuid.UUID, productID int64) (Cart, error) {
	return r.update(id, func(c *Cart) error {
		if err := editable(c); err != nil {
			return err
		}
		for i := range c.Lines {
			if c.Lines[i].Product.ID == productID {
				c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
				return settle(c)
			}
		}
		return ErrItemNotFound
	})
}

// SetBillDate sets or clears the calendar day the cart will be billed under
func (r *Registry) SetBillDate(id uuid.UUID, billDate *time.Time) (Cart, error) {
	return r.update(id, func(c *Cart) error {
		if err := editable(c); err != nil {
			return err
		}
		if billDate == nil {
			c.BillDate = nil
			return nil
		}
		y, m, d := billDate.Date()
		bd := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		c.BillDate = &bd
		return nil
	})
}

// Hold parks a populated cart so the till can serve someone else
func (r *Registry) Hold(id uuid.UUID) (Cart, error) {
	return r.update(id, func(c *Cart) error {
		if c.State != enum.CartStatePopulated {
			return fmt.Errorf("%w: only a populated cart can be held, cart is %s", ErrInvalidTransition, c.State)
		}
		return c.transition(enum.CartStateHeld)
	})
}

// Resume brings a held cart back
func (r *Registry) Resume(id uuid.UUID) (Cart, error) {
	return r.update(id, func(c *Cart) error {
		if c.State != enum.CartStateHeld {
			return fmt.Errorf("%w: cart is %s, not held", ErrInvalidTransition, c.State)
		}
		return c.transition(enum.CartStatePopulated)
	})
}

// Discard drops a cart without billing it
func (r *Registry) Discard(id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return ErrNotFound
	}
	if c.State == enum.CartStateBilling {
		return ErrBillingInProgress
	}
	delete(r.carts, id)
	return nil
}

// Claim moves a populated or editing cart to Billing and returns the snapshot to
// bill. Only one caller can hold the claim; the cart cannot change until it is
// released or retired.
func (r *Registry) Claim(id uuid.UUID) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	switch c.State {
	case enum.CartStateBilling:
		return c.clone(), ErrBillingInProgress
	case enum.CartStateEmpty:
		return c.clone(), ErrEmpty
	case enum.CartStatePopulated, enum.CartStateEditing:
		if c.IsEmpty() {
			return c.clone(), ErrEmpty
		}
	default:
		return c.clone(), fmt.Errorf("%w: cart is %s and cannot be billed", ErrInvalidTransition, c.State)
	}
	from := c.State
	if err := c.transition(enum.CartStateBilling); err != nil {
		return c.clone(), err
	}
	c.claimedFrom = from
	c.UpdatedAt = r.now()
	return c.clone(), nil
}

// Release hands a claimed cart back unchanged after a failed bill. A cart that is
// not being billed is left alone.
func (r *Registry) Release(id uuid.UUID) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	if c.State != enum.CartStateBilling {
		return c.clone(), nil
	}
	if err := c.transition(c.claimedFrom); err != nil {
		return c.clone(), err
	}
	c.UpdatedAt = r.now()
	return c.clone(), nil
}

// Retire marks a claimed cart billed and removes it. It is called only after the
// order and its lines are stored.
func (r *Registry) Retire(id uuid.UUID) (Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[id]
	if !ok {
		return Cart{}, ErrNotFound
	}
	if err := c.transition(enum.CartStateBilled); err != nil {
		return c.clone(), err
	}
	delete(r.carts, id)
	return c.clone(), nil
}
