// Package memory is an in-process record store. It backs single-till deployments
// without a database and serves as the store in service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
)

// Store holds every table behind one lock. IDs are assigned from per-table counters
// and never reused, like a database sequence.
type Store struct {
	mu  sync.RWMutex
	loc *time.Location
	now func() time.Time

	orders      map[int64]entity.Order
	lines       map[int64]entity.OrderLine
	products    map[int64]entity.Product
	idempotency map[string]entity.IdempotencyKey
	settings    *entity.ShopSettings

	nextOrderID   int64
	nextLineID    int64
	nextProductID int64
}

// NewStore creates an empty store. loc is the shop timezone used for day windows.
func NewStore(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		loc:         loc,
		now:         time.Now,
		orders:      make(map[int64]entity.Order),
		lines:       make(map[int64]entity.OrderLine),
		products:    make(map[int64]entity.Product),
		idempotency: make(map[string]entity.IdempotencyKey),
	}
}

// SetClock replaces the clock that stamps created_at.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Orders returns the order table.
func (s *Store) Orders() domainRepo.OrderRepository { return orderTable{s} }

// Lines returns the order line table.
func (s *Store) Lines() domainRepo.OrderLineRepository { return lineTable{s} }

// Products returns the product table.
func (s *Store) Products() domainRepo.ProductRepository { return productTable{s} }

// Idempotency returns the idempotency key table.
func (s *Store) Idempotency() domainRepo.IdempotencyRepository { return idempotencyTable{s} }

// Settings returns the shop settings table.
func (s *Store) Settings() domainRepo.SettingsRepository { return settingsTable{s} }

// linesOf returns an order's lines in id order. Callers hold the lock.
func (s *Store) linesOf(orderID int64) []entity.OrderLine {
	out := []entity.OrderLine{}
	for _, l := range s.lines {
		if l.OrderID == orderID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type orderTable struct{ s *Store }

func (t orderTable) Create(ctx context.Context, order *entity.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextOrderID++
	order.ID = s.nextOrderID
	order.CreatedAt = s.now()
	stored := *order
	stored.Items = nil
	s.orders[order.ID] = stored
	return nil
}

func (t orderTable) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := t.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, domainRepo.ErrNotFound
	}
	o.Items = s.linesOf(id)
	return &o, nil
}

func (t orderTable) UpdateTotals(ctx context.Context, id int64, totalAmount, totalProfit decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return domainRepo.ErrNotFound
	}
	o.TotalAmount, o.TotalProfit = totalAmount, totalProfit
	s.orders[id] = o
	return nil
}

// Delete removes the order and cascades to its lines.
func (t orderTable) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[id]; !ok {
		return domainRepo.ErrNotFound
	}
	delete(s.orders, id)
	for lid, l := range s.lines {
		if l.OrderID == id {
			delete(s.lines, lid)
		}
	}
	return nil
}

func (t orderTable) ListByDays(ctx context.Context, from, to invoice.DayKey) ([]entity.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := t.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []entity.Order{}
	for id, o := range s.orders {
		if invoice.Contains(from, to, invoice.DayOf(o, s.loc)) {
			o.Items = s.linesOf(id)
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type lineTable struct{ s *Store }

// CreateBatch inserts all lines or none.
func (t lineTable) CreateBatch(ctx context.Context, lines []entity.OrderLine) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range lines {
		if _, ok := s.orders[l.OrderID]; !ok {
			return domainRepo.ErrNotFound
		}
	}
	for i := range lines {
		s.nextLineID++
		lines[i].ID = s.nextLineID
		s.lines[lines[i].ID] = lines[i]
	}
	return nil
}

func (t lineTable) GetByOrderID(ctx context.Context, orderID int64) ([]entity.OrderLine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.linesOf(orderID), nil
}

func (t lineTable) DeleteByOrderID(ctx context.Context, orderID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for lid, l := range s.lines {
		if l.OrderID == orderID {
			delete(s.lines, lid)
		}
	}
	return nil
}

type productTable struct{ s *Store }

func (t productTable) Create(ctx context.Context, product *entity.Product) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextProductID++
	product.ID = s.nextProductID
	product.CreatedAt = s.now()
	s.products[product.ID] = *product
	return nil
}

func (t productTable) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	p, ok := t.s.products[id]
	if !ok {
		return nil, domainRepo.ErrNotFound
	}
	return &p, nil
}

func (t productTable) GetByIDs(ctx context.Context, ids []int64) ([]entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	out := []entity.Product{}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if p, ok := t.s.products[id]; ok && !seen[id] {
			seen[id] = true
			out = append(out, p)
		}
	}
	return out, nil
}

func (t productTable) List(ctx context.Context) ([]entity.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()

	out := make([]entity.Product, 0, len(t.s.products))
	for _, p := range t.s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

// DeleteProduct removes a product from the catalog. Order lines keep their snapshot.
func (s *Store) DeleteProduct(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
}

type idempotencyTable struct{ s *Store }

func idemKey(key, terminalID string) string {
	return terminalID + "\x00" + key
}

func (t idempotencyTable) GetByKey(ctx context.Context, key, terminalID string) (*entity.IdempotencyKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	k, ok := t.s.idempotency[idemKey(key, terminalID)]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (t idempotencyTable) Create(ctx context.Context, ikey *entity.IdempotencyKey) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	ikey.CreatedAt = t.s.now()
	t.s.idempotency[idemKey(ikey.Key, ikey.TerminalID)] = *ikey
	return nil
}

func (t idempotencyTable) DeleteExpired(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	now := t.s.now()
	for k, v := range t.s.idempotency {
		if now.After(v.ExpiresAt) {
			delete(t.s.idempotency, k)
		}
	}
	return nil
}

type settingsTable struct{ s *Store }

func (t settingsTable) Get(ctx context.Context) (*entity.ShopSettings, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	if t.s.settings == nil {
		return nil, nil
	}
	out := *t.s.settings
	return &out, nil
}

func (t settingsTable) Save(ctx context.Context, settings *entity.ShopSettings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	settings.UpdatedAt = t.s.now()
	stored := *settings
	t.s.settings = &stored
	return nil
}
