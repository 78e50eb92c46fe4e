package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
	"github.com/sangkips/tillpoint/internal/domain/repository"
)

// InvoiceSnapshot is the numbered invoice list of the recent window.
type InvoiceSnapshot struct {
	Invoices    []entity.Invoice `json:"invoices"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	RefreshedAt time.Time        `json:"refreshed_at"`
	Degraded    bool             `json:"degraded"`
	Error       string           `json:"error,omitempty"`
}

// InvoiceBook caches the numbered invoices of the last WindowDays days. Every refresh
// re-reads whole days from the store and renumbers from scratch.
type InvoiceBook struct {
	orders repository.OrderRepository
	loc    *time.Location
	days   int
	now    func() time.Time
	log    zerolog.Logger

	refreshMu sync.Mutex

	mu        sync.RWMutex
	snap      InvoiceSnapshot
	listeners []func(InvoiceSnapshot)
}

// NewInvoiceBook creates an empty book.
func NewInvoiceBook(orders repository.OrderRepository, loc *time.Location, windowDays int, log zerolog.Logger) *InvoiceBook {
	if windowDays < 1 {
		windowDays = 1
	}
	return &InvoiceBook{
		orders: orders,
		loc:    loc,
		days:   windowDays,
		now:    time.Now,
		log:    log.With().Str("component", "invoice_book").Logger(),
		snap:   InvoiceSnapshot{Invoices: []entity.Invoice{}},
	}
}

// OnChange registers fn to run with every new snapshot.
func (b *InvoiceBook) OnChange(fn func(InvoiceSnapshot)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, fn)
}

// Refresh reloads the window. On failure the previous invoices are kept and the
// snapshot is marked degraded.
func (b *InvoiceBook) Refresh(ctx context.Context) error {
	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()

	from, to := invoice.Window(b.now(), b.days, b.loc)
	orders, err := b.orders.ListByDays(ctx, from, to)
	if err != nil {
		b.MarkDegraded(err)
		return err
	}

	b.publish(InvoiceSnapshot{
		Invoices:    invoice.Number(orders, b.loc),
		From:        from.String(),
		To:          to.String(),
		RefreshedAt: b.now(),
	})
	b.log.Debug().Int("invoices", len(orders)).Str("from", from.String()).Str("to", to.String()).Msg("invoice book refreshed")
	return nil
}

// MarkDegraded flags the current snapshot as stale.
func (b *InvoiceBook) MarkDegraded(err error) {
	b.mu.RLock()
	snap := b.snap
	b.mu.RUnlock()

	snap.Degraded = true
	snap.Error = err.Error()
	b.log.Warn().Err(err).Msg("invoice book degraded")
	b.publish(snap)
}

func (b *InvoiceBook) publish(snap InvoiceSnapshot) {
	b.mu.Lock()
	b.snap = snap
	listeners := append([]func(InvoiceSnapshot){}, b.listeners...)
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Snapshot returns the cached invoices.
func (b *InvoiceBook) Snapshot() InvoiceSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := b.snap
	out.Invoices = make([]entity.Invoice, len(b.snap.Invoices))
	copy(out.Invoices, b.snap.Invoices)
	return out
}
