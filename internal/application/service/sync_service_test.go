package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
	"github.com/sangkips/tillpoint/internal/domain/repository"
	"github.com/sangkips/tillpoint/internal/infrastructure/changefeed"
)

// flakyOrders fails ListByDays a set number of times.
type flakyOrders struct {
	repository.OrderRepository
	failures atomic.Int32
	calls    atomic.Int32
}

func (f *flakyOrders) ListByDays(ctx context.Context, from, to invoice.DayKey) ([]entity.Order, error) {
	f.calls.Add(1)
	if f.failures.Add(-1) >= 0 {
		return nil, errors.New("i/o timeout")
	}
	return f.OrderRepository.ListByDays(ctx, from, to)
}

func TestInitialLoadRetries(t *testing.T) {
	f := newBillingFixture(t)
	if _, err := f.billing.Bill(context.Background(), f.cartWith(t, f.tea, 1)); err != nil {
		t.Fatal(err)
	}

	orders := &flakyOrders{OrderRepository: f.store.Orders()}
	orders.failures.Store(2)
	book := NewInvoiceBook(orders, time.UTC, 7, zerolog.Nop())
	book.now = func() time.Time { return testNow }

	sync := NewSyncService(book, nil, SyncSettings{LoadAttempts: 3, LoadBackoff: time.Millisecond}, zerolog.Nop())
	if err := sync.InitialLoad(context.Background()); err != nil {
		t.Fatalf("initial load: %v", err)
	}
	snap := book.Snapshot()
	if snap.Degraded || len(snap.Invoices) != 1 || orders.calls.Load() != 3 {
		t.Fatalf("unexpected snapshot %+v after %d calls", snap, orders.calls.Load())
	}
}

func TestInitialLoadDegradesAfterLastAttempt(t *testing.T) {
	f := newBillingFixture(t)
	orders := &flakyOrders{OrderRepository: f.store.Orders()}
	orders.failures.Store(10)
	book := NewInvoiceBook(orders, time.UTC, 7, zerolog.Nop())

	sync := NewSyncService(book, nil, SyncSettings{LoadAttempts: 2, LoadBackoff: time.Millisecond}, zerolog.Nop())
	if err := sync.InitialLoad(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	snap := book.Snapshot()
	if !snap.Degraded || snap.Error == "" || len(snap.Invoices) != 0 {
		t.Fatalf("expected an empty degraded snapshot, got %+v", snap)
	}
}

func TestRunRefreshesOnChangeEvent(t *testing.T) {
	f := newBillingFixture(t)
	feed := changefeed.NewLocalFeed()

	// another till writes straight to the shared store
	other := NewBillingService(f.store.Orders(), f.store.Lines(), f.store.Products(), f.carts,
		NewInvoiceBook(f.store.Orders(), time.UTC, 7, zerolog.Nop()), feed, NewOrphanRegistry(), time.UTC, zerolog.Nop())

	changed := make(chan InvoiceSnapshot, 4)
	f.book.OnChange(func(s InvoiceSnapshot) { changed <- s })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sync := NewSyncService(f.book, feed, SyncSettings{}, zerolog.Nop())
	done := make(chan error, 1)
	go func() { done <- sync.Run(ctx) }()

	// Subscribe runs inside Run; publish until the refresh shows the new invoice.
	if _, err := other.Bill(context.Background(), f.cartWith(t, f.tea, 1)); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for {
		_ = feed.Publish(context.Background(), repository.CollectionOrders)
		select {
		case s := <-changed:
			if len(s.Invoices) == 1 {
				cancel()
				if err := <-done; !errors.Is(err, context.Canceled) {
					t.Fatalf("unexpected run error %v", err)
				}
				return
			}
		case <-time.After(20 * time.Millisecond):
		case <-deadline:
			t.Fatal("invoice book was not refreshed")
		}
	}
}
