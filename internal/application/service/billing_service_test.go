package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/application/cart"
	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/enum"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
	"github.com/sangkips/tillpoint/internal/domain/repository"
	"github.com/sangkips/tillpoint/internal/infrastructure/changefeed"
	"github.com/sangkips/tillpoint/internal/infrastructure/memory"
	"github.com/sangkips/tillpoint/pkg/apperror"
)

var (
	testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	testDay = invoice.DayKeyOf(testNow, time.UTC)
)

// failingLines fails CreateBatch once armed.
type failingLines struct {
	repository.OrderLineRepository
	fail bool
}

func (f *failingLines) CreateBatch(ctx context.Context, lines []entity.OrderLine) error {
	if f.fail {
		return errors.New("connection reset")
	}
	return f.OrderLineRepository.CreateBatch(ctx, lines)
}

// failingDelete fails Delete once armed.
type failingDelete struct {
	repository.OrderRepository
	fail bool
}

func (f *failingDelete) Delete(ctx context.Context, id int64) error {
	if f.fail {
		return errors.New("store unavailable")
	}
	return f.OrderRepository.Delete(ctx, id)
}

// blockingLines holds CreateBatch until proceed is closed.
type blockingLines struct {
	repository.OrderLineRepository
	entered chan struct{}
	proceed chan struct{}
}

func (b *blockingLines) CreateBatch(ctx context.Context, lines []entity.OrderLine) error {
	b.entered <- struct{}{}
	<-b.proceed
	return b.OrderLineRepository.CreateBatch(ctx, lines)
}

type billingFixture struct {
	store   *memory.Store
	orders  *failingDelete
	lines   *failingLines
	carts   *cart.Registry
	book    *InvoiceBook
	billing *BillingService
	tea     entity.Product
	bread   entity.Product
	milk    entity.Product
}

func newBillingFixture(t *testing.T) *billingFixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore(time.UTC)
	store.SetClock(func() time.Time { return testNow })

	f := &billingFixture{
		store:  store,
		orders: &failingDelete{OrderRepository: store.Orders()},
		lines:  &failingLines{OrderLineRepository: store.Lines()},
		carts:  cart.NewRegistry(),
	}
	f.book = NewInvoiceBook(f.orders, time.UTC, 7, zerolog.Nop())
	f.book.now = func() time.Time { return testNow }
	f.billing = NewBillingService(f.orders, f.lines, store.Products(), f.carts, f.book,
		changefeed.NewLocalFeed(), NewOrphanRegistry(), time.UTC, zerolog.Nop())

	for _, p := range []*entity.Product{
		{Name: "Tea", Price: decimal.NewFromInt(20), Profit: decimal.NewFromInt(5)},
		{Name: "Bread", Price: decimal.NewFromInt(55), Profit: decimal.NewFromInt(10)},
		{Name: "Milk", Price: decimal.NewFromInt(60), Profit: decimal.NewFromInt(8)},
	} {
		if err := store.Products().Create(ctx, p); err != nil {
			t.Fatalf("create product: %v", err)
		}
	}
	products, _ := store.Products().List(ctx)
	byName := map[string]entity.Product{}
	for _, p := range products {
		byName[p.Name] = p
	}
	f.tea, f.bread, f.milk = byName["Tea"], byName["Bread"], byName["Milk"]
	return f
}

// cartWith creates a populated cart. Quantities follow products pairwise.
func (f *billingFixture) cartWith(t *testing.T, items ...any) uuid.UUID {
	t.Helper()
	c := f.carts.Create()
	for i := 0; i < len(items); i += 2 {
		var err error
		c, err = f.carts.AddItem(c.ID, items[i].(entity.Product), items[i+1].(int))
		if err != nil {
			t.Fatalf("add item: %v", err)
		}
	}
	return c.ID
}

func TestBillFirstOrderOfDay(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	next, err := f.billing.NextInvoiceNumber(ctx, testDay)
	if err != nil || next != 1 {
		t.Fatalf("expected next number 1, got %d (%v)", next, err)
	}

	id := f.cartWith(t, f.tea, 2, f.bread, 1)
	res, err := f.billing.Bill(ctx, id)
	if err != nil {
		t.Fatalf("bill: %v", err)
	}
	if res.Invoice.Ordinal != 1 || res.Invoice.Day != testDay.String() {
		t.Fatalf("unexpected invoice %+v", res.Invoice)
	}
	if !res.Invoice.TotalAmount.Equal(decimal.NewFromInt(95)) || !res.Invoice.TotalProfit.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected totals %s / %s", res.Invoice.TotalAmount, res.Invoice.TotalProfit)
	}
	if res.Cart.State != enum.CartStateBilled {
		t.Fatalf("expected billed cart, got %s", res.Cart.State)
	}
	if _, err := f.carts.Get(id); !errors.Is(err, cart.ErrNotFound) {
		t.Fatalf("billed cart should be retired, got %v", err)
	}

	lines, _ := f.store.Lines().GetByOrderID(ctx, res.Invoice.ID)
	if len(lines) != 2 || lines[0].ProductName != "Tea" || *lines[0].ProductID != f.tea.ID {
		t.Fatalf("unexpected stored lines %+v", lines)
	}
	if snap := f.book.Snapshot(); len(snap.Invoices) != 1 || snap.Invoices[0].Ordinal != 1 {
		t.Fatalf("invoice book not refreshed: %+v", snap)
	}
	if next, _ := f.billing.NextInvoiceNumber(ctx, testDay); next != 2 {
		t.Fatalf("expected next number 2, got %d", next)
	}
}

func TestBillRejectsEmptyAndHeldCarts(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	empty := f.carts.Create()
	if _, err := f.billing.Bill(ctx, empty.ID); apperror.GetAppError(err).Code != 400 {
		t.Fatalf("expected bad request for an empty cart, got %v", err)
	}

	held := f.cartWith(t, f.tea, 1)
	if _, err := f.carts.Hold(held); err != nil {
		t.Fatal(err)
	}
	if _, err := f.billing.Bill(ctx, held); apperror.GetAppError(err).Code != 409 {
		t.Fatalf("expected conflict for a held cart, got %v", err)
	}
	if _, err := f.billing.Bill(ctx, uuid.New()); apperror.GetAppError(err).Code != 404 {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBillRollsBackOrderWhenLinesFail(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	id := f.cartWith(t, f.tea, 2, f.milk, 1)
	before, _ := f.carts.Get(id)

	f.lines.fail = true
	_, err := f.billing.Bill(ctx, id)
	if err == nil {
		t.Fatal("expected an error")
	}
	appErr := apperror.GetAppError(err)
	if appErr.Step != StepInsertLines || appErr.Critical {
		t.Fatalf("unexpected error %+v", appErr)
	}

	orders, _ := f.store.Orders().ListByDays(ctx, testDay, testDay)
	if len(orders) != 0 {
		t.Fatalf("order header should have been deleted, found %+v", orders)
	}

	after, err := f.carts.Get(id)
	if err != nil {
		t.Fatalf("cart must survive a failed bill: %v", err)
	}
	if after.State != enum.CartStatePopulated || len(after.Lines) != len(before.Lines) || after.Lines[0].Quantity != 2 {
		t.Fatalf("cart changed: %+v", after)
	}
	if len(f.billing.Orphans()) != 0 {
		t.Fatalf("unexpected orphans %+v", f.billing.Orphans())
	}
}

func TestBillRecordsOrphanWhenRollbackFails(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	id := f.cartWith(t, f.bread, 1)
	f.lines.fail = true
	f.orders.fail = true

	_, err := f.billing.Bill(ctx, id)
	appErr := apperror.GetAppError(err)
	if !appErr.Critical || appErr.Step != StepRollbackOrder {
		t.Fatalf("expected a critical rollback error, got %+v", appErr)
	}

	orphans := f.billing.Orphans()
	if len(orphans) != 1 || orphans[0].Step != StepRollbackOrder {
		t.Fatalf("unexpected orphans %+v", orphans)
	}
	if _, err := f.carts.Get(id); err != nil {
		t.Fatalf("cart must survive a failed bill: %v", err)
	}

	// a manual delete clears the orphan
	f.orders.fail = false
	if err := f.billing.Delete(ctx, orphans[0].OrderID); err != nil {
		t.Fatalf("delete orphan: %v", err)
	}
	if len(f.billing.Orphans()) != 0 {
		t.Fatal("orphan still listed after delete")
	}
}

func TestDeleteRenumbersLaterInvoices(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		res, err := f.billing.Bill(ctx, f.cartWith(t, f.tea, i+1))
		if err != nil {
			t.Fatalf("bill: %v", err)
		}
		ids = append(ids, res.Invoice.ID)
	}

	invs, _ := f.billing.Invoices(ctx, testDay, testDay)
	got := ordinalsOf(invs)
	if got[ids[0]] != 1 || got[ids[1]] != 2 || got[ids[2]] != 3 {
		t.Fatalf("unexpected ordinals %v", got)
	}

	if err := f.billing.Delete(ctx, ids[1]); err != nil {
		t.Fatalf("delete: %v", err)
	}
	invs, _ = f.billing.Invoices(ctx, testDay, testDay)
	got = ordinalsOf(invs)
	if len(got) != 2 || got[ids[0]] != 1 || got[ids[2]] != 2 {
		t.Fatalf("unexpected ordinals after delete %v", got)
	}

	if err := f.billing.Delete(ctx, ids[1]); apperror.GetAppError(err).Code != 404 {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateReplacesLinesAndTotals(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	if _, err := f.billing.Bill(ctx, f.cartWith(t, f.milk, 1)); err != nil {
		t.Fatal(err)
	}
	second, err := f.billing.Bill(ctx, f.cartWith(t, f.tea, 1, f.bread, 2, f.milk, 3))
	if err != nil {
		t.Fatal(err)
	}
	if second.Invoice.Ordinal != 2 {
		t.Fatalf("expected ordinal 2, got %d", second.Invoice.Ordinal)
	}
	orderID := second.Invoice.ID

	c, err := f.billing.LoadForEdit(ctx, orderID)
	if err != nil {
		t.Fatalf("load for edit: %v", err)
	}
	if c.State != enum.CartStateEditing || len(c.Lines) != 3 {
		t.Fatalf("unexpected edit cart %+v", c)
	}
	for _, l := range c.Lines {
		if _, err := f.carts.RemoveItem(c.ID, l.Product.ID); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := f.carts.AddItem(c.ID, f.bread, 4); err != nil {
		t.Fatal(err)
	}

	res, err := f.billing.Bill(ctx, c.ID)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Invoice.ID != orderID || res.Invoice.Ordinal != 2 {
		t.Fatalf("unexpected invoice %+v", res.Invoice)
	}

	lines, _ := f.store.Lines().GetByOrderID(ctx, orderID)
	if len(lines) != 1 || lines[0].ProductName != "Bread" || lines[0].Quantity != 4 {
		t.Fatalf("unexpected lines %+v", lines)
	}
	stored, _ := f.store.Orders().GetByID(ctx, orderID)
	if !stored.TotalAmount.Equal(decimal.NewFromInt(220)) || !stored.TotalProfit.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected totals %s / %s", stored.TotalAmount, stored.TotalProfit)
	}
	if _, err := f.carts.Get(c.ID); !errors.Is(err, cart.ErrNotFound) {
		t.Fatalf("edit cart should be retired, got %v", err)
	}
}

func TestUpdateKeepsSnapshotOfDeletedProduct(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	res, err := f.billing.Bill(ctx, f.cartWith(t, f.tea, 1, f.bread, 1))
	if err != nil {
		t.Fatal(err)
	}
	f.store.DeleteProduct(f.bread.ID)

	c, err := f.billing.LoadForEdit(ctx, res.Invoice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.carts.SetQuantity(c.ID, f.tea.ID, 3); err != nil {
		t.Fatal(err)
	}
	if _, err := f.billing.Update(ctx, c.ID); err != nil {
		t.Fatalf("update: %v", err)
	}

	lines, _ := f.store.Lines().GetByOrderID(ctx, res.Invoice.ID)
	if len(lines) != 2 {
		t.Fatalf("unexpected lines %+v", lines)
	}
	if lines[1].ProductID != nil || lines[1].ProductName != "Bread" || !lines[1].UnitPrice.Equal(f.bread.Price) {
		t.Fatalf("deleted product should keep its snapshot without a reference: %+v", lines[1])
	}
}

func TestUpdateReportsCriticalErrorAfterDelete(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	res, err := f.billing.Bill(ctx, f.cartWith(t, f.tea, 1))
	if err != nil {
		t.Fatal(err)
	}
	c, err := f.billing.LoadForEdit(ctx, res.Invoice.ID)
	if err != nil {
		t.Fatal(err)
	}

	f.lines.fail = true
	_, err = f.billing.Update(ctx, c.ID)
	appErr := apperror.GetAppError(err)
	if !appErr.Critical || appErr.Step != StepInsertLines {
		t.Fatalf("expected a critical insert error, got %+v", appErr)
	}
	if got, err := f.carts.Get(c.ID); err != nil || got.State != enum.CartStateEditing {
		t.Fatalf("edit cart must be kept for a manual retry: %+v %v", got, err)
	}
}

func TestLoadForEditTwiceConflicts(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	res, err := f.billing.Bill(ctx, f.cartWith(t, f.tea, 1))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.billing.LoadForEdit(ctx, res.Invoice.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.billing.LoadForEdit(ctx, res.Invoice.ID); apperror.GetAppError(err).Code != 409 {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := f.billing.LoadForEdit(ctx, 999); apperror.GetAppError(err).Code != 404 {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBackdatedBillIsNumberedUnderBillDate(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	if _, err := f.billing.Bill(ctx, f.cartWith(t, f.tea, 1)); err != nil {
		t.Fatal(err)
	}

	id := f.cartWith(t, f.bread, 1)
	yesterday := testNow.AddDate(0, 0, -1)
	if _, err := f.carts.SetBillDate(id, &yesterday); err != nil {
		t.Fatal(err)
	}
	res, err := f.billing.Bill(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if res.Invoice.Ordinal != 1 || res.Invoice.Day != testDay.AddDays(-1).String() {
		t.Fatalf("unexpected backdated invoice %+v", res.Invoice)
	}
	if snap := f.book.Snapshot(); len(snap.Invoices) != 2 {
		t.Fatalf("expected both days in the book, got %+v", snap.Invoices)
	}
}

func ordinalsOf(invs []entity.Invoice) map[int64]int {
	out := make(map[int64]int, len(invs))
	for _, inv := range invs {
		out[inv.ID] = inv.Ordinal
	}
	return out
}

func TestSecondBillOfCartInFlightConflicts(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()

	lines := &blockingLines{
		OrderLineRepository: f.store.Lines(),
		entered:             make(chan struct{}, 2),
		proceed:             make(chan struct{}),
	}
	billing := NewBillingService(f.orders, lines, f.store.Products(), f.carts, f.book,
		changefeed.NewLocalFeed(), NewOrphanRegistry(), time.UTC, zerolog.Nop())

	id := f.cartWith(t, f.tea, 1)
	done := make(chan error, 1)
	go func() {
		_, err := billing.Bill(ctx, id)
		done <- err
	}()
	<-lines.entered

	if _, err := billing.Bill(ctx, id); apperror.GetAppError(err).Code != 409 {
		t.Fatalf("expected conflict while the cart is being billed, got %v", err)
	}
	if _, err := f.carts.AddItem(id, f.bread, 1); !errors.Is(err, cart.ErrInvalidTransition) {
		t.Fatalf("lines must not be added while billing, got %v", err)
	}

	close(lines.proceed)
	if err := <-done; err != nil {
		t.Fatalf("bill: %v", err)
	}
	orders, _ := f.store.Orders().ListByDays(ctx, testDay, testDay)
	if len(orders) != 1 {
		t.Fatalf("expected one order for one cart, got %d", len(orders))
	}
	if _, err := billing.Bill(ctx, id); apperror.GetAppError(err).Code != 404 {
		t.Fatalf("billed cart should be gone, got %v", err)
	}
}

func TestConcurrentBillsStoreOneOrder(t *testing.T) {
	f := newBillingFixture(t)
	ctx := context.Background()
	id := f.cartWith(t, f.tea, 2, f.milk, 1)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.billing.Bill(ctx, id)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		if code := apperror.GetAppError(err).Code; code != 409 && code != 404 {
			t.Fatalf("unexpected error %v", err)
		}
	}
	orders, _ := f.store.Orders().ListByDays(ctx, testDay, testDay)
	if succeeded != 1 || len(orders) != 1 {
		t.Fatalf("expected one bill and one order, got %d bills and %d orders", succeeded, len(orders))
	}
}
