package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sangkips/tillpoint/internal/domain/entity"
	"github.com/sangkips/tillpoint/internal/domain/invoice"
	domainRepo "github.com/sangkips/tillpoint/internal/domain/repository"
)

var eat = time.FixedZone("EAT", 3*60*60)

func TestOrderLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore(eat)
	s.SetClock(func() time.Time { return time.Date(2026, 3, 1, 10, 0, 0, 0, eat) })

	o := &entity.Order{TotalAmount: decimal.NewFromInt(40)}
	if err := s.Orders().Create(ctx, o); err != nil {
		t.Fatalf("create: %v", err)
	}
	if o.ID != 1 || o.CreatedAt.IsZero() {
		t.Fatalf("store did not assign id and created_at: %+v", o)
	}

	lines := []entity.OrderLine{{OrderID: o.ID, ProductName: "Tea", Quantity: 2, UnitPrice: decimal.NewFromInt(20)}}
	if err := s.Lines().CreateBatch(ctx, lines); err != nil {
		t.Fatalf("create lines: %v", err)
	}

	got, err := s.Orders().GetByID(ctx, o.ID)
	if err != nil || len(got.Items) != 1 || got.Items[0].ID == 0 {
		t.Fatalf("unexpected order %+v %v", got, err)
	}

	if err := s.Orders().Delete(ctx, o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rest, _ := s.Lines().GetByOrderID(ctx, o.ID); len(rest) != 0 {
		t.Fatal("lines not cascaded")
	}
	if _, err := s.Orders().GetByID(ctx, o.ID); !errors.Is(err, domainRepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// ids are never reused
	o2 := &entity.Order{}
	_ = s.Orders().Create(ctx, o2)
	if o2.ID != 2 {
		t.Fatalf("expected id 2, got %d", o2.ID)
	}
}

func TestCreateBatchRequiresOrder(t *testing.T) {
	s := NewStore(eat)
	err := s.Lines().CreateBatch(context.Background(), []entity.OrderLine{{OrderID: 99, ProductName: "x", Quantity: 1}})
	if !errors.Is(err, domainRepo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByDaysUsesBillDateAndShopTimezone(t *testing.T) {
	ctx := context.Background()
	s := NewStore(eat)

	// 22:30 UTC on Mar 1 is Mar 2 in EAT
	s.SetClock(func() time.Time { return time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC) })
	late := &entity.Order{}
	_ = s.Orders().Create(ctx, late)

	s.SetClock(func() time.Time { return time.Date(2026, 3, 5, 9, 0, 0, 0, eat) })
	bd := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	backdated := &entity.Order{BillDate: &bd}
	_ = s.Orders().Create(ctx, backdated)
	other := &entity.Order{}
	_ = s.Orders().Create(ctx, other)

	day := invoice.DayKey{Year: 2026, Month: time.March, Day: 2}
	got, err := s.Orders().ListByDays(ctx, day, day)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != late.ID || got[1].ID != backdated.ID {
		t.Fatalf("unexpected orders %+v", got)
	}
}

func TestProductsGetByIDsSkipsUnknown(t *testing.T) {
	ctx := context.Background()
	s := NewStore(eat)
	p := &entity.Product{Name: "Bread", Price: decimal.NewFromInt(55)}
	_ = s.Products().Create(ctx, p)

	got, err := s.Products().GetByIDs(ctx, []int64{p.ID, 42})
	if err != nil || len(got) != 1 || got[0].ID != p.ID {
		t.Fatalf("unexpected products %+v %v", got, err)
	}

	s.DeleteProduct(p.ID)
	if got, _ := s.Products().GetByIDs(ctx, []int64{p.ID}); len(got) != 0 {
		t.Fatal("deleted product still returned")
	}
}

func TestIdempotencyKeysAreScopedByTerminal(t *testing.T) {
	ctx := context.Background()
	s := NewStore(eat)
	k := &entity.IdempotencyKey{Key: "abc", TerminalID: "till-1", ResponseCode: 201, ExpiresAt: time.Now().Add(time.Hour)}
	_ = s.Idempotency().Create(ctx, k)

	if got, _ := s.Idempotency().GetByKey(ctx, "abc", "till-2"); got != nil {
		t.Fatal("key leaked across terminals")
	}
	if got, _ := s.Idempotency().GetByKey(ctx, "abc", "till-1"); got == nil || got.ResponseCode != 201 {
		t.Fatalf("unexpected key %+v", got)
	}
}
