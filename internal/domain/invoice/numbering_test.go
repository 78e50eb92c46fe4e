package invoice

import (
	"math/rand"
	"reflect"
	"testing"
	"time"

	"github.com/sangkips/tillpoint/internal/domain/entity"
)

var nairobi = time.FixedZone("EAT", 3*60*60)

func orderAt(id int64, created time.Time) entity.Order {
	return entity.Order{ID: id, CreatedAt: created}
}

func day(y int, m time.Month, d, hour int) time.Time {
	return time.Date(y, m, d, hour, 0, 0, 0, nairobi)
}

func sampleOrders() []entity.Order {
	return []entity.Order{
		orderAt(10, day(2026, 3, 1, 9)),
		orderAt(14, day(2026, 3, 1, 11)),
		orderAt(22, day(2026, 3, 1, 18)),
		orderAt(23, day(2026, 3, 2, 8)),
		orderAt(31, day(2026, 3, 2, 9)),
	}
}

func TestComputeDailyOrdinalsScenario(t *testing.T) {
	orders := sampleOrders()[:3]

	got := ComputeDailyOrdinals(orders, nairobi)
	want := map[int64]int{10: 1, 14: 2, 22: 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	// delete order 14 and recompute
	remaining := []entity.Order{orders[0], orders[2]}
	got = ComputeDailyOrdinals(remaining, nairobi)
	want = map[int64]int{10: 1, 22: 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("after delete expected %v, got %v", want, got)
	}
}

func TestComputeDailyOrdinalsIgnoresInputOrder(t *testing.T) {
	orders := sampleOrders()
	want := ComputeDailyOrdinals(orders, nairobi)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := append([]entity.Order(nil), orders...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if got := ComputeDailyOrdinals(shuffled, nairobi); !reflect.DeepEqual(got, want) {
			t.Fatalf("shuffle %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestComputeDailyOrdinalsContiguousAndMonotonic(t *testing.T) {
	orders := sampleOrders()
	ordinals := ComputeDailyOrdinals(orders, nairobi)

	byDay := map[DayKey][]entity.Order{}
	for _, o := range orders {
		k := DayOf(o, nairobi)
		byDay[k] = append(byDay[k], o)
	}

	for k, dayOrders := range byDay {
		seen := map[int]bool{}
		for _, o := range dayOrders {
			n := ordinals[o.ID]
			if n < 1 || n > len(dayOrders) {
				t.Fatalf("%s: ordinal %d out of range 1..%d", k, n, len(dayOrders))
			}
			if seen[n] {
				t.Fatalf("%s: ordinal %d used twice", k, n)
			}
			seen[n] = true
		}
		for _, a := range dayOrders {
			for _, b := range dayOrders {
				if a.ID < b.ID && ordinals[a.ID] >= ordinals[b.ID] {
					t.Fatalf("%s: id %d got %d, id %d got %d", k, a.ID, ordinals[a.ID], b.ID, ordinals[b.ID])
				}
			}
		}
	}
}

func TestDeletingSmallestIDShiftsDayDownByOne(t *testing.T) {
	orders := sampleOrders()
	before := ComputeDailyOrdinals(orders, nairobi)

	// order 10 is the smallest id on 2026-03-01
	after := ComputeDailyOrdinals(orders[1:], nairobi)
	for _, id := range []int64{14, 22} {
		if after[id] != before[id]-1 {
			t.Fatalf("id %d: expected %d, got %d", id, before[id]-1, after[id])
		}
	}
	for _, id := range []int64{23, 31} {
		if after[id] != before[id] {
			t.Fatalf("id %d on another day changed from %d to %d", id, before[id], after[id])
		}
	}
}

func TestBillDateOverridesCreatedAt(t *testing.T) {
	backdated := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	orders := []entity.Order{
		orderAt(10, day(2026, 3, 1, 9)),
		{ID: 40, CreatedAt: day(2026, 3, 5, 10), BillDate: &backdated},
		orderAt(41, day(2026, 3, 5, 11)),
	}

	got := ComputeDailyOrdinals(orders, nairobi)
	want := map[int64]int{10: 1, 40: 2, 41: 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestCreatedAtUsesShopTimezone(t *testing.T) {
	// 22:30 UTC on the 1st is already the 2nd in Nairobi
	late := time.Date(2026, 3, 1, 22, 30, 0, 0, time.UTC)
	o := orderAt(5, late)

	if got := DayOf(o, nairobi); got != (DayKey{2026, time.March, 2}) {
		t.Fatalf("expected 2026-03-02, got %s", got)
	}
	if got := DayOf(o, time.UTC); got != (DayKey{2026, time.March, 1}) {
		t.Fatalf("expected 2026-03-01, got %s", got)
	}
}

func TestEmptyOrderStillNumbered(t *testing.T) {
	orders := []entity.Order{
		{ID: 1, CreatedAt: day(2026, 3, 1, 9), Items: nil},
		{ID: 2, CreatedAt: day(2026, 3, 1, 10), Items: []entity.OrderLine{{ProductName: "Tea", Quantity: 1}}},
	}
	got := ComputeDailyOrdinals(orders, nairobi)
	if got[1] != 1 || got[2] != 2 {
		t.Fatalf("unexpected ordinals %v", got)
	}
}

func TestNextInvoiceNumber(t *testing.T) {
	d := DayKey{2026, time.March, 1}
	if n := NextInvoiceNumber(nil, d, nairobi); n != 1 {
		t.Fatalf("expected 1 for an empty day, got %d", n)
	}
	if n := NextInvoiceNumber(sampleOrders(), d, nairobi); n != 4 {
		t.Fatalf("expected 4, got %d", n)
	}
}

func TestWindowCoversWholeDays(t *testing.T) {
	now := day(2026, 3, 7, 15)
	from, to := Window(now, 7, nairobi)
	if from != (DayKey{2026, time.March, 1}) || to != (DayKey{2026, time.March, 7}) {
		t.Fatalf("unexpected window %s..%s", from, to)
	}
	if !Contains(from, to, DayKey{2026, time.March, 1}) || Contains(from, to, DayKey{2026, time.February, 28}) {
		t.Fatal("window bounds are not inclusive whole days")
	}
}

func TestParseDay(t *testing.T) {
	k, err := ParseDay("2026-12-31")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if k.String() != "2026-12-31" || k.AddDays(1).String() != "2027-01-01" {
		t.Fatalf("unexpected day arithmetic %s", k)
	}
	if _, err := ParseDay("31/12/2026"); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}

func TestNumberSortsNewestDayFirst(t *testing.T) {
	invoices := Number(sampleOrders(), nairobi)
	if len(invoices) != 5 {
		t.Fatalf("expected 5 invoices, got %d", len(invoices))
	}
	if invoices[0].Day != "2026-03-02" || invoices[0].Ordinal != 1 || invoices[0].ID != 23 {
		t.Fatalf("unexpected first invoice %+v", invoices[0])
	}
	if invoices[4].ID != 22 || invoices[4].Ordinal != 3 {
		t.Fatalf("unexpected last invoice %+v", invoices[4])
	}
}
