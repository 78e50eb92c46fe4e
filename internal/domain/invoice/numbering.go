// Package invoice derives the per-day invoice numbers shown on receipts.
//
// Numbers are never stored. They are recomputed from the full set of orders of a
// calendar day: within a day, orders are numbered 1..N in ascending store id order.
// Deleting an order renumbers every later order of the same day on the next read.
package invoice

import (
	"fmt"
	"sort"
	"time"

	"github.com/sangkips/tillpoint/internal/domain/entity"
)

// DayKey identifies a calendar day. It is the grouping key for numbering.
type DayKey struct {
	Year  int
	Month time.Month
	Day   int
}

// DayKeyOf returns the calendar day of t as seen in loc.
func DayKeyOf(t time.Time, loc *time.Location) DayKey {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return DayKey{Year: y, Month: m, Day: d}
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (DayKey, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return DayKey{}, fmt.Errorf("invalid day %q: %w", s, err)
	}
	return DayKeyOf(t, time.UTC), nil
}

// DayOf returns the day an order is numbered under. BillDate is a calendar date and is
// taken as is; CreatedAt is an instant and is converted into loc first.
func DayOf(o entity.Order, loc *time.Location) DayKey {
	if o.BillDate != nil && !o.BillDate.IsZero() {
		y, m, d := o.BillDate.Date()
		return DayKey{Year: y, Month: m, Day: d}
	}
	return DayKeyOf(o.CreatedAt, loc)
}

func (k DayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.Year, int(k.Month), k.Day)
}

// Time returns midnight of the day in loc.
func (k DayKey) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(k.Year, k.Month, k.Day, 0, 0, 0, 0, loc)
}

// Before reports whether k is an earlier day than other
func (k DayKey) Before(other DayKey) bool {
	if k.Year != other.Year {
		return k.Year < other.Year
	}
	if k.Month != other.Month {
		return k.Month < other.Month
	}
	return k.Day < other.Day
}

// After reports whether k is a later day than other
func (k DayKey) After(other DayKey) bool {
	return other.Before(k)
}

// AddDays returns the day n days after k (n may be negative).
func (k DayKey) AddDays(n int) DayKey {
	return DayKeyOf(k.Time(time.UTC).AddDate(0, 0, n), time.UTC)
}

// Contains reports whether k lies in the inclusive range [from, to].
func Contains(from, to, k DayKey) bool {
	return !k.Before(from) && !k.After(to)
}

// Window returns the inclusive day range covering the last `days` calendar days up to and
// including today. A window always consists of whole days, so a fetch bounded by it never
// holds only part of a day's orders.
func Window(now time.Time, days int, loc *time.Location) (from, to DayKey) {
	if days < 1 {
		days = 1
	}
	to = DayKeyOf(now, loc)
	from = to.AddDays(-(days - 1))
	return from, to
}

// ComputeDailyOrdinals maps every order id to its 1-based position within its calendar day,
// ordered by ascending id. The result depends only on which orders are given and their ids;
// the input order does not matter. Callers must pass every order of each day they report on.
func ComputeDailyOrdinals(orders []entity.Order, loc *time.Location) map[int64]int {
	byDay := make(map[DayKey][]int64)
	for _, o := range orders {
		day := DayOf(o, loc)
		byDay[day] = append(byDay[day], o.ID)
	}

	ordinals := make(map[int64]int, len(orders))
	for _, ids := range byDay {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for i, id := range ids {
			ordinals[id] = i + 1
		}
	}
	return ordinals
}

// NextInvoiceNumber returns the ordinal the next order billed on day would receive.
func NextInvoiceNumber(orders []entity.Order, day DayKey, loc *time.Location) int {
	n := 0
	for _, o := range orders {
		if DayOf(o, loc) == day {
			n++
		}
	}
	return n + 1
}

// Number pairs each order with its ordinal and day, sorted newest day first and by
// ordinal within a day.
func Number(orders []entity.Order, loc *time.Location) []entity.Invoice {
	ordinals := ComputeDailyOrdinals(orders, loc)
	invoices := make([]entity.Invoice, 0, len(orders))
	for _, o := range orders {
		invoices = append(invoices, entity.Invoice{
			Order:   o,
			Ordinal: ordinals[o.ID],
			Day:     DayOf(o, loc).String(),
		})
	}
	sort.Slice(invoices, func(i, j int) bool {
		if invoices[i].Day != invoices[j].Day {
			return invoices[i].Day > invoices[j].Day
		}
		return invoices[i].Ordinal < invoices[j].Ordinal
	})
	return invoices
}
