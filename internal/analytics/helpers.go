// Package analytics computes the business reports over an immutable order snapshot.
// Every function here is pure: the same snapshot and evaluation date always yield the same rows.
package analytics

import (
	"time"

	"order-analytics/internal/models"

	"github.com/shopspring/decimal"
)

// Snapshot is the input every report is computed from
type Snapshot = models.Snapshot

// SafeDiv returns num/den, or nil when den is zero
func SafeDiv(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}

// SafeDivPtr is SafeDiv for nullable operands. A nil operand yields nil.
func SafeDivPtr(num, den *float64) *float64 {
	if num == nil || den == nil {
		return nil
	}
	return SafeDiv(*num, *den)
}

// NetRevenue applies the discount to gross revenue, treating a missing discount as 0
func NetRevenue(revenue float64, discountPct *float64) float64 {
	discount := 0.0
	if discountPct != nil {
		discount = *discountPct
	}
	return revenue * (1 - discount/100)
}

// orderNet returns the net revenue of an order and false when its revenue is missing
func orderNet(o *models.Order) (float64, bool) {
	if o.Revenue == nil {
		return 0, false
	}
	return NetRevenue(*o.Revenue, o.DiscountPct), true
}

// TruncateToMonth maps t to the first instant of its calendar month.
// The key is always in UTC so keys from different locations compare with ==.
func TruncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthsBetween returns the signed number of whole calendar months from earlier to later
func MonthsBetween(later, earlier time.Time) int {
	return (later.Year()-earlier.Year())*12 + int(later.Month()) - int(earlier.Month())
}

// AddMonths shifts t by n calendar months, clamping the day to the end of the target month
// (2024-08-31 minus 6 months is 2024-02-29, not March 2nd).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	target := first.AddDate(0, n, 0)
	lastDay := target.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(target.Year(), target.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// dayAfter returns midnight at the start of the day following t.
// Date-relative reports count orders placed up to the end of the evaluation day.
func dayAfter(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the number of calendar days between the dates of two timestamps
func DaysBetween(later, earlier time.Time) int {
	l := time.Date(later.Year(), later.Month(), later.Day(), 0, 0, 0, 0, time.UTC)
	e := time.Date(earlier.Year(), earlier.Month(), earlier.Day(), 0, 0, 0, 0, time.UTC)
	return int(l.Sub(e).Hours() / 24)
}

// Round rounds half away from zero to the given number of decimal places
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// RoundPtr rounds a nullable value
func RoundPtr(v *float64, places int32) *float64 {
	if v == nil {
		return nil
	}
	r := Round(*v, places)
	return &r
}

// aggregate mirrors SQL SUM/AVG over a nullable column: nulls are skipped,
// an empty sum is 0 and an empty average is null.
type aggregate struct {
	sum float64
	n   int
}

func (a *aggregate) add(v float64) {
	a.sum += v
	a.n++
}

func (a *aggregate) addPtr(v *float64) {
	if v != nil {
		a.add(*v)
	}
}

func (a *aggregate) avg() *float64 {
	if a.n == 0 {
		return nil
	}
	v := a.sum / float64(a.n)
	return &v
}

func ptr(v float64) *float64 {
	return &v
}

// descNullsLast orders nullable values descending with nulls at the end.
// It reports whether a sorts before b and whether the two are equal.
func descNullsLast(a, b *float64) (before, equal bool) {
	switch {
	case a == nil && b == nil:
		return false, true
	case a == nil:
		return false, false
	case b == nil:
		return true, false
	case *a == *b:
		return false, true
	default:
		return *a > *b, false
	}
}
