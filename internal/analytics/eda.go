package analytics

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"
)

// correlationColumns are the measures compared pairwise by CorrelationMatrix
var correlationColumns = []string{
	"revenue", "order_value", "marketing_spend", "units_sold", "discount_pct", "profit_margin", "roi",
}

// CorrelationRow is the Pearson correlation of one pair of order measures
type CorrelationRow struct {
	ColumnA      string   `json:"column_a"`
	ColumnB      string   `json:"column_b"`
	Observations int      `json:"observations"`
	Pearson      *float64 `json:"pearson"`
}

// CorrelationMatrix correlates every pair of order measures, one row per pair
// below the diagonal. Each pair uses the orders where both values are present;
// the coefficient is null with fewer than two such orders or a constant column.
func CorrelationMatrix(snap *Snapshot) []CorrelationRow {
	columns := make([][]*float64, len(correlationColumns))
	for i := range snap.Orders {
		o := &snap.Orders[i]
		m := deriveMetrics(o)
		values := []*float64{
			o.Revenue, m.orderValue, ptr(o.MarketingSpend), ptr(float64(o.UnitsSold)), o.DiscountPct, m.profitMargin, m.roi,
		}
		for c, v := range values {
			columns[c] = append(columns[c], v)
		}
	}

	var rows []CorrelationRow
	for a := 1; a < len(correlationColumns); a++ {
		for b := 0; b < a; b++ {
			xs, ys := pairwiseComplete(columns[a], columns[b])
			row := CorrelationRow{
				ColumnA:      correlationColumns[a],
				ColumnB:      correlationColumns[b],
				Observations: len(xs),
			}
			if len(xs) >= 2 && stat.Variance(xs, nil) > 0 && stat.Variance(ys, nil) > 0 {
				if r := stat.Correlation(xs, ys, nil); !math.IsNaN(r) {
					row.Pearson = ptr(Round(r, 3))
				}
			}
			rows = append(rows, row)
		}
	}
	return rows
}

func pairwiseComplete(a, b []*float64) (xs, ys []float64) {
	for i := range a {
		if a[i] != nil && b[i] != nil {
			xs = append(xs, *a[i])
			ys = append(ys, *b[i])
		}
	}
	return xs, ys
}

// SegmentCategoryRow is the average order value of one customer segment in one category
type SegmentCategoryRow struct {
	CustomerSegment string   `json:"customer_segment"`
	Category        string   `json:"category"`
	Orders          int      `json:"orders"`
	AvgOrderValue   *float64 `json:"avg_order_value"`
}

// SegmentCategoryAOV pivots average net order value by customer segment and
// product category. Orders of unknown customers or products are skipped.
func SegmentCategoryAOV(snap *Snapshot) []SegmentCategoryRow {
	type key struct{ segment, category string }
	type acc struct {
		orders int
		value  aggregate
	}
	accs := make(map[key]*acc)
	for i := range snap.Orders {
		o := &snap.Orders[i]
		c := snap.Customer(o.CustomerID)
		p := snap.Product(o.ProductID)
		if c == nil || p == nil {
			continue
		}
		k := key{c.CustomerSegment, p.Category}
		a, ok := accs[k]
		if !ok {
			a = &acc{}
			accs[k] = a
		}
		a.orders++
		if v, ok := orderNet(o); ok {
			a.value.add(v)
		}
	}

	rows := make([]SegmentCategoryRow, 0, len(accs))
	for k, a := range accs {
		rows = append(rows, SegmentCategoryRow{
			CustomerSegment: k.segment,
			Category:        k.category,
			Orders:          a.orders,
			AvgOrderValue:   RoundPtr(a.value.avg(), 2),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CustomerSegment != rows[j].CustomerSegment {
			return rows[i].CustomerSegment < rows[j].CustomerSegment
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}

// DayOfWeekRow is the order volume and average order value of one weekday
type DayOfWeekRow struct {
	DayOfWeek     string   `json:"day_of_week"`
	Weekend       bool     `json:"weekend"`
	Orders        int      `json:"orders"`
	AvgOrderValue *float64 `json:"avg_order_value"`
}

// DayOfWeekAOV returns one row per weekday, Monday first, including days without orders
func DayOfWeekAOV(snap *Snapshot) []DayOfWeekRow {
	var (
		orders [7]int
		values [7]aggregate
	)
	for i := range snap.Orders {
		o := &snap.Orders[i]
		d := mondayIndex(o.OrderDate.Weekday())
		orders[d]++
		if v, ok := orderNet(o); ok {
			values[d].add(v)
		}
	}

	rows := make([]DayOfWeekRow, 7)
	for d := range rows {
		wd := time.Weekday((d + 1) % 7)
		rows[d] = DayOfWeekRow{
			DayOfWeek:     wd.String(),
			Weekend:       wd == time.Saturday || wd == time.Sunday,
			Orders:        orders[d],
			AvgOrderValue: RoundPtr(values[d].avg(), 2),
		}
	}
	return rows
}

func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
