package analytics

import (
	"sort"
	"time"
)

const movingAverageMonths = 3

// MonthlyTrendRow is one month of the revenue time series
type MonthlyTrendRow struct {
	Month           time.Time `json:"month"`
	NetRevenue      float64   `json:"net_revenue"`
	Orders          int       `json:"orders"`
	UniqueCustomers int       `json:"unique_customers"`
	AvgOrderValue   *float64  `json:"avg_order_value"`
	NetRevenue3mMA  *float64  `json:"net_revenue_3m_ma"`
	YoYGrowthPct    *float64  `json:"yoy_growth_pct"`
}

// MonthlyTrend builds the monthly net revenue series with a trailing three-month
// moving average and growth against the same month one year earlier
func MonthlyTrend(snap *Snapshot) []MonthlyTrendRow {
	type acc struct {
		orders    int
		customers map[int64]struct{}
		net       aggregate
	}
	accs := make(map[time.Time]*acc)
	for i := range snap.Orders {
		o := &snap.Orders[i]
		m := TruncateToMonth(o.OrderDate)
		a, ok := accs[m]
		if !ok {
			a = &acc{customers: make(map[int64]struct{})}
			accs[m] = a
		}
		a.orders++
		a.customers[o.CustomerID] = struct{}{}
		if v, ok := orderNet(o); ok {
			a.net.add(v)
		}
	}

	months := make([]time.Time, 0, len(accs))
	for m := range accs {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	rows := make([]MonthlyTrendRow, len(months))
	for i, m := range months {
		a := accs[m]
		rows[i] = MonthlyTrendRow{
			Month:           m,
			NetRevenue:      Round(a.net.sum, 2),
			Orders:          a.orders,
			UniqueCustomers: len(a.customers),
			AvgOrderValue:   RoundPtr(a.net.avg(), 2),
		}
		// Rolling over present months, matching a rolling window on the grouped series.
		if i >= movingAverageMonths-1 {
			sum := 0.0
			for _, prev := range months[i-movingAverageMonths+1 : i+1] {
				sum += accs[prev].net.sum
			}
			rows[i].NetRevenue3mMA = ptr(Round(sum/movingAverageMonths, 2))
		}
		if prev, ok := accs[m.AddDate(-1, 0, 0)]; ok {
			rows[i].YoYGrowthPct = RoundPtr(SafeDiv((a.net.sum-prev.net.sum)*100, prev.net.sum), 2)
		}
	}
	return rows
}
