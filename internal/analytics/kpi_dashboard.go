package analytics

import "time"

// KPI names, in dashboard order
const (
	KPINetRevenue      = "Net Revenue"
	KPITotalOrders     = "Total Orders"
	KPIActiveCustomers = "Active Customers"
	KPIAvgOrderValue   = "Avg Order Value"
	KPIReturnRate      = "Return Rate"
	KPIROAS            = "ROAS"
	KPICAC             = "CAC"
)

// PeriodStats holds the headline measures of one reporting period
type PeriodStats struct {
	TotalOrders     int      `json:"total_orders"`
	ActiveCustomers int      `json:"active_customers"`
	NetRevenue      float64  `json:"net_revenue"`
	AvgOrderValue   *float64 `json:"avg_order_value"`
	AvgDiscountPct  *float64 `json:"avg_discount_pct"`
	ReturnRatePct   *float64 `json:"return_rate_pct"`
	ROAS            *float64 `json:"roas"`
	CAC             *float64 `json:"cac"`
}

// KPIRow compares one KPI between the current and the prior month
type KPIRow struct {
	KPI          string   `json:"kpi"`
	CurrentValue *float64 `json:"current_value"`
	PriorValue   *float64 `json:"prior_value"`
	MoMChangePct *float64 `json:"mom_change_pct"`
}

// SummarizePeriod computes PeriodStats over orders with from <= order_date < to.
// A zero to leaves the period open-ended.
func SummarizePeriod(snap *Snapshot, from, to time.Time) PeriodStats {
	var (
		stats    PeriodStats
		returned int
		spend    float64
		net      aggregate
		discount aggregate
	)
	customers := make(map[int64]struct{})
	for i := range snap.Orders {
		o := &snap.Orders[i]
		if o.OrderDate.Before(from) || (!to.IsZero() && !o.OrderDate.Before(to)) {
			continue
		}
		stats.TotalOrders++
		customers[o.CustomerID] = struct{}{}
		if o.Returned {
			returned++
		}
		spend += o.MarketingSpend
		discount.addPtr(o.DiscountPct)
		if v, ok := orderNet(o); ok {
			net.add(v)
		}
	}

	stats.ActiveCustomers = len(customers)
	stats.NetRevenue = Round(net.sum, 2)
	stats.AvgOrderValue = RoundPtr(net.avg(), 2)
	stats.AvgDiscountPct = RoundPtr(discount.avg(), 2)
	stats.ReturnRatePct = RoundPtr(SafeDiv(float64(returned)*100, float64(stats.TotalOrders)), 2)
	stats.ROAS = RoundPtr(SafeDiv(net.sum, spend), 2)
	stats.CAC = RoundPtr(SafeDiv(spend, float64(stats.ActiveCustomers)), 2)
	return stats
}

// ExecutiveKPIs compares the month containing asOf (to date) with the full prior month
func ExecutiveKPIs(snap *Snapshot, asOf time.Time) []KPIRow {
	currentStart := time.Date(asOf.Year(), asOf.Month(), 1, 0, 0, 0, 0, asOf.Location())
	priorStart := currentStart.AddDate(0, -1, 0)

	cur := SummarizePeriod(snap, currentStart, dayAfter(asOf))
	prior := SummarizePeriod(snap, priorStart, currentStart)

	return []KPIRow{
		relativeKPI(KPINetRevenue, ptr(cur.NetRevenue), ptr(prior.NetRevenue)),
		relativeKPI(KPITotalOrders, ptr(float64(cur.TotalOrders)), ptr(float64(prior.TotalOrders))),
		relativeKPI(KPIActiveCustomers, ptr(float64(cur.ActiveCustomers)), ptr(float64(prior.ActiveCustomers))),
		relativeKPI(KPIAvgOrderValue, cur.AvgOrderValue, prior.AvgOrderValue),
		pointsKPI(KPIReturnRate, cur.ReturnRatePct, prior.ReturnRatePct),
		relativeKPI(KPIROAS, cur.ROAS, prior.ROAS),
		relativeKPI(KPICAC, cur.CAC, prior.CAC),
	}
}

// relativeKPI reports the change as a percentage of the prior value
func relativeKPI(name string, cur, prior *float64) KPIRow {
	row := KPIRow{KPI: name, CurrentValue: cur, PriorValue: prior}
	if cur != nil && prior != nil {
		row.MoMChangePct = RoundPtr(SafeDiv((*cur-*prior)*100, *prior), 1)
	}
	return row
}

// pointsKPI reports the change as an absolute difference in percentage points
func pointsKPI(name string, cur, prior *float64) KPIRow {
	row := KPIRow{KPI: name, CurrentValue: cur, PriorValue: prior}
	if cur != nil && prior != nil {
		row.MoMChangePct = ptr(Round(*cur-*prior, 1))
	}
	return row
}
