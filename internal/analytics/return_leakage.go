package analytics

import "sort"

// ReturnLeakageRow shows how much net revenue a category loses to returns
type ReturnLeakageRow struct {
	Category             string   `json:"category"`
	TotalOrders          int      `json:"total_orders"`
	ReturnedOrders       int      `json:"returned_orders"`
	ReturnRatePct        *float64 `json:"return_rate_pct"`
	GrossNetRevenue      float64  `json:"gross_net_revenue"`
	RevenueLostToReturns float64  `json:"revenue_lost_to_returns"`
	RealizedNetRevenue   float64  `json:"realized_net_revenue"`
	RevenueLeakagePct    *float64 `json:"revenue_leakage_pct"`
}

// ReturnLeakage aggregates the full order history by product category
func ReturnLeakage(snap *Snapshot) []ReturnLeakageRow {
	type acc struct {
		orders   int
		returned int
		gross    float64
		lost     float64
		realized float64
	}
	accs := make(map[string]*acc)
	for i := range snap.Orders {
		o := &snap.Orders[i]
		p := snap.Product(o.ProductID)
		if p == nil {
			continue
		}
		a, ok := accs[p.Category]
		if !ok {
			a = &acc{}
			accs[p.Category] = a
		}
		a.orders++
		if o.Returned {
			a.returned++
		}
		net, ok := orderNet(o)
		if !ok {
			continue
		}
		a.gross += net
		if o.Returned {
			a.lost += net
		} else {
			a.realized += net
		}
	}

	rows := make([]ReturnLeakageRow, 0, len(accs))
	for category, a := range accs {
		rows = append(rows, ReturnLeakageRow{
			Category:             category,
			TotalOrders:          a.orders,
			ReturnedOrders:       a.returned,
			ReturnRatePct:        RoundPtr(SafeDiv(float64(a.returned)*100, float64(a.orders)), 2),
			GrossNetRevenue:      Round(a.gross, 2),
			RevenueLostToReturns: Round(a.lost, 2),
			RealizedNetRevenue:   Round(a.realized, 2),
			RevenueLeakagePct:    RoundPtr(SafeDiv(a.lost*100, a.gross), 2),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		before, equal := descNullsLast(rows[i].RevenueLeakagePct, rows[j].RevenueLeakagePct)
		if !equal {
			return before
		}
		return rows[i].Category < rows[j].Category
	})
	return rows
}
