package analytics

import (
	"sort"
	"time"
)

const (
	topProductsLookbackMonths = 6
	topProductsLimit          = 5
)

// TopProductRow is one product ranked by net revenue
type TopProductRow struct {
	ProductID      int64    `json:"product_id"`
	ProductName    string   `json:"product_name"`
	Category       string   `json:"category"`
	OrderCount     int      `json:"order_count"`
	GrossRevenue   float64  `json:"gross_revenue"`
	AvgDiscountPct *float64 `json:"avg_discount_pct"`
	NetRevenue     float64  `json:"net_revenue"`
	RevenueRank    int      `json:"revenue_rank"`
}

type productAcc struct {
	productID int64
	orders    int
	gross     aggregate
	discount  aggregate
	net       aggregate
}

// TopProducts ranks products by net revenue over the six months up to asOf,
// ignoring returned orders, and keeps the top five
func TopProducts(snap *Snapshot, asOf time.Time) []TopProductRow {
	cutoff := AddMonths(asOf, -topProductsLookbackMonths)
	end := dayAfter(asOf)

	accs := make(map[int64]*productAcc)
	for i := range snap.Orders {
		o := &snap.Orders[i]
		if o.Returned || o.OrderDate.Before(cutoff) || !o.OrderDate.Before(end) {
			continue
		}
		if snap.Product(o.ProductID) == nil {
			continue
		}
		acc, ok := accs[o.ProductID]
		if !ok {
			acc = &productAcc{productID: o.ProductID}
			accs[o.ProductID] = acc
		}
		acc.orders++
		acc.gross.addPtr(o.Revenue)
		acc.discount.addPtr(o.DiscountPct)
		if net, ok := orderNet(o); ok {
			acc.net.add(net)
		}
	}

	rows := make([]TopProductRow, 0, len(accs))
	for _, acc := range accs {
		p := snap.Product(acc.productID)
		rows = append(rows, TopProductRow{
			ProductID:      p.ProductID,
			ProductName:    p.ProductName,
			Category:       p.Category,
			OrderCount:     acc.orders,
			GrossRevenue:   Round(acc.gross.sum, 2),
			AvgDiscountPct: RoundPtr(acc.discount.avg(), 2),
			NetRevenue:     Round(acc.net.sum, 2),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].NetRevenue != rows[j].NetRevenue {
			return rows[i].NetRevenue > rows[j].NetRevenue
		}
		return rows[i].ProductID < rows[j].ProductID
	})

	rankByNetRevenue(rows)

	if len(rows) > topProductsLimit {
		rows = rows[:topProductsLimit]
	}
	return rows
}

// rankByNetRevenue assigns competition ranks (1, 1, 3, ...) to rows already sorted
// by net revenue descending
func rankByNetRevenue(rows []TopProductRow) {
	for i := range rows {
		if i > 0 && rows[i].NetRevenue == rows[i-1].NetRevenue {
			rows[i].RevenueRank = rows[i-1].RevenueRank
			continue
		}
		rows[i].RevenueRank = i + 1
	}
}
