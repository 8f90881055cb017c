package analytics

import (
	"sort"
	"time"
)

// AcquisitionRow splits one month's active customers into new and returning
type AcquisitionRow struct {
	Month              time.Time `json:"month"`
	ActiveCustomers    int       `json:"total_active_customers"`
	NewCustomers       int       `json:"new_customers"`
	ReturningCustomers int       `json:"returning_customers"`
	RetentionRatePct   *float64  `json:"retention_rate_pct"`
}

// firstOrderMonths returns each customer's earliest order month across all orders
func firstOrderMonths(snap *Snapshot) map[int64]time.Time {
	first := make(map[int64]time.Time)
	for i := range snap.Orders {
		o := &snap.Orders[i]
		m := TruncateToMonth(o.OrderDate)
		if cur, ok := first[o.CustomerID]; !ok || m.Before(cur) {
			first[o.CustomerID] = m
		}
	}
	return first
}

// AcquisitionRetention counts new and returning customers per calendar month
func AcquisitionRetention(snap *Snapshot) []AcquisitionRow {
	first := firstOrderMonths(snap)

	active := make(map[time.Time]map[int64]struct{})
	for i := range snap.Orders {
		o := &snap.Orders[i]
		m := TruncateToMonth(o.OrderDate)
		customers, ok := active[m]
		if !ok {
			customers = make(map[int64]struct{})
			active[m] = customers
		}
		customers[o.CustomerID] = struct{}{}
	}

	rows := make([]AcquisitionRow, 0, len(active))
	for month, customers := range active {
		row := AcquisitionRow{Month: month, ActiveCustomers: len(customers)}
		for id := range customers {
			if first[id].Equal(month) {
				row.NewCustomers++
			} else {
				row.ReturningCustomers++
			}
		}
		row.RetentionRatePct = RoundPtr(SafeDiv(float64(row.ReturningCustomers)*100, float64(row.ActiveCustomers)), 2)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Month.Before(rows[j].Month)
	})
	return rows
}
