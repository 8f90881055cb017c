package analytics

import (
	"sort"
	"time"
)

// Observation window for cohort LTV: months 0 through 11 after acquisition.
const cohortWindowMonths = 12

// CohortLTVRow is the twelve-month value of one acquisition cohort
type CohortLTVRow struct {
	CohortMonth      time.Time `json:"cohort_month"`
	CohortSize       int       `json:"cohort_size"`
	TotalNetRevenue  float64   `json:"total_12m_net_revenue"`
	Avg12mLTV        float64   `json:"avg_12m_ltv"`
	AvgM0M1Revenue   float64   `json:"avg_m0_m1_revenue"`
	AvgM2M5Revenue   float64   `json:"avg_m2_m5_revenue"`
	AvgM6PlusRevenue float64   `json:"avg_m6_plus_revenue"`
}

// CohortLTV groups customers by first order month and averages their first
// twelve months of net revenue over the full cohort size
func CohortLTV(snap *Snapshot) []CohortLTVRow {
	first := firstOrderMonths(snap)

	type acc struct {
		customers map[int64]struct{}
		total     float64
		m0m1      float64
		m2m5      float64
		m6plus    float64
	}
	accs := make(map[time.Time]*acc)
	for i := range snap.Orders {
		o := &snap.Orders[i]
		cohort := first[o.CustomerID]
		offset := MonthsBetween(TruncateToMonth(o.OrderDate), cohort)
		if offset >= cohortWindowMonths {
			continue
		}
		a, ok := accs[cohort]
		if !ok {
			a = &acc{customers: make(map[int64]struct{})}
			accs[cohort] = a
		}
		a.customers[o.CustomerID] = struct{}{}

		net, ok := orderNet(o)
		if !ok {
			continue
		}
		a.total += net
		switch {
		case offset <= 1:
			a.m0m1 += net
		case offset <= 5:
			a.m2m5 += net
		default:
			a.m6plus += net
		}
	}

	rows := make([]CohortLTVRow, 0, len(accs))
	for cohort, a := range accs {
		size := float64(len(a.customers))
		rows = append(rows, CohortLTVRow{
			CohortMonth:      cohort,
			CohortSize:       len(a.customers),
			TotalNetRevenue:  Round(a.total, 2),
			Avg12mLTV:        Round(a.total/size, 2),
			AvgM0M1Revenue:   Round(a.m0m1/size, 2),
			AvgM2M5Revenue:   Round(a.m2m5/size, 2),
			AvgM6PlusRevenue: Round(a.m6plus/size, 2),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CohortMonth.Before(rows[j].CohortMonth)
	})
	return rows
}
