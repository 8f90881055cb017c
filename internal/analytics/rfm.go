package analytics

import (
	"sort"
	"time"
)

// RFM segment names
const (
	SegmentChampions          = "Champions"
	SegmentLoyalCustomers     = "Loyal Customers"
	SegmentPotentialLoyalists = "Potential Loyalists"
	SegmentAtRisk             = "At Risk"
	SegmentLost               = "Lost/Hibernating"
)

const rfmBuckets = 4

// CustomerRFM is the per-customer recency/frequency/monetary scoring
type CustomerRFM struct {
	CustomerID     int64   `json:"customer_id"`
	RecencyDays    int     `json:"recency_days"`
	OrderFrequency int     `json:"order_frequency"`
	LifetimeValue  float64 `json:"lifetime_value"`
	RecencyScore   int     `json:"r_score"`
	FrequencyScore int     `json:"f_score"`
	MonetaryScore  int     `json:"m_score"`
	RFMTotal       int     `json:"rfm_total"`
	Segment        string  `json:"segment"`
}

// RFMSegmentRow aggregates the customers of one RFM segment
type RFMSegmentRow struct {
	Segment            string  `json:"segment"`
	CustomerCount      int     `json:"customer_count"`
	AvgLifetimeValue   float64 `json:"avg_lifetime_value"`
	TotalLifetimeValue float64 `json:"total_lifetime_value"`
	AvgRecencyDays     float64 `json:"avg_recency_days"`
	AvgFrequency       float64 `json:"avg_frequency"`
	SegmentSharePct    float64 `json:"segment_share_pct"`
}

// RFMScores scores every known customer with at least one non-returned order placed on or before asOf.
// Quartiles follow NTILE(4) over a total order where equal values are broken by
// customer id; customers sharing an identical value then all take the lowest
// bucket reached by their tie group. Rows are returned ordered by customer id.
func RFMScores(snap *Snapshot, asOf time.Time) []CustomerRFM {
	type acc struct {
		last  time.Time
		count int
		value float64
	}
	end := dayAfter(asOf)
	accs := make(map[int64]*acc)
	for i := range snap.Orders {
		o := &snap.Orders[i]
		if o.Returned || !o.OrderDate.Before(end) || snap.Customer(o.CustomerID) == nil {
			continue
		}
		a, ok := accs[o.CustomerID]
		if !ok {
			a = &acc{last: o.OrderDate}
			accs[o.CustomerID] = a
		}
		a.count++
		if o.OrderDate.After(a.last) {
			a.last = o.OrderDate
		}
		if net, ok := orderNet(o); ok {
			a.value += net
		}
	}

	scores := make([]CustomerRFM, 0, len(accs))
	for id, a := range accs {
		scores = append(scores, CustomerRFM{
			CustomerID:     id,
			RecencyDays:    DaysBetween(asOf, a.last),
			OrderFrequency: a.count,
			LifetimeValue:  a.value,
		})
	}
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].CustomerID < scores[j].CustomerID
	})

	// Smaller recency is better, so the most recent customers land in bucket 4.
	assignQuartiles(scores,
		func(c *CustomerRFM) float64 { return -float64(c.RecencyDays) },
		func(c *CustomerRFM, score int) { c.RecencyScore = score })
	assignQuartiles(scores,
		func(c *CustomerRFM) float64 { return float64(c.OrderFrequency) },
		func(c *CustomerRFM, score int) { c.FrequencyScore = score })
	assignQuartiles(scores,
		func(c *CustomerRFM) float64 { return c.LifetimeValue },
		func(c *CustomerRFM, score int) { c.MonetaryScore = score })

	for i := range scores {
		c := &scores[i]
		c.RFMTotal = c.RecencyScore + c.FrequencyScore + c.MonetaryScore
		c.Segment = SegmentForScore(c.RFMTotal)
	}
	return scores
}

// assignQuartiles buckets scores (already ordered by customer id) by ascending key
func assignQuartiles(scores []CustomerRFM, key func(*CustomerRFM) float64, set func(*CustomerRFM, int)) {
	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return key(&scores[idx[a]]) < key(&scores[idx[b]])
	})

	n := len(idx)
	bucket := 0
	for pos, i := range idx {
		if pos == 0 || key(&scores[i]) != key(&scores[idx[pos-1]]) {
			bucket = ntile(pos, n, rfmBuckets)
		}
		set(&scores[i], bucket)
	}
}

// ntile returns the 1-based NTILE bucket of a 0-based position among n rows.
// Like SQL NTILE, the first n%buckets groups hold one extra row.
func ntile(pos, n, buckets int) int {
	base := n / buckets
	rem := n % buckets
	large := rem * (base + 1)
	if pos < large {
		return pos/(base+1) + 1
	}
	return rem + (pos-large)/base + 1
}

// SegmentForScore maps an RFM total (3..12) to its segment
func SegmentForScore(total int) string {
	switch {
	case total >= 10:
		return SegmentChampions
	case total >= 8:
		return SegmentLoyalCustomers
	case total >= 6:
		return SegmentPotentialLoyalists
	case total >= 4:
		return SegmentAtRisk
	default:
		return SegmentLost
	}
}

// RFMSegments aggregates RFM scores per segment, highest average lifetime value first
func RFMSegments(snap *Snapshot, asOf time.Time) []RFMSegmentRow {
	scores := RFMScores(snap, asOf)

	type acc struct {
		count     int
		value     float64
		recency   float64
		frequency float64
	}
	accs := make(map[string]*acc)
	for i := range scores {
		c := &scores[i]
		a, ok := accs[c.Segment]
		if !ok {
			a = &acc{}
			accs[c.Segment] = a
		}
		a.count++
		a.value += c.LifetimeValue
		a.recency += float64(c.RecencyDays)
		a.frequency += float64(c.OrderFrequency)
	}

	total := float64(len(scores))
	rows := make([]RFMSegmentRow, 0, len(accs))
	for segment, a := range accs {
		n := float64(a.count)
		rows = append(rows, RFMSegmentRow{
			Segment:            segment,
			CustomerCount:      a.count,
			AvgLifetimeValue:   Round(a.value/n, 2),
			TotalLifetimeValue: Round(a.value, 2),
			AvgRecencyDays:     Round(a.recency/n, 1),
			AvgFrequency:       Round(a.frequency/n, 2),
			SegmentSharePct:    Round(n*100/total, 2),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AvgLifetimeValue != rows[j].AvgLifetimeValue {
			return rows[i].AvgLifetimeValue > rows[j].AvgLifetimeValue
		}
		return rows[i].Segment < rows[j].Segment
	})
	return rows
}
