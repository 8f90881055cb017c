package analytics

import (
	"sort"
	"time"
)

const highDiscountThreshold = 25.0

// InsightRow is one headline metric of the business summary
type InsightRow struct {
	Metric    string   `json:"metric"`
	Dimension string   `json:"dimension,omitempty"`
	Value     *float64 `json:"value"`
	Label     string   `json:"label,omitempty"`
}

// BusinessInsights produces the headline metrics of the executive summary over the full history
func BusinessInsights(snap *Snapshot) []InsightRow {
	var (
		net, weekend, weekday   aggregate
		q4                      float64
		returned                int
		highDisc, lowDisc       int
		highDiscRet, lowDiscRet int
	)
	byCategory := make(map[string]float64)
	byChannel := make(map[string]float64)
	channelSpend := make(map[string]float64)
	regionNet := make(map[string]float64)
	regionOrders := make(map[string]int)

	for i := range snap.Orders {
		o := &snap.Orders[i]
		if o.Returned {
			returned++
		}
		discount := 0.0
		if o.DiscountPct != nil {
			discount = *o.DiscountPct
		}
		if discount > highDiscountThreshold {
			highDisc++
			if o.Returned {
				highDiscRet++
			}
		} else {
			lowDisc++
			if o.Returned {
				lowDiscRet++
			}
		}
		regionOrders[o.Region]++
		c := snap.Campaign(o.CampaignID)
		if c != nil {
			channelSpend[c.Channel] += o.MarketingSpend
		}

		v, ok := orderNet(o)
		if !ok {
			continue
		}
		net.add(v)
		regionNet[o.Region] += v
		if p := snap.Product(o.ProductID); p != nil {
			byCategory[p.Category] += v
		}
		if c != nil {
			byChannel[c.Channel] += v
		}
		if o.OrderDate.Month() >= time.October {
			q4 += v
		}
		if wd := o.OrderDate.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend.add(v)
		} else {
			weekday.add(v)
		}
	}

	channelROI := make(map[string]float64)
	for ch, spend := range channelSpend {
		if roi := SafeDiv(byChannel[ch], spend); roi != nil {
			channelROI[ch] = *roi
		}
	}

	orders := float64(len(snap.Orders))
	rows := []InsightRow{
		{Metric: "total_net_revenue", Value: ptr(Round(net.sum, 2))},
		{Metric: "total_orders", Value: ptr(orders)},
		{Metric: "avg_order_value", Value: RoundPtr(net.avg(), 2)},
		{Metric: "return_rate_pct", Value: RoundPtr(SafeDiv(float64(returned)*100, orders), 2)},
		leader("top_category", byCategory),
		leader("top_channel", byChannel),
		leader("best_roi_channel", channelROI),
		{Metric: "q4_revenue_share_pct", Value: RoundPtr(SafeDiv(q4*100, net.sum), 2)},
		{Metric: "weekend_aov_uplift_pct", Value: RoundPtr(upliftPct(weekend.avg(), weekday.avg()), 2)},
		{Metric: "return_rate_high_discount_pct", Label: "discount_pct > 25", Value: RoundPtr(SafeDiv(float64(highDiscRet)*100, float64(highDisc)), 2)},
		{Metric: "return_rate_low_discount_pct", Label: "discount_pct <= 25", Value: RoundPtr(SafeDiv(float64(lowDiscRet)*100, float64(lowDisc)), 2)},
		{Metric: "net_revenue_per_spend_slope", Value: spendSlope(snap)},
	}

	regions := make([]string, 0, len(regionOrders))
	for r := range regionOrders {
		regions = append(regions, r)
	}
	sort.Strings(regions)
	for _, r := range regions {
		rows = append(rows,
			InsightRow{Metric: "region_revenue_share_pct", Dimension: r, Value: RoundPtr(SafeDiv(regionNet[r]*100, net.sum), 2)},
			InsightRow{Metric: "region_order_share_pct", Dimension: r, Value: RoundPtr(SafeDiv(float64(regionOrders[r])*100, orders), 2)},
		)
	}
	return rows
}

// leader names the key with the largest total, ties going to the smaller key
func leader(metric string, totals map[string]float64) InsightRow {
	row := InsightRow{Metric: metric}
	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if row.Value == nil || totals[k] > *row.Value {
			row.Label = k
			row.Value = ptr(totals[k])
		}
	}
	row.Value = RoundPtr(row.Value, 2)
	return row
}

func upliftPct(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return SafeDiv((*a-*b)*100, *b)
}
