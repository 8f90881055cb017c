package analytics

import (
	"math"
	"sort"

	"order-analytics/internal/models"

	"gonum.org/v1/gonum/stat"
)

// ColumnStats describes the distribution of one numeric order column
type ColumnStats struct {
	Column   string   `json:"column"`
	Count    int      `json:"count"`
	Mean     *float64 `json:"mean"`
	Std      *float64 `json:"std"`
	Min      *float64 `json:"min"`
	P25      *float64 `json:"p25"`
	Median   *float64 `json:"median"`
	P75      *float64 `json:"p75"`
	Max      *float64 `json:"max"`
	Skewness *float64 `json:"skewness"`
	Kurtosis *float64 `json:"kurtosis"`
}

// orderMetrics holds the measures derived from one order. A nil field is
// undefined for the order: missing revenue, zero order value or zero spend.
type orderMetrics struct {
	orderValue   *float64
	profitMargin *float64
	roi          *float64
}

func deriveMetrics(o *models.Order) orderMetrics {
	var m orderMetrics
	net, ok := orderNet(o)
	if !ok {
		return m
	}
	m.orderValue = &net
	m.profitMargin = SafeDivPtr(ptr((net-o.MarketingSpend)*100), m.orderValue)
	m.roi = SafeDivPtr(m.orderValue, ptr(o.MarketingSpend))
	return m
}

// DescriptiveStats summarizes the numeric order columns and the derived
// profit margin and ROI, skipping nulls
func DescriptiveStats(snap *Snapshot) []ColumnStats {
	var revenue, net, spend, units, discount, margin, roi []float64
	for i := range snap.Orders {
		o := &snap.Orders[i]
		m := deriveMetrics(o)
		revenue = appendPtr(revenue, o.Revenue)
		discount = appendPtr(discount, o.DiscountPct)
		spend = append(spend, o.MarketingSpend)
		units = append(units, float64(o.UnitsSold))
		net = appendPtr(net, m.orderValue)
		margin = appendPtr(margin, m.profitMargin)
		roi = appendPtr(roi, m.roi)
	}

	return []ColumnStats{
		describe("revenue", revenue),
		describe("net_revenue", net),
		describe("marketing_spend", spend),
		describe("units_sold", units),
		describe("discount_pct", discount),
		describe("profit_margin", margin),
		describe("roi", roi),
	}
}

// spendSlope fits net revenue against marketing spend and returns the slope,
// or nil when fewer than two orders carry revenue or spend never varies
func spendSlope(snap *Snapshot) *float64 {
	var xs, ys []float64
	for i := range snap.Orders {
		o := &snap.Orders[i]
		if v, ok := orderNet(o); ok {
			xs = append(xs, o.MarketingSpend)
			ys = append(ys, v)
		}
	}
	if len(xs) < 2 || stat.Variance(xs, nil) == 0 {
		return nil
	}
	_, beta := stat.LinearRegression(xs, ys, nil, false)
	return ptr(Round(beta, 4))
}

func appendPtr(xs []float64, v *float64) []float64 {
	if v == nil {
		return xs
	}
	return append(xs, *v)
}

func describe(column string, xs []float64) ColumnStats {
	cs := ColumnStats{Column: column, Count: len(xs)}
	if len(xs) == 0 {
		return cs
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	cs.Mean = ptr(Round(mean, 2))
	cs.Min = ptr(Round(sorted[0], 2))
	cs.Max = ptr(Round(sorted[len(sorted)-1], 2))
	cs.P25 = ptr(Round(quantile(0.25, sorted), 2))
	cs.Median = ptr(Round(quantile(0.5, sorted), 2))
	cs.P75 = ptr(Round(quantile(0.75, sorted), 2))
	if len(sorted) < 2 {
		return cs
	}
	cs.Std = ptr(Round(std, 2))
	// Shape measures are undefined for constant columns and tiny samples.
	if std > 0 && len(sorted) > 3 {
		cs.Skewness = ptr(Round(stat.Skew(sorted, nil), 3))
		cs.Kurtosis = ptr(Round(stat.ExKurtosis(sorted, nil), 3))
	}
	return cs
}

// quantile interpolates linearly between the closest ranks of sorted at
// h = (n-1)p, so the quartiles of 1..5 are 2, 3 and 4
func quantile(p float64, sorted []float64) float64 {
	h := float64(len(sorted)-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
