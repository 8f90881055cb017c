package analytics

import (
	"testing"
	"time"

	"order-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	cs := describe("x", []float64{5, 1, 4, 2, 3})
	assert.Equal(t, 5, cs.Count)
	assert.Equal(t, 3.0, *cs.Mean)
	assert.Equal(t, 1.58, *cs.Std)
	assert.Equal(t, 1.0, *cs.Min)
	assert.Equal(t, 5.0, *cs.Max)
	assert.Equal(t, 2.0, *cs.P25)
	assert.Equal(t, 3.0, *cs.Median)
	assert.Equal(t, 4.0, *cs.P75)
	require.NotNil(t, cs.Skewness)
	assert.InDelta(t, 0.0, *cs.Skewness, 1e-9)

	single := describe("x", []float64{7})
	assert.Equal(t, 7.0, *single.Median)
	assert.Nil(t, single.Std)
	assert.Nil(t, single.Skewness)

	constant := describe("x", []float64{2, 2, 2, 2, 2})
	assert.Equal(t, 0.0, *constant.Std)
	assert.Nil(t, constant.Skewness)
	assert.Nil(t, constant.Kurtosis)

	even := describe("x", []float64{10, 20, 30, 40})
	assert.Equal(t, 17.5, *even.P25)
	assert.Equal(t, 25.0, *even.Median)
	assert.Equal(t, 32.5, *even.P75)

	empty := describe("x", nil)
	assert.Zero(t, empty.Count)
	assert.Nil(t, empty.Mean)
}

func TestDescriptiveStats(t *testing.T) {
	a := order("A", 1, 1, day(2024, time.May, 1), 100)
	a.DiscountPct = f64(50)
	a.MarketingSpend = 10
	b := order("B", 1, 1, day(2024, time.May, 2), 0)
	b.Revenue = nil
	b.UnitsSold = 3

	rows := DescriptiveStats(models.NewSnapshot([]models.Order{a, b}, nil, nil, nil))
	require.Len(t, rows, 7)

	byColumn := make(map[string]ColumnStats)
	for _, r := range rows {
		byColumn[r.Column] = r
	}
	assert.Equal(t, 1, byColumn["revenue"].Count)
	assert.Equal(t, 50.0, *byColumn["net_revenue"].Mean)
	assert.Equal(t, 2, byColumn["units_sold"].Count)
	assert.Equal(t, 2.0, *byColumn["units_sold"].Mean)
	assert.Equal(t, 1, byColumn["discount_pct"].Count)
	assert.Equal(t, 1, byColumn["profit_margin"].Count)
	assert.Equal(t, 80.0, *byColumn["profit_margin"].Mean)
	assert.Equal(t, 5.0, *byColumn["roi"].Mean)
}

func TestDeriveMetrics(t *testing.T) {
	o := order("A", 1, 1, day(2024, time.May, 1), 200)
	o.DiscountPct = f64(50)
	o.MarketingSpend = 25
	m := deriveMetrics(&o)
	assert.Equal(t, 100.0, *m.orderValue)
	assert.Equal(t, 75.0, *m.profitMargin)
	assert.Equal(t, 4.0, *m.roi)

	o.MarketingSpend = 0
	assert.Nil(t, deriveMetrics(&o).roi)

	o.Revenue = f64(0)
	m = deriveMetrics(&o)
	assert.Equal(t, 0.0, *m.orderValue)
	assert.Nil(t, m.profitMargin)

	o.Revenue = nil
	assert.Equal(t, orderMetrics{}, deriveMetrics(&o))
}

func TestSpendSlope(t *testing.T) {
	var orders []models.Order
	for i, spend := range []float64{10, 20, 30, 40} {
		o := order(string(rune('A'+i)), 1, 1, day(2024, time.May, 1), 2*spend+5)
		o.MarketingSpend = spend
		orders = append(orders, o)
	}
	slope := spendSlope(models.NewSnapshot(orders, nil, nil, nil))
	require.NotNil(t, slope)
	assert.InDelta(t, 2.0, *slope, 1e-9)

	flat := spendSlope(models.NewSnapshot(orders[:1], nil, nil, nil))
	assert.Nil(t, flat)
}

func TestMonthlyTrend(t *testing.T) {
	orders := []models.Order{
		order("A", 1, 1, day(2023, time.January, 10), 100),
		order("B", 2, 1, day(2023, time.February, 10), 150),
		order("C", 2, 1, day(2023, time.February, 11), 50),
		order("D", 1, 1, day(2023, time.March, 10), 300),
		order("E", 3, 1, day(2024, time.January, 10), 150),
	}
	rows := MonthlyTrend(models.NewSnapshot(orders, nil, nil, nil))
	require.Len(t, rows, 4)

	assert.Equal(t, time.Date(2023, time.February, 1, 0, 0, 0, 0, time.UTC), rows[1].Month)
	assert.Equal(t, 200.0, rows[1].NetRevenue)
	assert.Equal(t, 2, rows[1].Orders)
	assert.Equal(t, 1, rows[1].UniqueCustomers)
	assert.Equal(t, 100.0, *rows[1].AvgOrderValue)

	assert.Nil(t, rows[0].NetRevenue3mMA)
	assert.Nil(t, rows[1].NetRevenue3mMA)
	assert.Equal(t, 200.0, *rows[2].NetRevenue3mMA)
	assert.Equal(t, 216.67, *rows[3].NetRevenue3mMA)

	assert.Nil(t, rows[2].YoYGrowthPct)
	require.NotNil(t, rows[3].YoYGrowthPct)
	assert.Equal(t, 50.0, *rows[3].YoYGrowthPct)
}
