package analytics

import (
	"fmt"
	"math/rand"
	"time"

	"order-analytics/internal/models"
)

var testAsOf = time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func f64(v float64) *float64 {
	return &v
}

func i64(v int64) *int64 {
	return &v
}

func order(id string, customerID, productID int64, date time.Time, revenue float64) models.Order {
	return models.Order{
		OrderID:       id,
		CustomerID:    customerID,
		ProductID:     productID,
		OrderDate:     date,
		UnitsSold:     1,
		Revenue:       f64(revenue),
		Region:        "North",
		PaymentMethod: "UPI",
	}
}

func customers(ids ...int64) []models.Customer {
	out := make([]models.Customer, len(ids))
	for i, id := range ids {
		out[i] = models.Customer{CustomerID: id, CustomerSegment: "Regular", Region: "North", AgeGroup: "25-34"}
	}
	return out
}

var (
	testCategories = []string{"Electronics", "Apparel", "Home & Kitchen", "Beauty", "Sports", "Books"}
	testChannels   = []string{"Organic Search", "Paid Search", "Email", "Social Media", "Direct", "Referral"}
	testRegions    = []string{"North", "South", "East", "West", "Central"}
)

// syntheticSnapshot builds a reproducible dataset shaped like the production one,
// including null revenue and discount values and orders without a campaign
func syntheticSnapshot(seed int64, n int) *models.Snapshot {
	rng := rand.New(rand.NewSource(seed))

	var products []models.Product
	for i := 0; i < 30; i++ {
		products = append(products, models.Product{
			ProductID:   int64(i + 1),
			ProductName: fmt.Sprintf("Product %d", i+1),
			Category:    testCategories[i%len(testCategories)],
			UnitCost:    float64(10 + i),
		})
	}

	var campaigns []models.Campaign
	for i := 0; i < 12; i++ {
		campaigns = append(campaigns, models.Campaign{
			CampaignID:   int64(i + 1),
			Channel:      testChannels[i%len(testChannels)],
			CampaignName: fmt.Sprintf("Campaign %d", i+1),
			StartDate:    day(2022, time.January, 1),
			EndDate:      day(2024, time.December, 31),
			TotalBudget:  50000,
		})
	}

	var custs []models.Customer
	for i := 1; i <= 400; i++ {
		custs = append(custs, models.Customer{
			CustomerID:      int64(i),
			SignupDate:      day(2021, time.December, 1),
			CustomerSegment: "Regular",
			Region:          testRegions[i%len(testRegions)],
			AgeGroup:        "25-34",
		})
	}

	start := day(2022, time.January, 1)
	span := testAsOf.Sub(start)
	orders := make([]models.Order, 0, n)
	for i := 0; i < n; i++ {
		o := models.Order{
			OrderID:        fmt.Sprintf("ORD%06d", i+1),
			CustomerID:     int64(rng.Intn(420) + 1),
			ProductID:      int64(rng.Intn(31) + 1),
			OrderDate:      start.Add(time.Duration(rng.Int63n(int64(span)))),
			UnitsSold:      rng.Intn(5) + 1,
			MarketingSpend: float64(rng.Intn(5000)) / 10,
			Returned:       rng.Float64() < 0.08,
			Region:         testRegions[rng.Intn(len(testRegions))],
			PaymentMethod:  "Credit Card",
		}
		if rng.Float64() > 0.015 {
			o.Revenue = f64(float64(rng.Intn(900000)+1000) / 100)
		}
		if rng.Float64() > 0.03 {
			o.DiscountPct = f64(float64(rng.Intn(400)) / 10)
		}
		if rng.Float64() > 0.1 {
			o.CampaignID = i64(int64(rng.Intn(13) + 1))
		}
		orders = append(orders, o)
	}
	return models.NewSnapshot(orders, custs, products, campaigns)
}

var midMarchAsOf = time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

// laterOrdersSnapshot holds orders on both sides of midMarchAsOf, including one
// placed later on the evaluation day itself
func laterOrdersSnapshot() *models.Snapshot {
	attributed := func(id string, date time.Time, revenue float64) models.Order {
		o := order(id, 1, 1, date, revenue)
		o.CampaignID = i64(1)
		o.MarketingSpend = 10
		return o
	}
	orders := []models.Order{
		attributed("FEB", day(2024, time.February, 2), 100),
		attributed("MAR", day(2024, time.March, 2), 100),
		attributed("EOD", time.Date(2024, time.March, 15, 18, 0, 0, 0, time.UTC), 50),
		attributed("SEP", day(2024, time.September, 2), 5000),
	}
	products := []models.Product{{ProductID: 1, ProductName: "Phone", Category: "Electronics"}}
	campaigns := []models.Campaign{{CampaignID: 1, Channel: "Email", TotalBudget: 1000}}
	return models.NewSnapshot(orders, customers(1), products, campaigns)
}
