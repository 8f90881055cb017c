package models

import "time"

// Order represents a single order line of the sales fact table
type Order struct {
	OrderID        string    `db:"order_id" json:"order_id"`
	CustomerID     int64     `db:"customer_id" json:"customer_id"`
	ProductID      int64     `db:"product_id" json:"product_id"`
	CampaignID     *int64    `db:"campaign_id" json:"campaign_id,omitempty"`
	OrderDate      time.Time `db:"order_date" json:"order_date"`
	UnitsSold      int       `db:"units_sold" json:"units_sold"`
	Revenue        *float64  `db:"revenue" json:"revenue"`
	DiscountPct    *float64  `db:"discount_pct" json:"discount_pct"`
	MarketingSpend float64   `db:"marketing_spend" json:"marketing_spend"`
	Returned       bool      `db:"returned" json:"returned"`
	Region         string    `db:"region" json:"region"`
	PaymentMethod  string    `db:"payment_method" json:"payment_method"`
}

// Customer represents a registered customer
type Customer struct {
	CustomerID      int64     `db:"customer_id" json:"customer_id"`
	SignupDate      time.Time `db:"signup_date" json:"signup_date"`
	CustomerSegment string    `db:"customer_segment" json:"customer_segment"`
	Region          string    `db:"region" json:"region"`
	AgeGroup        string    `db:"age_group" json:"age_group"`
}

// Product represents a product in the catalog
type Product struct {
	ProductID   int64   `db:"product_id" json:"product_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	Category    string  `db:"category" json:"category"`
	UnitCost    float64 `db:"unit_cost" json:"unit_cost"`
}

// Campaign represents a marketing campaign
type Campaign struct {
	CampaignID   int64     `db:"campaign_id" json:"campaign_id"`
	Channel      string    `db:"channel" json:"channel"`
	CampaignName string    `db:"campaign_name" json:"campaign_name"`
	StartDate    time.Time `db:"start_date" json:"start_date"`
	EndDate      time.Time `db:"end_date" json:"end_date"`
	TotalBudget  float64   `db:"total_budget" json:"total_budget"`
}

// ReportRun records one computed report
type ReportRun struct {
	RunID      string    `db:"run_id" json:"run_id"`
	Report     string    `db:"report" json:"report"`
	AsOf       time.Time `db:"as_of" json:"as_of"`
	RowCount   int       `db:"row_count" json:"row_count"`
	DurationMs int64     `db:"duration_ms" json:"duration_ms"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Report run statuses
const (
	RunStatusSucceeded = "SUCCEEDED"
	RunStatusFailed    = "FAILED"
)
