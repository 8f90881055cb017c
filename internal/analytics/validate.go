package analytics

import (
	"fmt"
	"strings"
)

const maxIssuesInMessage = 5

// ValidationError lists every malformed record found in a snapshot
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	shown := e.Issues
	if len(shown) > maxIssuesInMessage {
		shown = shown[:maxIssuesInMessage]
	}
	msg := fmt.Sprintf("invalid snapshot: %d issue(s): %s", len(e.Issues), strings.Join(shown, "; "))
	if len(e.Issues) > maxIssuesInMessage {
		msg += "; ..."
	}
	return msg
}

// Validate checks the snapshot at the input boundary. Reports assume a snapshot
// that passed Validate and never re-check these constraints.
func Validate(snap *Snapshot) error {
	var issues []string

	seenOrders := make(map[string]struct{}, len(snap.Orders))
	for i := range snap.Orders {
		o := &snap.Orders[i]
		if _, dup := seenOrders[o.OrderID]; dup {
			issues = append(issues, fmt.Sprintf("order %s: duplicate order_id", o.OrderID))
		}
		seenOrders[o.OrderID] = struct{}{}

		if o.UnitsSold < 1 {
			issues = append(issues, fmt.Sprintf("order %s: units_sold %d < 1", o.OrderID, o.UnitsSold))
		}
		if o.Revenue != nil && *o.Revenue < 0 {
			issues = append(issues, fmt.Sprintf("order %s: negative revenue %.2f", o.OrderID, *o.Revenue))
		}
		if o.DiscountPct != nil && (*o.DiscountPct < 0 || *o.DiscountPct > 100) {
			issues = append(issues, fmt.Sprintf("order %s: discount_pct %.2f outside [0,100]", o.OrderID, *o.DiscountPct))
		}
		if o.MarketingSpend < 0 {
			issues = append(issues, fmt.Sprintf("order %s: negative marketing_spend %.2f", o.OrderID, o.MarketingSpend))
		}
	}

	seen := make(map[int64]struct{})
	for _, c := range snap.Customers {
		if _, dup := seen[c.CustomerID]; dup {
			issues = append(issues, fmt.Sprintf("customer %d: duplicate customer_id", c.CustomerID))
		}
		seen[c.CustomerID] = struct{}{}
	}

	seen = make(map[int64]struct{})
	for _, p := range snap.Products {
		if _, dup := seen[p.ProductID]; dup {
			issues = append(issues, fmt.Sprintf("product %d: duplicate product_id", p.ProductID))
		}
		if p.UnitCost < 0 {
			issues = append(issues, fmt.Sprintf("product %d: negative unit_cost %.2f", p.ProductID, p.UnitCost))
		}
		seen[p.ProductID] = struct{}{}
	}

	seen = make(map[int64]struct{})
	for _, c := range snap.Campaigns {
		if _, dup := seen[c.CampaignID]; dup {
			issues = append(issues, fmt.Sprintf("campaign %d: duplicate campaign_id", c.CampaignID))
		}
		if c.TotalBudget < 0 {
			issues = append(issues, fmt.Sprintf("campaign %d: negative total_budget %.2f", c.CampaignID, c.TotalBudget))
		}
		seen[c.CampaignID] = struct{}{}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
