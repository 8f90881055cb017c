package analytics

import (
	"fmt"
	"sort"
)

// Data quality checks
const (
	CheckMissing   = "missing"
	CheckDuplicate = "duplicate"
	CheckOrphan    = "orphan"
	CheckOutlier   = "outlier"
)

// DataQualityRow is one finding of the order data audit
type DataQualityRow struct {
	Check  string   `json:"check"`
	Column string   `json:"column"`
	Count  int      `json:"count"`
	Pct    *float64 `json:"pct"`
	Detail string   `json:"detail,omitempty"`
}

// DataQuality audits the order relation: missing values, duplicate ids,
// references to unknown dimension rows and revenue outliers (1.5 IQR rule)
func DataQuality(snap *Snapshot) []DataQualityRow {
	var (
		missingRevenue  int
		missingDiscount int
		missingCampaign int
		duplicates      int
		orphanProduct   int
		orphanCustomer  int
		orphanCampaign  int
		revenues        []float64
	)
	seen := make(map[string]struct{}, len(snap.Orders))
	for i := range snap.Orders {
		o := &snap.Orders[i]
		if o.Revenue == nil {
			missingRevenue++
		} else {
			revenues = append(revenues, *o.Revenue)
		}
		if o.DiscountPct == nil {
			missingDiscount++
		}
		if o.CampaignID == nil {
			missingCampaign++
		} else if snap.Campaign(o.CampaignID) == nil {
			orphanCampaign++
		}
		if _, dup := seen[o.OrderID]; dup {
			duplicates++
		}
		seen[o.OrderID] = struct{}{}
		if snap.Product(o.ProductID) == nil {
			orphanProduct++
		}
		if snap.Customer(o.CustomerID) == nil {
			orphanCustomer++
		}
	}

	total := float64(len(snap.Orders))
	pct := func(n int) *float64 {
		return RoundPtr(SafeDiv(float64(n)*100, total), 2)
	}

	rows := []DataQualityRow{
		{Check: CheckMissing, Column: "revenue", Count: missingRevenue, Pct: pct(missingRevenue)},
		{Check: CheckMissing, Column: "discount_pct", Count: missingDiscount, Pct: pct(missingDiscount)},
		{Check: CheckMissing, Column: "campaign_id", Count: missingCampaign, Pct: pct(missingCampaign)},
		{Check: CheckDuplicate, Column: "order_id", Count: duplicates, Pct: pct(duplicates)},
		{Check: CheckOrphan, Column: "product_id", Count: orphanProduct, Pct: pct(orphanProduct)},
		{Check: CheckOrphan, Column: "customer_id", Count: orphanCustomer, Pct: pct(orphanCustomer)},
		{Check: CheckOrphan, Column: "campaign_id", Count: orphanCampaign, Pct: pct(orphanCampaign)},
	}

	outliers := DataQualityRow{Check: CheckOutlier, Column: "revenue"}
	if len(revenues) > 0 {
		sort.Float64s(revenues)
		q1, q3 := quantile(0.25, revenues), quantile(0.75, revenues)
		iqr := q3 - q1
		lower, upper := q1-1.5*iqr, q3+1.5*iqr
		for _, v := range revenues {
			if v < lower || v > upper {
				outliers.Count++
			}
		}
		outliers.Detail = fmt.Sprintf("IQR bounds [%.2f, %.2f]", lower, upper)
	}
	outliers.Pct = pct(outliers.Count)
	return append(rows, outliers)
}
