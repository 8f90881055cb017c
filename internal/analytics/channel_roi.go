package analytics

import (
	"sort"
	"time"
)

const channelROILookbackMonths = 12

// ROAS tiers, assigned from gross revenue over spend
const (
	ROASTierHigh   = "high"
	ROASTierMedium = "medium"
	ROASTierLow    = "low"
)

// ChannelROIRow summarizes the return on marketing spend of one channel
type ChannelROIRow struct {
	Channel              string   `json:"channel"`
	OrderCount           int      `json:"order_count"`
	DistinctCustomers    int      `json:"distinct_customers"`
	TotalSpend           float64  `json:"total_spend"`
	NetRevenue           float64  `json:"net_revenue"`
	AvgOrderValue        *float64 `json:"avg_order_value"`
	ROAS                 *float64 `json:"roas"`
	CAC                  *float64 `json:"cac"`
	ROASTier             string   `json:"roas_tier"`
	CampaignBudget       float64  `json:"campaign_budget"`
	BudgetUtilizationPct *float64 `json:"budget_utilization_pct"`
}

type channelAcc struct {
	orders    int
	customers map[int64]struct{}
	campaigns map[int64]struct{}
	budget    float64
	spend     float64
	gross     aggregate
	net       aggregate
}

// ChannelROI aggregates the last twelve months of campaign-attributed orders by channel
func ChannelROI(snap *Snapshot, asOf time.Time) []ChannelROIRow {
	cutoff := AddMonths(asOf, -channelROILookbackMonths)
	end := dayAfter(asOf)

	accs := make(map[string]*channelAcc)
	for i := range snap.Orders {
		o := &snap.Orders[i]
		if o.OrderDate.Before(cutoff) || !o.OrderDate.Before(end) {
			continue
		}
		c := snap.Campaign(o.CampaignID)
		if c == nil {
			continue
		}
		acc, ok := accs[c.Channel]
		if !ok {
			acc = &channelAcc{
				customers: make(map[int64]struct{}),
				campaigns: make(map[int64]struct{}),
			}
			accs[c.Channel] = acc
		}
		acc.orders++
		acc.customers[o.CustomerID] = struct{}{}
		if _, seen := acc.campaigns[c.CampaignID]; !seen {
			acc.campaigns[c.CampaignID] = struct{}{}
			acc.budget += c.TotalBudget
		}
		acc.spend += o.MarketingSpend
		acc.gross.addPtr(o.Revenue)
		if net, ok := orderNet(o); ok {
			acc.net.add(net)
		}
	}

	rows := make([]ChannelROIRow, 0, len(accs))
	for channel, acc := range accs {
		rows = append(rows, ChannelROIRow{
			Channel:              channel,
			OrderCount:           acc.orders,
			DistinctCustomers:    len(acc.customers),
			TotalSpend:           Round(acc.spend, 2),
			NetRevenue:           Round(acc.net.sum, 2),
			AvgOrderValue:        RoundPtr(acc.net.avg(), 2),
			ROAS:                 RoundPtr(SafeDiv(acc.net.sum, acc.spend), 2),
			CAC:                  RoundPtr(SafeDiv(acc.spend, float64(len(acc.customers))), 2),
			ROASTier:             ClassifyROAS(SafeDiv(acc.gross.sum, acc.spend)),
			CampaignBudget:       Round(acc.budget, 2),
			BudgetUtilizationPct: RoundPtr(SafeDiv(acc.spend*100, acc.budget), 2),
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		before, equal := descNullsLast(rows[i].ROAS, rows[j].ROAS)
		if !equal {
			return before
		}
		return rows[i].Channel < rows[j].Channel
	})
	return rows
}

// ClassifyROAS buckets a gross revenue-to-spend ratio. A missing ratio is "low".
func ClassifyROAS(grossRatio *float64) string {
	switch {
	case grossRatio == nil:
		return ROASTierLow
	case *grossRatio >= 8:
		return ROASTierHigh
	case *grossRatio >= 4:
		return ROASTierMedium
	default:
		return ROASTierLow
	}
}
