package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownReport is returned when a report name is not registered
var ErrUnknownReport = errors.New("unknown report")

// Report names
const (
	ReportTopProducts          = "top_products"
	ReportAcquisitionRetention = "acquisition_retention"
	ReportChannelROI           = "channel_roi"
	ReportRFMSegments          = "rfm_segments"
	ReportReturnLeakage        = "return_leakage"
	ReportCohortLTV            = "cohort_ltv"
	ReportExecutiveKPIs        = "executive_kpis"
	ReportMonthlyTrend         = "monthly_trend"
	ReportDescriptiveStats     = "descriptive_stats"
	ReportDataQuality          = "data_quality"
	ReportBusinessInsights     = "business_insights"
	ReportCorrelations         = "correlations"
	ReportSegmentCategoryAOV   = "segment_category_aov"
	ReportDayOfWeekAOV         = "day_of_week_aov"
)

// Result holds the rows of one computed report
type Result struct {
	Report   string `json:"report"`
	AsOf     string `json:"as_of"`
	RowCount int    `json:"row_count"`
	Rows     any    `json:"rows"`
}

// Definition describes a registered report
type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	UsesAsOf    bool   `json:"uses_as_of"`
	// Audit reports inspect raw data and also run over snapshots that fail Validate.
	Audit bool `json:"audit"`

	compute func(snap *Snapshot, asOf time.Time) (any, int)
	decode  func(payload []byte) (Result, error)
}

// Compute runs the report over snap
func (d Definition) Compute(snap *Snapshot, asOf time.Time) Result {
	rows, n := d.compute(snap, asOf)
	return Result{
		Report:   d.Name,
		AsOf:     asOf.Format(time.DateOnly),
		RowCount: n,
		Rows:     rows,
	}
}

// Decode restores a Result encoded as JSON, with rows of the report's own type
func (d Definition) Decode(payload []byte) (Result, error) {
	return d.decode(payload)
}

func define[T any](name, description string, fn func(*Snapshot, time.Time) []T) Definition {
	return Definition{
		Name:        name,
		Description: description,
		UsesAsOf:    true,
		compute: func(snap *Snapshot, asOf time.Time) (any, int) {
			rows := fn(snap, asOf)
			return rows, len(rows)
		},
		decode: func(payload []byte) (Result, error) {
			var envelope struct {
				Result
				Rows []T `json:"rows"`
			}
			if err := json.Unmarshal(payload, &envelope); err != nil {
				return Result{}, fmt.Errorf("decode %s: %w", name, err)
			}
			if envelope.Report != name {
				return Result{}, fmt.Errorf("decode %s: payload holds report %q", name, envelope.Report)
			}
			res := envelope.Result
			res.Rows = envelope.Rows
			return res, nil
		},
	}
}

func defineStatic[T any](name, description string, fn func(*Snapshot) []T) Definition {
	d := define(name, description, func(snap *Snapshot, _ time.Time) []T { return fn(snap) })
	d.UsesAsOf = false
	return d
}

func audit(d Definition) Definition {
	d.Audit = true
	return d
}

var definitions = []Definition{
	define(ReportTopProducts, "Top 5 products by net revenue over the last 6 months, excluding returns", TopProducts),
	defineStatic(ReportAcquisitionRetention, "New vs returning customers per month", AcquisitionRetention),
	define(ReportChannelROI, "Marketing channel ROAS and CAC over the last 12 months", ChannelROI),
	define(ReportRFMSegments, "RFM quartile segmentation of customers", RFMSegments),
	defineStatic(ReportReturnLeakage, "Net revenue lost to returns per category", ReturnLeakage),
	defineStatic(ReportCohortLTV, "12-month net revenue per acquisition cohort", CohortLTV),
	define(ReportExecutiveKPIs, "Current vs prior month KPIs", ExecutiveKPIs),
	defineStatic(ReportMonthlyTrend, "Monthly net revenue with moving average and YoY growth", MonthlyTrend),
	defineStatic(ReportDescriptiveStats, "Distribution of numeric order columns", DescriptiveStats),
	audit(defineStatic(ReportDataQuality, "Missing values, duplicates, orphans and outliers in orders", DataQuality)),
	defineStatic(ReportBusinessInsights, "Headline metrics of the business summary", BusinessInsights),
	defineStatic(ReportCorrelations, "Pairwise correlation of order measures", CorrelationMatrix),
	defineStatic(ReportSegmentCategoryAOV, "Average order value by customer segment and category", SegmentCategoryAOV),
	defineStatic(ReportDayOfWeekAOV, "Order volume and average order value by day of week", DayOfWeekAOV),
}

var byName = func() map[string]Definition {
	m := make(map[string]Definition, len(definitions))
	for _, d := range definitions {
		m[d.Name] = d
	}
	return m
}()

// Definitions returns all registered reports in display order
func Definitions() []Definition {
	return append([]Definition(nil), definitions...)
}

// Lookup returns the report registered under name
func Lookup(name string) (Definition, error) {
	d, ok := byName[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownReport, name)
	}
	return d, nil
}
