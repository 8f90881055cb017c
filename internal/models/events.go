package models

import "time"

// Event types
const (
	EventTypeReportRequested = "REPORT_REQUESTED"
	EventTypeReportGenerated = "REPORT_GENERATED"
	EventTypeReportFailed    = "REPORT_FAILED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// ReportRequestedEvent asks workers to (re)compute a report into the cache
type ReportRequestedEvent struct {
	BaseEvent
	Report string `json:"report"`
	AsOf   string `json:"as_of"`
}

// ReportGeneratedEvent published when a report was computed
type ReportGeneratedEvent struct {
	BaseEvent
	RunID      string `json:"run_id"`
	Report     string `json:"report"`
	AsOf       string `json:"as_of"`
	RowCount   int    `json:"row_count"`
	DurationMs int64  `json:"duration_ms"`
}

// ReportFailedEvent published when a report could not be computed
type ReportFailedEvent struct {
	BaseEvent
	RunID  string `json:"run_id"`
	Report string `json:"report"`
	AsOf   string `json:"as_of"`
	Reason string `json:"reason"`
}
