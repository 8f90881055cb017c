package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"order-analytics/config"
	"order-analytics/internal/analytics"
	"order-analytics/internal/models"
	"order-analytics/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// SnapshotLoader loads the four input relations
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context) (*models.Snapshot, error)
}

// ReportCache stores encoded reports and guards recomputation with a lock
type ReportCache interface {
	GetReport(ctx context.Context, report, asOf string) ([]byte, bool, error)
	SetReport(ctx context.Context, report, asOf string, payload []byte, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey, token string) error
}

// EventPublisher publishes report lifecycle events
type EventPublisher interface {
	PublishReportRequested(ctx context.Context, event *models.ReportRequestedEvent) error
	PublishReportGenerated(ctx context.Context, event *models.ReportGeneratedEvent) error
	PublishReportFailed(ctx context.Context, event *models.ReportFailedEvent) error
}

// RunRecorder persists the outcome of report computations
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.ReportRun) error
}

// Report is a computed or cached report
type Report struct {
	analytics.Result
	RunID  string `json:"run_id,omitempty"`
	Cached bool   `json:"cached"`
}

// ReportService computes reports over the latest snapshot. Cache, events and
// run recorder are optional; a nil dependency is skipped.
type ReportService struct {
	loader SnapshotLoader
	cache  ReportCache
	events EventPublisher
	runs   RunRecorder
	cfg    config.ReportsConfig
	logger *zap.Logger
	nowFn  func() time.Time

	loads  singleflight.Group
	snapMu sync.Mutex
	snap   *models.Snapshot
	snapAt time.Time
}

// loadedSnapshot is the result of one load. invalid holds the validation
// failure; only audit reports are computed over an invalid snapshot.
type loadedSnapshot struct {
	snap    *models.Snapshot
	invalid error
}

// NewReportService creates a new report service
func NewReportService(
	loader SnapshotLoader,
	cache ReportCache,
	events EventPublisher,
	runs RunRecorder,
	cfg config.ReportsConfig,
) *ReportService {
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	return &ReportService{
		loader: loader,
		cache:  cache,
		events: events,
		runs:   runs,
		cfg:    cfg,
		logger: util.GetLogger(),
		nowFn:  time.Now,
	}
}

// ResolveAsOf parses an explicit evaluation date. An empty value falls back to the
// configured date and then to today (UTC).
func (s *ReportService) ResolveAsOf(raw string) (time.Time, error) {
	if raw == "" {
		raw = s.cfg.AsOf
	}
	if raw == "" {
		now := s.nowFn().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	asOf, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid as_of %q: expected YYYY-MM-DD", raw)
	}
	return asOf, nil
}

// Run returns a report, serving it from cache when possible
func (s *ReportService) Run(ctx context.Context, name string, asOf time.Time) (*Report, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.Run", attribute.String("report", name))
	defer span.End()

	def, err := analytics.Lookup(name)
	if err != nil {
		return nil, err
	}
	asOfKey := asOf.Format(time.DateOnly)

	if report, ok := s.fromCache(ctx, def, asOfKey); ok {
		return report, nil
	}

	report, err := s.compute(ctx, def, asOf)
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	s.cacheReport(ctx, report)
	return report, nil
}

// RunAll computes every registered report concurrently over one snapshot
func (s *ReportService) RunAll(ctx context.Context, asOf time.Time) ([]*Report, error) {
	ctx, span := util.StartSpan(ctx, "ReportService.RunAll")
	defer span.End()

	loaded, err := s.snapshot(ctx)
	if err == nil {
		err = loaded.invalid
	}
	if err != nil {
		util.RecordError(span, err)
		return nil, err
	}

	defs := analytics.Definitions()
	reports := make([]*Report, len(defs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Parallelism)
	for i, def := range defs {
		i, def := i, def
		g.Go(func() error {
			report, err := s.Run(gctx, def.Name, asOf)
			if err != nil {
				return fmt.Errorf("report %s: %w", def.Name, err)
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		util.RecordError(span, err)
		return nil, err
	}
	return reports, nil
}

// Refresh recomputes a report into the cache. It does nothing when another
// instance holds the report's lock.
func (s *ReportService) Refresh(ctx context.Context, name string, asOf time.Time) error {
	ctx, span := util.StartSpan(ctx, "ReportService.Refresh", attribute.String("report", name))
	defer span.End()

	def, err := analytics.Lookup(name)
	if err != nil {
		return err
	}

	if s.cache != nil {
		lockKey := fmt.Sprintf("%s:%s", def.Name, asOf.Format(time.DateOnly))
		token := uuid.New().String()

		acquired, err := s.cache.AcquireLock(ctx, lockKey, token, s.cfg.LockTTL)
		if err != nil {
			s.logger.Warn("Failed to acquire report lock, computing anyway",
				zap.String("report", def.Name), zap.Error(err))
		} else if !acquired {
			s.logger.Info("Report refresh already in progress", zap.String("report", def.Name))
			return nil
		} else {
			defer func() {
				if err := s.cache.ReleaseLock(context.Background(), lockKey, token); err != nil {
					s.logger.Warn("Failed to release report lock", zap.String("report", def.Name), zap.Error(err))
				}
			}()
		}
	}

	// A refresh always sees freshly loaded data.
	s.Reload()

	report, err := s.compute(ctx, def, asOf)
	if err != nil {
		util.RecordError(span, err)
		return err
	}
	s.cacheReport(ctx, report)
	return nil
}

// RequestRefresh asks the workers to recompute a report. Without an event
// publisher the refresh runs inline. queued reports whether an event was sent.
func (s *ReportService) RequestRefresh(ctx context.Context, name string, asOf time.Time) (queued bool, err error) {
	if _, err := analytics.Lookup(name); err != nil {
		return false, err
	}
	if s.events == nil {
		return false, s.Refresh(ctx, name, asOf)
	}

	event := &models.ReportRequestedEvent{
		BaseEvent: s.newBaseEvent(models.EventTypeReportRequested),
		Report:    name,
		AsOf:      asOf.Format(time.DateOnly),
	}
	if err := s.events.PublishReportRequested(ctx, event); err != nil {
		return false, fmt.Errorf("failed to request refresh: %w", err)
	}
	return true, nil
}

// HandleReportRequested is the worker entry point for ReportRequested events
func (s *ReportService) HandleReportRequested(ctx context.Context, event *models.ReportRequestedEvent) error {
	asOf, err := s.ResolveAsOf(event.AsOf)
	if err != nil {
		return err
	}
	s.logger.Info("Refreshing report",
		zap.String("report", event.Report),
		zap.String("as_of", asOf.Format(time.DateOnly)),
		zap.String("event_id", event.EventID))

	err = s.Refresh(ctx, event.Report, asOf)
	if errors.Is(err, analytics.ErrUnknownReport) {
		// Unknown names are dropped, not retried.
		s.logger.Warn("Dropping refresh of unknown report", zap.String("report", event.Report))
		return nil
	}
	return err
}

// Reload drops the in-memory snapshot so the next report reads the database again
func (s *ReportService) Reload() {
	s.snapMu.Lock()
	defer s.snapMu.Unlock()
	s.snap = nil
}

// compute runs one report and records its outcome
func (s *ReportService) compute(ctx context.Context, def analytics.Definition, asOf time.Time) (*Report, error) {
	runID := uuid.New().String()
	asOfKey := asOf.Format(time.DateOnly)

	loaded, err := s.snapshot(ctx)
	if err == nil && !def.Audit {
		err = loaded.invalid
	}
	if err != nil {
		reason := "snapshot"
		var verr *analytics.ValidationError
		if errors.As(err, &verr) {
			reason = "invalid_snapshot"
		}
		s.fail(ctx, def.Name, runID, asOf, reason, err)
		return nil, err
	}

	_, span := util.StartSpan(ctx, "ReportService.Compute", attribute.String("report", def.Name))
	start := time.Now()
	result := def.Compute(loaded.snap, asOf)
	elapsed := time.Since(start)
	span.SetAttributes(attribute.Int("rows", result.RowCount))
	span.End()

	util.ReportComputeLatency.WithLabelValues(def.Name).Observe(elapsed.Seconds())
	util.ReportsGeneratedTotal.WithLabelValues(def.Name).Inc()
	util.ReportRows.WithLabelValues(def.Name).Set(float64(result.RowCount))

	s.logger.Info("Report computed",
		zap.String("report", def.Name),
		zap.String("as_of", asOfKey),
		zap.Int("rows", result.RowCount),
		zap.Duration("duration", elapsed))

	s.recordRun(ctx, &models.ReportRun{
		RunID:      runID,
		Report:     def.Name,
		AsOf:       asOf,
		RowCount:   result.RowCount,
		DurationMs: elapsed.Milliseconds(),
		Status:     models.RunStatusSucceeded,
		CreatedAt:  s.nowFn().UTC(),
	})

	if s.events != nil {
		event := &models.ReportGeneratedEvent{
			BaseEvent:  s.newBaseEvent(models.EventTypeReportGenerated),
			RunID:      runID,
			Report:     def.Name,
			AsOf:       asOfKey,
			RowCount:   result.RowCount,
			DurationMs: elapsed.Milliseconds(),
		}
		if err := s.events.PublishReportGenerated(ctx, event); err != nil {
			s.logger.Error("Failed to publish ReportGenerated event", zap.Error(err))
		}
	}

	return &Report{Result: result, RunID: runID}, nil
}

// fail records and announces a failed computation
func (s *ReportService) fail(ctx context.Context, report, runID string, asOf time.Time, reason string, cause error) {
	util.ReportFailuresTotal.WithLabelValues(report, reason).Inc()
	s.logger.Error("Report failed",
		zap.String("report", report),
		zap.String("reason", reason),
		zap.Error(cause))

	s.recordRun(ctx, &models.ReportRun{
		RunID:     runID,
		Report:    report,
		AsOf:      asOf,
		Status:    models.RunStatusFailed,
		CreatedAt: s.nowFn().UTC(),
	})

	if s.events != nil {
		event := &models.ReportFailedEvent{
			BaseEvent: s.newBaseEvent(models.EventTypeReportFailed),
			RunID:     runID,
			Report:    report,
			AsOf:      asOf.Format(time.DateOnly),
			Reason:    cause.Error(),
		}
		if err := s.events.PublishReportFailed(ctx, event); err != nil {
			s.logger.Error("Failed to publish ReportFailed event", zap.Error(err))
		}
	}
}

func (s *ReportService) recordRun(ctx context.Context, run *models.ReportRun) {
	if s.runs == nil {
		return
	}
	if err := s.runs.RecordRun(ctx, run); err != nil {
		s.logger.Error("Failed to record report run",
			zap.String("run_id", run.RunID),
			zap.Error(err))
	}
}

// fromCache returns the cached report if present and decodable
func (s *ReportService) fromCache(ctx context.Context, def analytics.Definition, asOfKey string) (*Report, bool) {
	if s.cache == nil {
		return nil, false
	}

	payload, found, err := s.cache.GetReport(ctx, def.Name, asOfKey)
	if err != nil {
		s.logger.Warn("Report cache read failed", zap.String("report", def.Name), zap.Error(err))
		return nil, false
	}
	if !found {
		util.ReportCacheMissesTotal.WithLabelValues(def.Name).Inc()
		return nil, false
	}

	result, err := def.Decode(payload)
	if err != nil {
		s.logger.Warn("Discarding undecodable cached report", zap.String("report", def.Name), zap.Error(err))
		util.ReportCacheMissesTotal.WithLabelValues(def.Name).Inc()
		return nil, false
	}
	util.ReportCacheHitsTotal.WithLabelValues(def.Name).Inc()
	return &Report{Result: result, Cached: true}, true
}

// cacheReport writes a computed report to the cache
func (s *ReportService) cacheReport(ctx context.Context, report *Report) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(report.Result)
	if err != nil {
		s.logger.Error("Failed to encode report", zap.String("report", report.Report), zap.Error(err))
		return
	}
	if err := s.cache.SetReport(ctx, report.Report, report.AsOf, payload, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("Failed to cache report", zap.String("report", report.Report), zap.Error(err))
	}
}

// snapshot returns the in-memory snapshot, loading and validating it when it is
// missing or older than the cache TTL (a zero TTL keeps it until Reload).
// Concurrent callers share one load. An invalid snapshot is returned with its
// validation error but not kept, so the next call loads again.
func (s *ReportService) snapshot(ctx context.Context) (*loadedSnapshot, error) {
	s.snapMu.Lock()
	if s.snap != nil && (s.cfg.CacheTTL <= 0 || s.nowFn().Sub(s.snapAt) < s.cfg.CacheTTL) {
		snap := s.snap
		s.snapMu.Unlock()
		return &loadedSnapshot{snap: snap}, nil
	}
	s.snapMu.Unlock()

	v, err, _ := s.loads.Do("snapshot", func() (interface{}, error) {
		ctx, span := util.StartSpan(ctx, "ReportService.LoadSnapshot")
		defer span.End()

		start := time.Now()
		snap, err := s.loader.LoadSnapshot(ctx)
		util.SnapshotLoadLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		if err := analytics.Validate(snap); err != nil {
			s.logger.Warn("Snapshot failed validation", zap.Error(err))
			return &loadedSnapshot{snap: snap, invalid: err}, nil
		}

		util.SnapshotRows.WithLabelValues("orders").Set(float64(len(snap.Orders)))
		util.SnapshotRows.WithLabelValues("customers").Set(float64(len(snap.Customers)))
		util.SnapshotRows.WithLabelValues("products").Set(float64(len(snap.Products)))
		util.SnapshotRows.WithLabelValues("marketing_campaigns").Set(float64(len(snap.Campaigns)))

		s.snapMu.Lock()
		s.snap = snap
		s.snapAt = s.nowFn()
		s.snapMu.Unlock()

		s.logger.Info("Snapshot loaded",
			zap.Int("orders", len(snap.Orders)),
			zap.Duration("duration", time.Since(start)))
		return &loadedSnapshot{snap: snap}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*loadedSnapshot), nil
}

func (s *ReportService) newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: s.nowFn().UTC(),
	}
}
