package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"order-analytics/config"
	"order-analytics/internal/analytics"
	"order-analytics/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLoader struct {
	mock.Mock
}

func (m *mockLoader) LoadSnapshot(ctx context.Context) (*models.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*models.Snapshot)
	return snap, args.Error(1)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetReport(ctx context.Context, report, asOf string) ([]byte, bool, error) {
	args := m.Called(ctx, report, asOf)
	payload, _ := args.Get(0).([]byte)
	return payload, args.Bool(1), args.Error(2)
}

func (m *mockCache) SetReport(ctx context.Context, report, asOf string, payload []byte, ttl time.Duration) error {
	return m.Called(ctx, report, asOf, payload, ttl).Error(0)
}

func (m *mockCache) AcquireLock(ctx context.Context, lockKey, token string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, lockKey, token, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *mockCache) ReleaseLock(ctx context.Context, lockKey, token string) error {
	return m.Called(ctx, lockKey, token).Error(0)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) PublishReportRequested(ctx context.Context, event *models.ReportRequestedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEvents) PublishReportGenerated(ctx context.Context, event *models.ReportGeneratedEvent) error {
	return m.Called(ctx, event).Error(0)
}

func (m *mockEvents) PublishReportFailed(ctx context.Context, event *models.ReportFailedEvent) error {
	return m.Called(ctx, event).Error(0)
}

type mockRuns struct {
	mock.Mock
}

func (m *mockRuns) RecordRun(ctx context.Context, run *models.ReportRun) error {
	return m.Called(ctx, run).Error(0)
}

var testAsOf = time.Date(2024, time.December, 15, 0, 0, 0, 0, time.UTC)

var testConfig = config.ReportsConfig{
	CacheTTL:    10 * time.Minute,
	LockTTL:     time.Minute,
	Parallelism: 3,
}

func testSnapshot() *models.Snapshot {
	revenue := func(v float64) *float64 { return &v }
	campaign := int64(1)
	orders := []models.Order{
		{OrderID: "ORD1", CustomerID: 1, ProductID: 1, CampaignID: &campaign, OrderDate: time.Date(2024, time.December, 2, 9, 0, 0, 0, time.UTC),
			UnitsSold: 1, Revenue: revenue(120), MarketingSpend: 10, Region: "North", PaymentMethod: "UPI"},
		{OrderID: "ORD2", CustomerID: 2, ProductID: 2, OrderDate: time.Date(2024, time.November, 20, 9, 0, 0, 0, time.UTC),
			UnitsSold: 2, Revenue: revenue(80), MarketingSpend: 5, Returned: true, Region: "South", PaymentMethod: "Credit Card"},
	}
	customers := []models.Customer{{CustomerID: 1}, {CustomerID: 2}}
	products := []models.Product{
		{ProductID: 1, ProductName: "Phone", Category: "Electronics"},
		{ProductID: 2, ProductName: "Novel", Category: "Books"},
	}
	campaigns := []models.Campaign{{CampaignID: 1, Channel: "Email", TotalBudget: 1000}}
	return models.NewSnapshot(orders, customers, products, campaigns)
}

func TestRunComputesAndCaches(t *testing.T) {
	loader := &mockLoader{}
	cache := &mockCache{}
	events := &mockEvents{}
	runs := &mockRuns{}

	loader.On("LoadSnapshot", mock.Anything).Return(testSnapshot(), nil).Once()
	cache.On("GetReport", mock.Anything, analytics.ReportTopProducts, "2024-12-15").Return(nil, false, nil)
	cache.On("SetReport", mock.Anything, analytics.ReportTopProducts, "2024-12-15", mock.Anything, 10*time.Minute).Return(nil)
	runs.On("RecordRun", mock.Anything, mock.MatchedBy(func(r *models.ReportRun) bool {
		return r.Report == analytics.ReportTopProducts && r.Status == models.RunStatusSucceeded && r.RowCount == 1
	})).Return(nil)
	events.On("PublishReportGenerated", mock.Anything, mock.MatchedBy(func(e *models.ReportGeneratedEvent) bool {
		return e.Report == analytics.ReportTopProducts && e.AsOf == "2024-12-15" && e.EventType == models.EventTypeReportGenerated
	})).Return(nil)

	svc := NewReportService(loader, cache, events, runs, testConfig)
	report, err := svc.Run(context.Background(), analytics.ReportTopProducts, testAsOf)
	require.NoError(t, err)

	assert.False(t, report.Cached)
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, 1, report.RowCount)
	rows, ok := report.Rows.([]analytics.TopProductRow)
	require.True(t, ok)
	assert.Equal(t, "Phone", rows[0].ProductName)

	loader.AssertExpectations(t)
	cache.AssertExpectations(t)
	events.AssertExpectations(t)
	runs.AssertExpectations(t)
}

func TestRunServesFromCache(t *testing.T) {
	def, err := analytics.Lookup(analytics.ReportReturnLeakage)
	require.NoError(t, err)
	payload, err := json.Marshal(def.Compute(testSnapshot(), testAsOf))
	require.NoError(t, err)

	loader := &mockLoader{}
	cache := &mockCache{}
	cache.On("GetReport", mock.Anything, analytics.ReportReturnLeakage, "2024-12-15").Return(payload, true, nil)

	svc := NewReportService(loader, cache, nil, nil, testConfig)
	report, err := svc.Run(context.Background(), analytics.ReportReturnLeakage, testAsOf)
	require.NoError(t, err)

	assert.True(t, report.Cached)
	assert.Empty(t, report.RunID)
	rows, ok := report.Rows.([]analytics.ReturnLeakageRow)
	require.True(t, ok)
	assert.Len(t, rows, 2)
	loader.AssertNotCalled(t, "LoadSnapshot", mock.Anything)
}

func TestRunFallsBackWhenCacheFails(t *testing.T) {
	loader := &mockLoader{}
	cache := &mockCache{}
	loader.On("LoadSnapshot", mock.Anything).Return(testSnapshot(), nil)
	cache.On("GetReport", mock.Anything, mock.Anything, mock.Anything).Return(nil, false, errors.New("connection refused"))
	cache.On("SetReport", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("connection refused"))

	svc := NewReportService(loader, cache, nil, nil, testConfig)
	report, err := svc.Run(context.Background(), analytics.ReportCohortLTV, testAsOf)
	require.NoError(t, err)
	assert.Equal(t, 2, report.RowCount)
}

func TestRunUnknownReport(t *testing.T) {
	loader := &mockLoader{}
	svc := NewReportService(loader, nil, nil, nil, testConfig)

	_, err := svc.Run(context.Background(), "churn_forecast", testAsOf)
	assert.True(t, errors.Is(err, analytics.ErrUnknownReport))
	loader.AssertNotCalled(t, "LoadSnapshot", mock.Anything)
}

func TestRunInvalidSnapshot(t *testing.T) {
	snap := testSnapshot()
	snap.Orders[1].OrderID = snap.Orders[0].OrderID

	loader := &mockLoader{}
	events := &mockEvents{}
	runs := &mockRuns{}
	loader.On("LoadSnapshot", mock.Anything).Return(snap, nil)
	runs.On("RecordRun", mock.Anything, mock.MatchedBy(func(r *models.ReportRun) bool {
		return r.Status == models.RunStatusFailed && r.Report == analytics.ReportChannelROI
	})).Return(nil).Once()
	events.On("PublishReportFailed", mock.Anything, mock.MatchedBy(func(e *models.ReportFailedEvent) bool {
		return e.Report == analytics.ReportChannelROI && e.Reason != ""
	})).Return(nil).Once()

	svc := NewReportService(loader, nil, events, runs, testConfig)
	_, err := svc.Run(context.Background(), analytics.ReportChannelROI, testAsOf)
	require.Error(t, err)

	var verr *analytics.ValidationError
	assert.True(t, errors.As(err, &verr))
	runs.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestRunAuditsInvalidSnapshot(t *testing.T) {
	snap := testSnapshot()
	snap.Orders[1].OrderID = snap.Orders[0].OrderID

	loader := &mockLoader{}
	loader.On("LoadSnapshot", mock.Anything).Return(snap, nil)

	svc := NewReportService(loader, nil, nil, nil, testConfig)
	report, err := svc.Run(context.Background(), analytics.ReportDataQuality, testAsOf)
	require.NoError(t, err)

	rows, ok := report.Rows.([]analytics.DataQualityRow)
	require.True(t, ok)
	for _, r := range rows {
		if r.Check == analytics.CheckDuplicate {
			assert.Equal(t, 1, r.Count)
		}
	}

	_, err = svc.Run(context.Background(), analytics.ReportTopProducts, testAsOf)
	var verr *analytics.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = svc.RunAll(context.Background(), testAsOf)
	assert.True(t, errors.As(err, &verr))

	// Invalid snapshots are not kept between calls.
	loader.AssertNumberOfCalls(t, "LoadSnapshot", 3)
}

func TestRunWrapsLoaderError(t *testing.T) {
	loader := &mockLoader{}
	loader.On("LoadSnapshot", mock.Anything).Return(nil, errors.New("too many connections"))

	svc := NewReportService(loader, nil, nil, nil, testConfig)
	_, err := svc.Run(context.Background(), analytics.ReportRFMSegments, testAsOf)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load snapshot")
	assert.Contains(t, err.Error(), "too many connections")
}

func TestRunAllComputesEveryReport(t *testing.T) {
	loader := &mockLoader{}
	loader.On("LoadSnapshot", mock.Anything).Return(testSnapshot(), nil).Once()

	svc := NewReportService(loader, nil, nil, nil, testConfig)
	reports, err := svc.RunAll(context.Background(), testAsOf)
	require.NoError(t, err)

	defs := analytics.Definitions()
	require.Len(t, reports, len(defs))
	for i, def := range defs {
		require.NotNil(t, reports[i])
		assert.Equal(t, def.Name, reports[i].Report)
		assert.Equal(t, "2024-12-15", reports[i].AsOf)
	}
	loader.AssertExpectations(t)
}

func TestSnapshotIsReloadedAfterTTL(t *testing.T) {
	loader := &mockLoader{}
	loader.On("LoadSnapshot", mock.Anything).Return(testSnapshot(), nil).Twice()

	now := time.Date(2024, time.December, 15, 9, 0, 0, 0, time.UTC)
	svc := NewReportService(loader, nil, nil, nil, testConfig)
	svc.nowFn = func() time.Time { return now }

	_, err := svc.Run(context.Background(), analytics.ReportCohortLTV, testAsOf)
	require.NoError(t, err)
	_, err = svc.Run(context.Background(), analytics.ReportReturnLeakage, testAsOf)
	require.NoError(t, err)
	loader.AssertNumberOfCalls(t, "LoadSnapshot", 1)

	now = now.Add(11 * time.Minute)
	_, err = svc.Run(context.Background(), analytics.ReportCohortLTV, testAsOf)
	require.NoError(t, err)
	loader.AssertNumberOfCalls(t, "LoadSnapshot", 2)
}

func TestRefreshSkipsWhenLocked(t *testing.T) {
	loader := &mockLoader{}
	cache := &mockCache{}
	cache.On("AcquireLock", mock.Anything, "channel_roi:2024-12-15", mock.Anything, time.Minute).Return(false, nil)

	svc := NewReportService(loader, cache, nil, nil, testConfig)
	require.NoError(t, svc.Refresh(context.Background(), analytics.ReportChannelROI, testAsOf))

	loader.AssertNotCalled(t, "LoadSnapshot", mock.Anything)
	cache.AssertNotCalled(t, "SetReport", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshRecomputesAndReleasesLock(t *testing.T) {
	loader := &mockLoader{}
	cache := &mockCache{}

	var token string
	cache.On("AcquireLock", mock.Anything, "channel_roi:2024-12-15", mock.Anything, time.Minute).
		Run(func(args mock.Arguments) { token = args.String(2) }).
		Return(true, nil)
	cache.On("SetReport", mock.Anything, analytics.ReportChannelROI, "2024-12-15", mock.Anything, 10*time.Minute).Return(nil)
	cache.On("ReleaseLock", mock.Anything, "channel_roi:2024-12-15", mock.Anything).Return(nil)
	loader.On("LoadSnapshot", mock.Anything).Return(testSnapshot(), nil)

	svc := NewReportService(loader, cache, nil, nil, testConfig)
	require.NoError(t, svc.Refresh(context.Background(), analytics.ReportChannelROI, testAsOf))

	cache.AssertExpectations(t)
	require.NotEmpty(t, token)
	cache.AssertCalled(t, "ReleaseLock", mock.Anything, "channel_roi:2024-12-15", token)
}

func TestRequestRefresh(t *testing.T) {
	t.Run("publishes an event", func(t *testing.T) {
		events := &mockEvents{}
		events.On("PublishReportRequested", mock.Anything, mock.MatchedBy(func(e *models.ReportRequestedEvent) bool {
			return e.Report == analytics.ReportRFMSegments && e.AsOf == "2024-12-15" && e.EventID != ""
		})).Return(nil).Once()

		svc := NewReportService(&mockLoader{}, nil, events, nil, testConfig)
		queued, err := svc.RequestRefresh(context.Background(), analytics.ReportRFMSegments, testAsOf)
		require.NoError(t, err)
		assert.True(t, queued)
		events.AssertExpectations(t)
	})

	t.Run("runs inline without a publisher", func(t *testing.T) {
		loader := &mockLoader{}
		loader.On("LoadSnapshot", mock.Anything).Return(testSnapshot(), nil).Once()

		svc := NewReportService(loader, nil, nil, nil, testConfig)
		queued, err := svc.RequestRefresh(context.Background(), analytics.ReportRFMSegments, testAsOf)
		require.NoError(t, err)
		assert.False(t, queued)
		loader.AssertExpectations(t)
	})

	t.Run("rejects unknown reports", func(t *testing.T) {
		svc := NewReportService(&mockLoader{}, nil, &mockEvents{}, nil, testConfig)
		_, err := svc.RequestRefresh(context.Background(), "nope", testAsOf)
		assert.True(t, errors.Is(err, analytics.ErrUnknownReport))
	})
}

func TestHandleReportRequestedDropsUnknownReport(t *testing.T) {
	loader := &mockLoader{}
	svc := NewReportService(loader, nil, nil, nil, testConfig)

	err := svc.HandleReportRequested(context.Background(), &models.ReportRequestedEvent{Report: "nope", AsOf: "2024-12-15"})
	assert.NoError(t, err)
	loader.AssertNotCalled(t, "LoadSnapshot", mock.Anything)
}

func TestResolveAsOf(t *testing.T) {
	svc := NewReportService(&mockLoader{}, nil, nil, nil, testConfig)
	svc.nowFn = func() time.Time { return time.Date(2025, time.March, 9, 23, 30, 0, 0, time.UTC) }

	asOf, err := svc.ResolveAsOf("2024-12-15")
	require.NoError(t, err)
	assert.Equal(t, testAsOf, asOf)

	asOf, err = svc.ResolveAsOf("")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC), asOf)

	pinned := NewReportService(&mockLoader{}, nil, nil, nil, config.ReportsConfig{AsOf: "2024-06-30"})
	asOf, err = pinned.ResolveAsOf("")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, time.June, 30, 0, 0, 0, 0, time.UTC), asOf)

	_, err = svc.ResolveAsOf("12/15/2024")
	assert.Error(t, err)
}
