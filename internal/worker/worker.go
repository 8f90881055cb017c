package worker

import (
	"context"

	"order-analytics/internal/broker"
	"order-analytics/internal/models"
	"order-analytics/internal/util"

	"go.uber.org/zap"
)

// Refresher recomputes reports on request
type Refresher interface {
	HandleReportRequested(ctx context.Context, event *models.ReportRequestedEvent) error
}

// RefreshWorker recomputes reports into the cache when ReportRequested events arrive
type RefreshWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	logger       *zap.Logger
}

// NewRefreshWorker creates a new refresh worker
func NewRefreshWorker(consumer *broker.Consumer, refresher Refresher) *RefreshWorker {
	return &RefreshWorker{
		consumer:     consumer,
		eventHandler: NewEventHandler(refresher),
		logger:       util.GetLogger(),
	}
}

// NewEventHandler wires a refresher into a broker event handler
func NewEventHandler(refresher Refresher) *broker.EventHandler {
	eventHandler := broker.NewEventHandler()
	eventHandler.OnReportRequested(refresher.HandleReportRequested)
	return eventHandler
}

// Start starts the worker
func (w *RefreshWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting report refresh worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *RefreshWorker) Stop() error {
	w.logger.Info("Stopping report refresh worker")
	return w.consumer.Close()
}
