package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"order-analytics/internal/analytics"
	"order-analytics/internal/export"
	"order-analytics/internal/models"
	"order-analytics/internal/service"
	"order-analytics/internal/store"
	"order-analytics/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

// RunStore reads recorded report runs
type RunStore interface {
	GetRunByID(ctx context.Context, runID string) (*models.ReportRun, error)
	GetRunsByReport(ctx context.Context, report string, limit int) ([]models.ReportRun, error)
}

// CacheInvalidator drops cached copies of a report
type CacheInvalidator interface {
	InvalidateReport(ctx context.Context, report string) (int64, error)
}

// ReadinessCheck reports whether a dependency is reachable
type ReadinessCheck func(ctx context.Context) error

// Handler contains HTTP handlers
type Handler struct {
	reportService *service.ReportService
	runs          RunStore
	cache         CacheInvalidator
	checks        map[string]ReadinessCheck
	logger        *zap.Logger
}

// NewHandler creates a new HTTP handler. runs and cache may be nil.
func NewHandler(reportService *service.ReportService, runs RunStore, cache CacheInvalidator, checks map[string]ReadinessCheck) *Handler {
	return &Handler{
		reportService: reportService,
		runs:          runs,
		cache:         cache,
		checks:        checks,
		logger:        util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/reports", h.listReports)
		v1.GET("/reports/:name", h.getReport)
		v1.POST("/reports/:name/refresh", h.refreshReport)
		v1.DELETE("/reports/:name/cache", h.invalidateReport)
		v1.GET("/reports/:name/runs", h.listRuns)
		v1.GET("/runs/:id", h.getRun)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(gin.H, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	state := "ready"
	if status != http.StatusOK {
		state = "not ready"
	}
	c.JSON(status, gin.H{
		"status":       state,
		"dependencies": deps,
		"time":         time.Now().Unix(),
	})
}

// listReports returns the registered reports
func (h *Handler) listReports(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"reports": analytics.Definitions(),
	})
}

// getReport computes or fetches a report
func (h *Handler) getReport(c *gin.Context) {
	name := c.Param("name")

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid format",
			"details": err.Error(),
		})
		return
	}
	asOf, err := h.reportService.ResolveAsOf(c.Query("as_of"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid as_of",
			"details": err.Error(),
		})
		return
	}

	report, err := h.reportService.Run(c.Request.Context(), name, asOf)
	if err != nil {
		h.writeError(c, "Failed to compute report", err)
		return
	}

	c.Header("X-Report-Cached", strconv.FormatBool(report.Cached))
	if format == export.FormatCSV {
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Report+"_"+report.AsOf+".csv"))
		c.Header("Content-Type", export.ContentType(format))
		c.Status(http.StatusOK)
		if err := export.WriteCSV(c.Writer, report.Rows); err != nil {
			h.logger.Error("Failed to write CSV response", zap.String("report", name), zap.Error(err))
		}
		return
	}
	c.JSON(http.StatusOK, report)
}

// refreshReport asks for a report to be recomputed into the cache
func (h *Handler) refreshReport(c *gin.Context) {
	name := c.Param("name")

	asOf, err := h.reportService.ResolveAsOf(c.Query("as_of"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid as_of",
			"details": err.Error(),
		})
		return
	}

	queued, err := h.reportService.RequestRefresh(c.Request.Context(), name, asOf)
	if err != nil {
		h.writeError(c, "Failed to refresh report", err)
		return
	}

	if queued {
		c.JSON(http.StatusAccepted, gin.H{
			"status": "queued",
			"report": name,
			"as_of":  asOf.Format(time.DateOnly),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "refreshed",
		"report": name,
		"as_of":  asOf.Format(time.DateOnly),
	})
}

// invalidateReport deletes every cached copy of a report
func (h *Handler) invalidateReport(c *gin.Context) {
	name := c.Param("name")
	if _, err := analytics.Lookup(name); err != nil {
		h.writeError(c, "Failed to invalidate report", err)
		return
	}
	if h.cache == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Report cache is not configured"})
		return
	}

	deleted, err := h.cache.InvalidateReport(c.Request.Context(), name)
	if err != nil {
		h.writeError(c, "Failed to invalidate report", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report":  name,
		"deleted": deleted,
	})
}

// listRuns returns the latest runs of a report
func (h *Handler) listRuns(c *gin.Context) {
	name := c.Param("name")
	if _, err := analytics.Lookup(name); err != nil {
		h.writeError(c, "Failed to list runs", err)
		return
	}
	if h.runs == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Run history is not configured"})
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxRunsLimit {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("limit must be between 1 and %d", maxRunsLimit),
			})
			return
		}
		limit = n
	}

	runs, err := h.runs.GetRunsByReport(c.Request.Context(), name, limit)
	if err != nil {
		h.writeError(c, "Failed to list runs", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"report": name,
		"runs":   runs,
	})
}

// getRun handles get run by ID
func (h *Handler) getRun(c *gin.Context) {
	if h.runs == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Run history is not configured"})
		return
	}

	run, err := h.runs.GetRunByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "Run not found", err)
		return
	}
	c.JSON(http.StatusOK, run)
}

// writeError maps service errors to status codes
func (h *Handler) writeError(c *gin.Context, message string, err error) {
	var verr *analytics.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, analytics.ErrUnknownReport), errors.Is(err, store.ErrRunNotFound):
		status = http.StatusNotFound
	case errors.As(err, &verr):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		h.logger.Error(message, zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
