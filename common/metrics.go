package common

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MetricsMiddleware tags every request with an id, logs it and records an
// ApiMetric when a database is open. Handlers report row counts by setting
// "rows_processed" on the context.
func MetricsMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		startTime := time.Now()
		c.Next()
		duration := time.Since(startTime)

		rowsProcessed := c.GetInt("rows_processed")

		errors := ""
		if len(c.Errors) > 0 {
			errors = c.Errors.String()
		}

		attrs := []any{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", duration,
		}
		if rowsProcessed > 0 {
			attrs = append(attrs, "rows", rowsProcessed)
		}
		if errors != "" {
			logger.Warn("request", append(attrs, "errors", errors)...)
		} else {
			logger.Info("request", attrs...)
		}

		db := GetDB()
		if db == nil {
			return
		}
		metric := ApiMetric{
			RequestID:     requestID,
			Endpoint:      c.FullPath(),
			Method:        c.Request.Method,
			StatusCode:    c.Writer.Status(),
			DurationMs:    int(duration.Milliseconds()),
			RowsProcessed: rowsProcessed,
			Errors:        errors,
			Timestamp:     startTime,
		}
		go func() {
			if err := db.Create(&metric).Error; err != nil {
				logger.Warn("failed to save api metric", "request_id", requestID, "error", err)
			}
		}()
	}
}

// RequestLogger returns the default logger tagged with the request id.
func RequestLogger(c *gin.Context) *slog.Logger {
	logger := slog.Default()
	if id := c.GetString("request_id"); id != "" {
		logger = logger.With("request_id", id)
	}
	return logger
}
