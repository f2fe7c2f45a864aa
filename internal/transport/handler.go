package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-image-stitcher/internal/config"
	apperrors "go-image-stitcher/internal/errors"
	"go-image-stitcher/internal/logger"
	"go-image-stitcher/internal/observer"
	"go-image-stitcher/internal/service"
	"go-image-stitcher/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Response headers describing a stitched image returned as the body
const (
	HeaderJobID   = "X-Stitch-Job-ID"
	HeaderHeight  = "X-Stitch-Height"
	HeaderShifts  = "X-Stitch-Shifts"
	HeaderDropped = "X-Stitch-Dropped"
	HeaderWarning = "X-Stitch-Warning"
)

func NewHandler(svc service.StitchService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	r.GET("/metrics", metricsHandler(metrics))
	r.POST("/stitch", stitchImages(svc, cfg))
	r.GET("/jobs", listJobs(svc))
	r.GET("/jobs/:id", getJob(svc))

	return r
}

func stitchImages(svc service.StitchService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		// Log request start
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
		}).Info("Processing stitch request")

		var req models.StitchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"ip": c.ClientIP(),
			}).Error("Invalid request format")
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		out, err := svc.Stitch(ctx, req)
		if err != nil {
			respondError(c, determineStatusCode(err), "stitch failed", err)
			return
		}

		resp := out.Response
		logger.WithFields(logrus.Fields{
			"job_id":             resp.JobID,
			"frames":             resp.FrameCount,
			"dropped":            len(resp.DroppedFrames),
			"height":             resp.Height,
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}).Info("Stitch completed successfully")

		if req.Upload {
			c.JSON(http.StatusOK, resp)
			return
		}

		c.Header(HeaderJobID, resp.JobID)
		c.Header(HeaderHeight, strconv.Itoa(resp.Height))
		c.Header(HeaderShifts, joinShifts(resp.Alignments))
		if len(resp.DroppedFrames) > 0 {
			c.Header(HeaderDropped, joinInts(resp.DroppedFrames))
		}
		for _, w := range resp.Warnings {
			c.Writer.Header().Add(HeaderWarning, w)
		}
		c.Data(http.StatusOK, resp.ContentType, out.Encoded)
	}
}

func getJob(svc service.StitchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		job, err := svc.GetJob(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to load job", err)
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func listJobs(svc service.StitchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 50
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				respondError(c, http.StatusBadRequest, "invalid limit",
					apperrors.NewValidationError(fmt.Sprintf("limit must be a positive integer (got %q)", raw), err))
				return
			}
			limit = n
		}
		jobs, err := svc.ListJobs(c.Request.Context(), limit)
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to list jobs", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"jobs": jobs})
	}
}

func metricsHandler(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	// Log the error with context
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		resp.Type = string(appErr.Type)
		if appErr.ImageIndex != apperrors.NoIndex {
			index := appErr.ImageIndex
			resp.ImageIndex = &index
		}
	}
	c.AbortWithStatusJSON(code, resp)
}

func joinShifts(alignments []models.FrameAlignment) string {
	shifts := make([]int, len(alignments))
	for i, a := range alignments {
		shifts[i] = a.Shift
	}
	return joinInts(shifts)
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
