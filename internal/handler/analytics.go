package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backend/internal/aggregator"
	"backend/internal/models"
	"backend/internal/repository"
)

type AnalyticsHandler interface {
	GetSummary(c *gin.Context)
	Recompute(c *gin.Context)
}

type analyticsHandler struct {
	summaryRepo repository.SummaryRepository
	aggregator  *aggregator.Aggregator
	window      time.Duration
	logger      *zap.Logger
}

func NewAnalyticsHandler(summaryRepo repository.SummaryRepository, agg *aggregator.Aggregator, window time.Duration, logger *zap.Logger) AnalyticsHandler {
	return &analyticsHandler{
		summaryRepo: summaryRepo,
		aggregator:  agg,
		window:      window,
		logger:      logger,
	}
}

// resolveWindow turns optional RFC3339 start/end strings into a concrete
// window, defaulting to the most recent fully elapsed one.
func (h *analyticsHandler) resolveWindow(rawStart, rawEnd string) (time.Time, time.Time, error) {
	start, end := aggregator.AlignedWindow(time.Now().UTC(), h.window)

	if rawStart != "" {
		parsed, err := time.Parse(time.RFC3339, rawStart)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("window_start must be RFC3339")
		}
		start = parsed
		end = parsed.Add(h.window)
	}
	if rawEnd != "" {
		parsed, err := time.Parse(time.RFC3339, rawEnd)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("window_end must be RFC3339")
		}
		end = parsed
		if rawStart == "" {
			start = parsed.Add(-h.window)
		}
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, errors.New("window_end must be after window_start")
	}
	return start, end, nil
}

// GetSummary returns the stored summary rows for a window: all groupings
// by default, or a single one selected with topic= or student_id=.
func (h *analyticsHandler) GetSummary(c *gin.Context) {
	start, end, err := h.resolveWindow(c.Query("window_start"), c.Query("window_end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topic := c.Query("topic")
	studentID := c.Query("student_id")
	if topic != "" && studentID != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic and student_id are mutually exclusive"})
		return
	}

	var key string
	switch {
	case topic != "":
		key = models.TopicGroupingKey(topic)
	case studentID != "":
		key = models.StudentGroupingKey(studentID)
	}

	if key != "" {
		row, err := h.summaryRepo.GetSummaryByKey(start, end, key)
		if err != nil {
			h.logger.Error("Failed to load summary row",
				zap.String("grouping_key", key),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load summary"})
			return
		}
		if row == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "No summary for this window and grouping"})
			return
		}
		c.JSON(http.StatusOK, row)
		return
	}

	rows, err := h.summaryRepo.GetSummaries(start, end)
	if err != nil {
		h.logger.Error("Failed to load summaries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load summaries"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window_start": start,
		"window_end":   end,
		"summaries":    rows,
		"count":        len(rows),
	})
}

type recomputeRequest struct {
	WindowStart string `json:"window_start"`
	WindowEnd   string `json:"window_end"`
	StudentID   string `json:"student_id"`
}

// Recompute rebuilds a window's summaries on demand, ahead of the
// scheduled run. An empty body recomputes the previous aligned window.
func (h *analyticsHandler) Recompute(c *gin.Context) {
	var req recomputeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, end, err := h.resolveWindow(req.WindowStart, req.WindowEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.StudentID != "" {
		if err := h.aggregator.RecomputeStudent(start, end, req.StudentID); err != nil {
			h.logger.Error("Failed to recompute student summary",
				zap.String("student_id", req.StudentID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute summary"})
			return
		}
	} else if err := h.aggregator.Recompute(start, end); err != nil {
		h.logger.Error("Failed to recompute window", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to recompute summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"window_start": start,
		"window_end":   end,
		"recomputed":   true,
	})
}
