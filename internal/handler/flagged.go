package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backend/internal/middleware"
	"backend/internal/models"
	"backend/internal/repository"
)

const defaultFlagLimit = 100

type FlaggedHandler interface {
	ListFlagged(c *gin.Context)
	GetFlagged(c *gin.Context)
	UpdateFlagStatus(c *gin.Context)
}

type flaggedHandler struct {
	flagRepo repository.FlagRepository
	turnRepo repository.TurnRepository
	logger   *zap.Logger
}

func NewFlaggedHandler(flagRepo repository.FlagRepository, turnRepo repository.TurnRepository, logger *zap.Logger) FlaggedHandler {
	return &flaggedHandler{flagRepo: flagRepo, turnRepo: turnRepo, logger: logger}
}

// ListFlagged returns flagged items for review, newest first, optionally
// filtered by status.
func (h *flaggedHandler) ListFlagged(c *gin.Context) {
	limit := defaultFlagLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
			return
		}
		limit = parsed
	}

	status := strings.TrimSpace(c.Query("status"))
	var (
		flags []*models.FlaggedItem
		err   error
	)
	if status != "" {
		if !models.ValidFlagStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown flag status: " + status})
			return
		}
		flags, err = h.flagRepo.GetFlagsByStatus(status, limit)
	} else {
		flags, err = h.flagRepo.GetAllFlags(limit)
	}
	if err != nil {
		h.logger.Error("Failed to list flagged items", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list flagged items"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"flags": flags,
		"count": len(flags),
	})
}

// GetFlagged returns one flagged item together with the turn it refers
// to, so reviewers see the message text in context.
func (h *flaggedHandler) GetFlagged(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flag ID"})
		return
	}

	flag, err := h.flagRepo.GetFlagByID(id)
	if err != nil {
		h.logger.Error("Failed to load flagged item",
			zap.Int64("flag_id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load flagged item"})
		return
	}
	if flag == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flagged item not found"})
		return
	}

	turn, err := h.turnRepo.GetTurnByID(flag.TurnID)
	if err != nil {
		h.logger.Error("Failed to load flagged turn",
			zap.Int64("turn_id", flag.TurnID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load flagged item"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"flag": flag,
		"turn": turn,
	})
}

type updateFlagStatusRequest struct {
	Status     string `json:"status" binding:"required"`
	ReviewedBy string `json:"reviewed_by"`
}

// UpdateFlagStatus records a review decision on a flagged item. The
// decision never alters the underlying turn or any computed analytics.
func (h *flaggedHandler) UpdateFlagStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid flag ID"})
		return
	}

	var req updateFlagStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidFlagStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown flag status: " + req.Status})
		return
	}

	reviewedBy := req.ReviewedBy
	if reviewedBy == "" {
		if identity := middleware.IdentityFrom(c); identity != nil {
			reviewedBy = identity.Email
		}
	}

	if err := h.flagRepo.UpdateFlagStatus(id, req.Status, reviewedBy); err != nil {
		if errors.Is(err, repository.ErrFlagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Flagged item not found"})
			return
		}
		h.logger.Error("Failed to update flag status",
			zap.Int64("flag_id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update flag status"})
		return
	}

	flag, err := h.flagRepo.GetFlagByID(id)
	if err != nil {
		h.logger.Error("Failed to reload flag after update",
			zap.Int64("flag_id", id),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load flagged item"})
		return
	}

	c.JSON(http.StatusOK, flag)
}
