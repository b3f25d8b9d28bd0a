package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backend/internal/ingest"
	"backend/internal/middleware"
)

type TurnHandler interface {
	SubmitTurn(c *gin.Context)
}

type turnHandler struct {
	pipeline *ingest.Pipeline
	logger   *zap.Logger
}

func NewTurnHandler(pipeline *ingest.Pipeline, logger *zap.Logger) TurnHandler {
	return &turnHandler{pipeline: pipeline, logger: logger}
}

// SubmitTurn ingests one conversation turn for the authenticated student.
func (h *turnHandler) SubmitTurn(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	var req ingest.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.pipeline.Ingest(c.Request.Context(), identity, &req)
	if err != nil {
		if errors.Is(err, ingest.ErrRateLimited) {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"accepted": false,
				"reason":   "rate_limited",
			})
			return
		}
		if errors.Is(err, ingest.ErrInvalidRole) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be student or tutor"})
			return
		}
		h.logger.Error("Failed to ingest turn",
			zap.String("student_id", identity.StudentID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record turn"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"accepted":        true,
		"turn_id":         result.TurnID,
		"session_id":      result.SessionID,
		"remaining_turns": result.Remaining,
	})
}
