package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backend/internal/middleware"
	"backend/internal/repository"
	"backend/internal/service"
)

const defaultHistoryLimit = 50

type HistoryHandler interface {
	GetHistory(c *gin.Context)
}

type historyHandler struct {
	turnRepo    repository.TurnRepository
	authService service.AuthService
	logger      *zap.Logger
}

func NewHistoryHandler(turnRepo repository.TurnRepository, authService service.AuthService, logger *zap.Logger) HistoryHandler {
	return &historyHandler{turnRepo: turnRepo, authService: authService, logger: logger}
}

// GetHistory returns a student's recent turns, oldest first. Students
// may only read their own history; admins may read anyone's.
func (h *historyHandler) GetHistory(c *gin.Context) {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	studentID := c.Query("student_id")
	if studentID == "" {
		studentID = identity.StudentID
	}

	if err := h.authService.AuthorizeStudent(identity, studentID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot read another student's history"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 500"})
			return
		}
		limit = parsed
	}

	turns, err := h.turnRepo.GetTurnsByStudent(studentID, limit)
	if err != nil {
		h.logger.Error("Failed to load history",
			zap.String("student_id", studentID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load history"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"student_id": studentID,
		"turns":      turns,
		"count":      len(turns),
	})
}
