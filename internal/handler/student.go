package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"backend/internal/repository"
)

type StudentHandler interface {
	ListStudents(c *gin.Context)
	GetStudent(c *gin.Context)
}

type studentHandler struct {
	studentRepo repository.StudentRepository
	logger      *zap.Logger
}

func NewStudentHandler(studentRepo repository.StudentRepository, logger *zap.Logger) StudentHandler {
	return &studentHandler{studentRepo: studentRepo, logger: logger}
}

// ListStudents returns the roster for the admin dashboard.
func (h *studentHandler) ListStudents(c *gin.Context) {
	limit := 100
	offset := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 1000 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer between 1 and 1000"})
			return
		}
		limit = parsed
	}
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}
		offset = parsed
	}

	students, err := h.studentRepo.GetAllStudents(limit, offset)
	if err != nil {
		h.logger.Error("Failed to list students", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list students"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"students": students,
		"count":    len(students),
	})
}

func (h *studentHandler) GetStudent(c *gin.Context) {
	studentID := c.Param("id")

	student, err := h.studentRepo.GetStudentByID(studentID)
	if err != nil {
		h.logger.Error("Failed to load student",
			zap.String("student_id", studentID),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load student"})
		return
	}
	if student == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		return
	}

	c.JSON(http.StatusOK, student)
}
