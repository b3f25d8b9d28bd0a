package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"backend/internal/models"
	"backend/internal/service"
)

type AuthHandler interface {
	MintToken(c *gin.Context)
}

type authHandler struct {
	authService service.AuthService
	log         *logrus.Logger
}

func NewAuthHandler(authService service.AuthService, log *logrus.Logger) AuthHandler {
	return &authHandler{authService: authService, log: log}
}

// MintToken exchanges a signed platform webhook payload for a bearer
// token. The raw body is read before decoding because the signature
// covers the exact bytes sent.
func (h *authHandler) MintToken(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	signature := c.GetHeader("X-Signature")
	token, identity, expiresAt, err := h.authService.MintToken(payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			h.log.Warnf("Token mint rejected: bad signature from %s", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid signature"})
		case errors.Is(err, service.ErrMissingFields):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Payload must include a user id and email"})
		default:
			h.log.Errorf("Failed to mint token: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to mint token"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(time.Until(expiresAt).Seconds()),
		"role":       identity.Role,
		"is_admin":   identity.Role == models.RoleAdmin,
	})
}
