package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"backend/internal/config"
	"backend/internal/models"
	"backend/internal/repository"
)

const verifyCacheTTL = 5 * time.Minute

var (
	ErrNoToken          = errors.New("no token provided")
	ErrInvalidToken     = errors.New("invalid token")
	ErrTokenExpired     = errors.New("token expired")
	ErrForbidden        = errors.New("insufficient scope")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrMissingFields    = errors.New("missing required fields")
)

// AuthService is the access gate: it verifies bearer tokens, resolves the
// caller's role, mints tokens for the learning platform's webhook, and
// enforces read scopes.
type AuthService interface {
	VerifyToken(tokenString string) (*models.Identity, error)
	MintToken(payload []byte, signature string) (string, *models.Identity, time.Time, error)
	AuthorizeStudent(identity *models.Identity, studentID string) error
	AuthorizeAdmin(identity *models.Identity) error
}

type authService struct {
	jwtSecret     []byte
	webhookSecret string
	adminEmails   map[string]struct{}
	tokenTTL      time.Duration
	verifyCache   *cache.Cache
	studentRepo   repository.StudentRepository
	logger        *zap.Logger
}

func NewAuthService(cfg *config.Config, studentRepo repository.StudentRepository, logger *zap.Logger) AuthService {
	adminEmails := make(map[string]struct{}, len(cfg.Auth.AdminEmails))
	for _, email := range cfg.Auth.AdminEmails {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			adminEmails[email] = struct{}{}
		}
	}

	ttl := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour

	return &authService{
		jwtSecret:     []byte(cfg.Auth.JWTSecret),
		webhookSecret: cfg.Auth.WebhookSecret,
		adminEmails:   adminEmails,
		tokenTTL:      ttl,
		// Non-authoritative: a miss just re-verifies, and each entry's
		// TTL is capped at the token's own expiry.
		verifyCache: cache.New(verifyCacheTTL, 10*time.Minute),
		studentRepo: studentRepo,
		logger:      logger,
	}
}

func (s *authService) isAdminEmail(email string) bool {
	_, ok := s.adminEmails[strings.ToLower(email)]
	return email != "" && ok
}

// VerifyToken checks the token's signature and expiry and resolves the
// caller's identity. The role comes from the admin allow-list, not from
// the token, so revoking admin access doesn't require token rotation.
func (s *authService) VerifyToken(tokenString string) (*models.Identity, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	if cached, ok := s.verifyCache.Get(tokenString); ok {
		identity := cached.(models.Identity)
		return &identity, nil
	}

	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	identity := models.Identity{
		StudentID: claims.StudentID,
		Email:     claims.Email,
		Name:      claims.Name,
		Role:      models.RoleStudent,
	}
	if s.isAdminEmail(claims.Email) {
		identity.Role = models.RoleAdmin
	}

	// Cache no longer than the token itself is valid, so a hit can never
	// outlive the expiry check.
	ttl := verifyCacheTTL
	if claims.ExpiresAt != nil {
		if until := time.Until(claims.ExpiresAt.Time); until < ttl {
			ttl = until
		}
	}
	if ttl > 0 {
		s.verifyCache.Set(tokenString, identity, ttl)
	}
	return &identity, nil
}

// webhookUser matches the platform webhook payload: either a flat user
// object or one nested under data.user.
type webhookUser struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Email     string `json:"email"`
	Username  string `json:"username"`
	Name      string `json:"name"`
	FullName  string `json:"full_name"`
}

type webhookPayload struct {
	webhookUser
	Data struct {
		User webhookUser `json:"user"`
	} `json:"data"`
}

// MintToken verifies the platform webhook signature and issues a bearer
// token for the user in the payload. Students are upserted on first
// contact so the roster exists before their first turn.
func (s *authService) MintToken(payload []byte, signature string) (string, *models.Identity, time.Time, error) {
	if !s.verifySignature(payload, signature) {
		return "", nil, time.Time{}, ErrInvalidSignature
	}

	var body webhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", nil, time.Time{}, fmt.Errorf("decode webhook payload: %w", err)
	}

	user := body.webhookUser
	if user.ID == "" && user.StudentID == "" && user.Email == "" {
		user = body.Data.User
	}

	studentID := user.ID
	if studentID == "" {
		studentID = user.StudentID
	}
	name := firstNonEmpty(user.Username, user.Name, user.FullName)

	if studentID == "" || user.Email == "" {
		return "", nil, time.Time{}, ErrMissingFields
	}

	identity := &models.Identity{
		StudentID: studentID,
		Email:     user.Email,
		Name:      name,
		Role:      models.RoleStudent,
	}
	if s.isAdminEmail(user.Email) {
		identity.Role = models.RoleAdmin
	} else {
		email := user.Email
		student := &models.Student{StudentID: studentID, Name: name, Email: &email}
		if err := s.studentRepo.UpsertStudent(student); err != nil {
			s.logger.Error("Failed to upsert student during token mint",
				zap.String("student_id", studentID), zap.Error(err))
			return "", nil, time.Time{}, fmt.Errorf("upsert student: %w", err)
		}
	}

	expiresAt := time.Now().Add(s.tokenTTL)
	claims := &models.Claims{
		StudentID: identity.StudentID,
		Email:     identity.Email,
		Name:      identity.Name,
		Role:      identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		s.logger.Error("Failed to sign token", zap.Error(err))
		return "", nil, time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info("Token minted",
		zap.String("student_id", identity.StudentID),
		zap.String("role", identity.Role))
	return tokenString, identity, expiresAt, nil
}

func (s *authService) verifySignature(payload []byte, signature string) bool {
	if s.webhookSecret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.TrimSpace(signature)))
}

// AuthorizeStudent allows admins to read any student and students to read
// only themselves.
func (s *authService) AuthorizeStudent(identity *models.Identity, studentID string) error {
	if identity == nil {
		return ErrForbidden
	}
	if identity.IsAdmin() {
		return nil
	}
	if identity.StudentID != "" && identity.StudentID == studentID {
		return nil
	}
	return ErrForbidden
}

// AuthorizeAdmin gates cross-student reads and review mutations.
func (s *authService) AuthorizeAdmin(identity *models.Identity) error {
	if identity == nil || !identity.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
