package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"backend/internal/config"
	"backend/internal/models"
)

type fakeStudentRepo struct {
	upserted []*models.Student
	err      error
}

func (f *fakeStudentRepo) UpsertStudent(student *models.Student) error {
	if f.err != nil {
		return f.err
	}
	f.upserted = append(f.upserted, student)
	return nil
}

func (f *fakeStudentRepo) GetStudentByID(studentID string) (*models.Student, error) {
	return nil, nil
}

func (f *fakeStudentRepo) GetAllStudents(limit, offset int) ([]*models.Student, error) {
	return nil, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Auth.JWTSecret = "test-secret"
	cfg.Auth.WebhookSecret = "webhook-secret"
	cfg.Auth.AdminEmails = []string{"admin@school.example"}
	cfg.Auth.TokenTTLHours = 1
	return cfg
}

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestMintAndVerifyRoundtrip(t *testing.T) {
	repo := &fakeStudentRepo{}
	auth := NewAuthService(testConfig(), repo, zap.NewNop())

	payload := []byte(`{"id": "stu-1", "email": "alice@school.example", "username": "alice"}`)
	token, identity, expiresAt, err := auth.MintToken(payload, sign("webhook-secret", payload))
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if identity.StudentID != "stu-1" || identity.Role != models.RoleStudent {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatal("token should expire in the future")
	}
	if len(repo.upserted) != 1 || repo.upserted[0].StudentID != "stu-1" {
		t.Fatalf("student should have been upserted: %+v", repo.upserted)
	}

	verified, err := auth.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if verified.StudentID != "stu-1" || verified.Email != "alice@school.example" {
		t.Fatalf("unexpected verified identity: %+v", verified)
	}
}

func TestAdminEmailGetsAdminRole(t *testing.T) {
	auth := NewAuthService(testConfig(), &fakeStudentRepo{}, zap.NewNop())

	payload := []byte(`{"id": "adm-1", "email": "Admin@School.Example"}`)
	token, identity, _, err := auth.MintToken(payload, sign("webhook-secret", payload))
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if identity.Role != models.RoleAdmin {
		t.Fatalf("expected admin role, got %q", identity.Role)
	}

	verified, err := auth.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !verified.IsAdmin() {
		t.Fatal("verified identity should be admin")
	}
}

func TestNestedWebhookPayload(t *testing.T) {
	auth := NewAuthService(testConfig(), &fakeStudentRepo{}, zap.NewNop())

	payload := []byte(`{"data": {"user": {"id": "stu-2", "email": "bob@school.example", "name": "Bob"}}}`)
	_, identity, _, err := auth.MintToken(payload, sign("webhook-secret", payload))
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if identity.StudentID != "stu-2" || identity.Name != "Bob" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestBadSignatureRejected(t *testing.T) {
	auth := NewAuthService(testConfig(), &fakeStudentRepo{}, zap.NewNop())

	payload := []byte(`{"id": "stu-1", "email": "alice@school.example"}`)
	for _, sig := range []string{"", "deadbeef", sign("wrong-secret", payload)} {
		if _, _, _, err := auth.MintToken(payload, sig); !errors.Is(err, ErrInvalidSignature) {
			t.Errorf("signature %q: expected ErrInvalidSignature, got %v", sig, err)
		}
	}
}

func TestMissingFieldsRejected(t *testing.T) {
	auth := NewAuthService(testConfig(), &fakeStudentRepo{}, zap.NewNop())

	for _, payload := range []string{
		`{"id": "stu-1"}`,
		`{"email": "alice@school.example"}`,
		`{}`,
	} {
		p := []byte(payload)
		if _, _, _, err := auth.MintToken(p, sign("webhook-secret", p)); !errors.Is(err, ErrMissingFields) {
			t.Errorf("payload %s: expected ErrMissingFields, got %v", payload, err)
		}
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	auth := NewAuthService(testConfig(), &fakeStudentRepo{}, zap.NewNop())

	if _, err := auth.VerifyToken(""); !errors.Is(err, ErrNoToken) {
		t.Errorf("empty token: expected ErrNoToken, got %v", err)
	}
	if _, err := auth.VerifyToken("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage token: expected ErrInvalidToken, got %v", err)
	}

	// Token signed with a different secret.
	claims := &models.Claims{
		StudentID: "stu-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("failed to sign forged token: %v", err)
	}
	if _, err := auth.VerifyToken(forged); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("forged token: expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	auth := NewAuthService(testConfig(), &fakeStudentRepo{}, zap.NewNop())

	claims := &models.Claims{
		StudentID: "stu-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign expired token: %v", err)
	}
	if _, err := auth.VerifyToken(expired); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestExpiryHonoredAcrossVerificationCache(t *testing.T) {
	auth := NewAuthService(testConfig(), &fakeStudentRepo{}, zap.NewNop())

	claims := &models.Claims{
		StudentID: "stu-1",
		Email:     "alice@school.example",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(500 * time.Millisecond)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	// First verification succeeds and populates the cache.
	if _, err := auth.VerifyToken(token); err != nil {
		t.Fatalf("verify before expiry failed: %v", err)
	}

	time.Sleep(time.Second)

	if _, err := auth.VerifyToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expired token must be rejected even after a cached verification, got %v", err)
	}
}

func TestAuthorizeStudent(t *testing.T) {
	auth := NewAuthService(testConfig(), &fakeStudentRepo{}, zap.NewNop())

	student := &models.Identity{StudentID: "stu-1", Role: models.RoleStudent}
	admin := &models.Identity{StudentID: "adm-1", Role: models.RoleAdmin}

	if err := auth.AuthorizeStudent(student, "stu-1"); err != nil {
		t.Errorf("own history should be allowed: %v", err)
	}
	if err := auth.AuthorizeStudent(student, "stu-2"); !errors.Is(err, ErrForbidden) {
		t.Errorf("cross-student read should be forbidden, got %v", err)
	}
	if err := auth.AuthorizeStudent(admin, "stu-2"); err != nil {
		t.Errorf("admin should read any student: %v", err)
	}
	if err := auth.AuthorizeStudent(nil, "stu-1"); !errors.Is(err, ErrForbidden) {
		t.Errorf("nil identity should be forbidden, got %v", err)
	}
}

func TestAuthorizeAdmin(t *testing.T) {
	auth := NewAuthService(testConfig(), &fakeStudentRepo{}, zap.NewNop())

	if err := auth.AuthorizeAdmin(&models.Identity{Role: models.RoleAdmin}); err != nil {
		t.Errorf("admin should pass: %v", err)
	}
	if err := auth.AuthorizeAdmin(&models.Identity{Role: models.RoleStudent}); !errors.Is(err, ErrForbidden) {
		t.Errorf("student should be forbidden, got %v", err)
	}
}
