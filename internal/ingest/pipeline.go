package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"backend/internal/classifier"
	"backend/internal/models"
	"backend/internal/moderation"
	"backend/internal/ratelimit"
	"backend/internal/repository"
)

var (
	// ErrRateLimited is returned when a student has exhausted their turn
	// budget for the current window. The turn is not persisted.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrInvalidRole is returned for turn roles other than student or tutor.
	ErrInvalidRole = errors.New("invalid turn role")
)

// Notifier receives flagged turns that meet the alert severity threshold.
type Notifier interface {
	NotifyFlag(ctx context.Context, turn *models.ConversationTurn, flag *models.FlaggedItem)
}

// Request is a single turn submitted for ingestion.
type Request struct {
	SessionID      string `json:"session_id"`
	Role           string `json:"role" binding:"required"`
	Message        string `json:"message" binding:"required"`
	TokensEst      *int   `json:"tokens_est"`
	ResponseTimeMS *int   `json:"response_time_ms"`
}

// Result reports what ingestion did with a turn. Remaining is the
// student's leftover turn budget in the current window.
type Result struct {
	TurnID    int64
	SessionID string
	Flagged   bool
	Remaining int
}

// Pipeline runs every accepted turn through the same sequence: rate
// admission, classification, safety screening, then one atomic write.
// A turn is either fully recorded or not recorded at all.
type Pipeline struct {
	limiter        *ratelimit.Limiter
	classifier     classifier.Classifier
	filter         *moderation.Filter
	turnRepo       repository.TurnRepository
	notifier       Notifier
	notifySeverity string
	logger         *zap.Logger
}

func NewPipeline(
	limiter *ratelimit.Limiter,
	cls classifier.Classifier,
	filter *moderation.Filter,
	turnRepo repository.TurnRepository,
	notifier Notifier,
	notifySeverity string,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		limiter:        limiter,
		classifier:     cls,
		filter:         filter,
		turnRepo:       turnRepo,
		notifier:       notifier,
		notifySeverity: notifySeverity,
		logger:         logger,
	}
}

// Ingest processes one turn on behalf of the authenticated identity.
// Tutor turns bypass rate limiting; only student-authored turns consume
// the student's budget.
func (p *Pipeline) Ingest(ctx context.Context, identity *models.Identity, req *Request) (*Result, error) {
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != models.RoleStudent && role != models.RoleTutor {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, req.Role)
	}

	if role == models.RoleStudent && !p.limiter.Admit(identity.StudentID) {
		p.logger.Warn("Turn rejected by rate limiter",
			zap.String("student_id", identity.StudentID))
		return nil, ErrRateLimited
	}

	labels := p.safeClassify(req.Message, role)
	signal := p.filter.Evaluate(req.Message)

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	turn := &models.ConversationTurn{
		StudentID:      identity.StudentID,
		SessionID:      sessionID,
		Role:           role,
		Message:        req.Message,
		Topic:          labels.Topic,
		Sentiment:      labels.Sentiment,
		QuestionType:   labels.QuestionType,
		SafetyFlagged:  signal.Flagged,
		TokensEst:      req.TokensEst,
		ResponseTimeMS: req.ResponseTimeMS,
	}

	var flag *models.FlaggedItem
	if signal.Flagged {
		reason := signal.Reason
		turn.SafetyReason = &reason
		flag = &models.FlaggedItem{
			StudentID: identity.StudentID,
			Reason:    signal.Reason,
			Severity:  signal.Severity,
			Status:    models.FlagStatusUnreviewed,
		}
	}

	email := identity.Email
	student := &models.Student{
		StudentID: identity.StudentID,
		Name:      identity.Name,
	}
	if email != "" {
		student.Email = &email
	}

	if err := p.turnRepo.SaveTurn(turn, flag, student); err != nil {
		p.logger.Error("Failed to persist turn",
			zap.String("student_id", identity.StudentID),
			zap.String("session_id", sessionID),
			zap.Error(err))
		return nil, fmt.Errorf("save turn: %w", err)
	}

	if flag != nil {
		p.logger.Warn("Turn flagged",
			zap.Int64("turn_id", turn.ID),
			zap.String("student_id", identity.StudentID),
			zap.String("reason", flag.Reason),
			zap.String("severity", flag.Severity))
		p.maybeNotify(ctx, turn, flag)
	}

	return &Result{
		TurnID:    turn.ID,
		SessionID: sessionID,
		Flagged:   signal.Flagged,
		Remaining: p.limiter.Remaining(identity.StudentID),
	}, nil
}

// safeClassify shields ingestion from classifier faults: a panic is
// recovered and the turn proceeds with degraded labels.
func (p *Pipeline) safeClassify(text, role string) (labels models.Labels) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Classifier panicked, using degraded labels",
				zap.Any("panic", r))
			labels = classifier.DegradedLabels()
		}
	}()
	return p.classifier.Classify(text, role)
}

func (p *Pipeline) maybeNotify(ctx context.Context, turn *models.ConversationTurn, flag *models.FlaggedItem) {
	if p.notifier == nil {
		return
	}
	threshold := models.SeverityRank(p.notifySeverity)
	if threshold < 0 || models.SeverityRank(flag.Severity) < threshold {
		return
	}
	// The turn is already committed; a client disconnect must not
	// suppress the alert.
	p.notifier.NotifyFlag(context.WithoutCancel(ctx), turn, flag)
}
