package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"backend/internal/classifier"
	"backend/internal/models"
	"backend/internal/moderation"
	"backend/internal/ratelimit"
)

type fakeTurnRepo struct {
	turns    []*models.ConversationTurn
	flags    []*models.FlaggedItem
	students []*models.Student
	saveErr  error
	nextID   int64
}

func (f *fakeTurnRepo) SaveTurn(turn *models.ConversationTurn, flag *models.FlaggedItem, student *models.Student) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.nextID++
	turn.ID = f.nextID
	turn.CreatedAt = time.Now()
	f.turns = append(f.turns, turn)
	f.students = append(f.students, student)
	if flag != nil {
		flag.TurnID = turn.ID
		flag.ID = f.nextID
		flag.FlaggedAt = turn.CreatedAt
		f.flags = append(f.flags, flag)
	}
	return nil
}

func (f *fakeTurnRepo) GetTurnByID(id int64) (*models.ConversationTurn, error) { return nil, nil }
func (f *fakeTurnRepo) GetTurnsByStudent(studentID string, limit int) ([]*models.ConversationTurn, error) {
	return nil, nil
}
func (f *fakeTurnRepo) GetTurnsInWindow(start, end time.Time) ([]*models.ConversationTurn, error) {
	return nil, nil
}
func (f *fakeTurnRepo) GetTurnsByStudentInWindow(studentID string, start, end time.Time) ([]*models.ConversationTurn, error) {
	return nil, nil
}

type panickyClassifier struct{}

func (panickyClassifier) Classify(text, role string) models.Labels {
	panic("classifier exploded")
}

type recordingNotifier struct {
	flags []*models.FlaggedItem
}

func (n *recordingNotifier) NotifyFlag(ctx context.Context, turn *models.ConversationTurn, flag *models.FlaggedItem) {
	n.flags = append(n.flags, flag)
}

func studentIdentity() *models.Identity {
	return &models.Identity{StudentID: "stu-1", Email: "alice@school.example", Name: "alice", Role: models.RoleStudent}
}

func newTestPipeline(repo *fakeTurnRepo, notifier Notifier) *Pipeline {
	return NewPipeline(
		ratelimit.New(60*time.Second, 5),
		classifier.NewRuleClassifier(nil, zap.NewNop()),
		moderation.NewFilter(),
		repo,
		notifier,
		models.SeverityHigh,
		zap.NewNop(),
	)
}

func TestIngestPersistsClassifiedTurn(t *testing.T) {
	repo := &fakeTurnRepo{}
	p := newTestPipeline(repo, nil)

	result, err := p.Ingest(context.Background(), studentIdentity(), &Request{
		Role:    models.RoleStudent,
		Message: "Can you explain this algebra equation?",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if result.TurnID == 0 || result.SessionID == "" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Flagged {
		t.Fatal("clean message should not be flagged")
	}
	if result.Remaining != 4 {
		t.Fatalf("one admitted turn out of 5 should leave 4, got %d", result.Remaining)
	}

	if len(repo.turns) != 1 {
		t.Fatalf("expected 1 persisted turn, got %d", len(repo.turns))
	}
	turn := repo.turns[0]
	if turn.Topic != "math" {
		t.Errorf("expected topic math, got %q", turn.Topic)
	}
	if turn.QuestionType != models.QuestionOpenEnded {
		t.Errorf("expected open_ended, got %q", turn.QuestionType)
	}
	if turn.SafetyFlagged {
		t.Error("turn should not carry a safety flag")
	}
	if len(repo.flags) != 0 {
		t.Errorf("no flag row expected, got %d", len(repo.flags))
	}
}

func TestIngestKeepsClientSessionID(t *testing.T) {
	repo := &fakeTurnRepo{}
	p := newTestPipeline(repo, nil)

	result, err := p.Ingest(context.Background(), studentIdentity(), &Request{
		SessionID: "sess-42",
		Role:      models.RoleTutor,
		Message:   "Let's review fractions today.",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if result.SessionID != "sess-42" {
		t.Fatalf("expected session sess-42, got %q", result.SessionID)
	}
	if repo.turns[0].QuestionType != models.QuestionNone {
		t.Errorf("tutor turn should have question type none, got %q", repo.turns[0].QuestionType)
	}
}

func TestRateLimitedTurnNotPersisted(t *testing.T) {
	repo := &fakeTurnRepo{}
	p := NewPipeline(
		ratelimit.New(60*time.Second, 1),
		classifier.NewRuleClassifier(nil, zap.NewNop()),
		moderation.NewFilter(),
		repo,
		nil,
		models.SeverityHigh,
		zap.NewNop(),
	)

	if _, err := p.Ingest(context.Background(), studentIdentity(), &Request{Role: models.RoleStudent, Message: "first"}); err != nil {
		t.Fatalf("first turn should pass: %v", err)
	}
	_, err := p.Ingest(context.Background(), studentIdentity(), &Request{Role: models.RoleStudent, Message: "second"})
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if len(repo.turns) != 1 {
		t.Fatalf("rejected turn must not be persisted, have %d turns", len(repo.turns))
	}

	// Tutor turns bypass the limiter entirely.
	if _, err := p.Ingest(context.Background(), studentIdentity(), &Request{Role: models.RoleTutor, Message: "tutor reply"}); err != nil {
		t.Fatalf("tutor turn should bypass the limiter: %v", err)
	}
}

func TestUnknownRoleRejected(t *testing.T) {
	repo := &fakeTurnRepo{}
	p := newTestPipeline(repo, nil)

	if _, err := p.Ingest(context.Background(), studentIdentity(), &Request{Role: "observer", Message: "hi"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected ErrInvalidRole, got %v", err)
	}
	if len(repo.turns) != 0 {
		t.Fatal("nothing should be persisted for a rejected role")
	}
}

func TestFlaggedTurnCreatesUnreviewedFlag(t *testing.T) {
	repo := &fakeTurnRepo{}
	notifier := &recordingNotifier{}
	p := newTestPipeline(repo, notifier)

	result, err := p.Ingest(context.Background(), studentIdentity(), &Request{
		Role:    models.RoleStudent,
		Message: "I feel hopeless",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if !result.Flagged {
		t.Fatal("result should report the flag")
	}

	if len(repo.flags) != 1 {
		t.Fatalf("expected 1 flag row, got %d", len(repo.flags))
	}
	flag := repo.flags[0]
	if flag.Status != models.FlagStatusUnreviewed {
		t.Errorf("new flags start unreviewed, got %q", flag.Status)
	}
	if flag.Severity != models.SeverityCritical {
		t.Errorf("expected critical severity, got %q", flag.Severity)
	}
	if flag.TurnID != result.TurnID {
		t.Errorf("flag should reference the turn: %d vs %d", flag.TurnID, result.TurnID)
	}
	if repo.turns[0].SafetyReason == nil || *repo.turns[0].SafetyReason == "" {
		t.Error("turn should carry the safety reason")
	}

	// Critical meets the high threshold.
	if len(notifier.flags) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.flags))
	}
}

func TestNotifierSkippedBelowThreshold(t *testing.T) {
	repo := &fakeTurnRepo{}
	notifier := &recordingNotifier{}
	p := newTestPipeline(repo, notifier)

	// Spam flags at low severity, under the high threshold.
	_, err := p.Ingest(context.Background(), studentIdentity(), &Request{
		Role:    models.RoleStudent,
		Message: "hello hello hello hello hello hello",
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if len(repo.flags) != 1 {
		t.Fatalf("flag row still expected, got %d", len(repo.flags))
	}
	if len(notifier.flags) != 0 {
		t.Fatalf("low severity must not notify, got %d notifications", len(notifier.flags))
	}
}

func TestClassifierPanicYieldsDegradedLabels(t *testing.T) {
	repo := &fakeTurnRepo{}
	p := NewPipeline(
		ratelimit.New(60*time.Second, 5),
		panickyClassifier{},
		moderation.NewFilter(),
		repo,
		nil,
		models.SeverityHigh,
		zap.NewNop(),
	)

	result, err := p.Ingest(context.Background(), studentIdentity(), &Request{
		Role:    models.RoleStudent,
		Message: "help me with math",
	})
	if err != nil {
		t.Fatalf("ingest should survive a classifier panic: %v", err)
	}
	if result.TurnID == 0 {
		t.Fatal("turn should still be persisted")
	}

	degraded := classifier.DegradedLabels()
	turn := repo.turns[0]
	if turn.Topic != degraded.Topic || turn.Sentiment != degraded.Sentiment || turn.QuestionType != degraded.QuestionType {
		t.Fatalf("expected degraded labels, got %+v", turn)
	}
}

func TestSaveErrorPropagates(t *testing.T) {
	repo := &fakeTurnRepo{saveErr: errors.New("db down")}
	p := newTestPipeline(repo, nil)

	if _, err := p.Ingest(context.Background(), studentIdentity(), &Request{Role: models.RoleStudent, Message: "hi there"}); err == nil {
		t.Fatal("save failure should surface to the caller")
	}
}
