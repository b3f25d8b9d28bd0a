package repository

import (
	"database/sql"
	"fmt"
	"time"

	"backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type TurnRepository interface {
	// SaveTurn persists the turn, its optional flag, and the student upsert
	// in a single transaction. Either everything lands or nothing does.
	SaveTurn(turn *models.ConversationTurn, flag *models.FlaggedItem, student *models.Student) error
	GetTurnByID(id int64) (*models.ConversationTurn, error)
	GetTurnsByStudent(studentID string, limit int) ([]*models.ConversationTurn, error)
	GetTurnsInWindow(start, end time.Time) ([]*models.ConversationTurn, error)
	GetTurnsByStudentInWindow(studentID string, start, end time.Time) ([]*models.ConversationTurn, error)
}

type turnRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewTurnRepository(db *sqlx.DB, logger *zap.Logger) TurnRepository {
	return &turnRepository{db: db, logger: logger}
}

func (r *turnRepository) SaveTurn(turn *models.ConversationTurn, flag *models.FlaggedItem, student *models.Student) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin turn transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	upsert := `INSERT INTO students (student_id, name, email)
	           VALUES ($1, $2, $3)
	           ON CONFLICT (student_id) DO UPDATE SET
	               name = COALESCE(NULLIF(EXCLUDED.name, ''), students.name),
	               email = COALESCE(EXCLUDED.email, students.email)`
	if _, err := tx.Exec(upsert, student.StudentID, student.Name, student.Email); err != nil {
		return fmt.Errorf("upsert student: %w", err)
	}

	touch := `UPDATE students SET total_turns = total_turns + 1, last_active_at = now() WHERE student_id = $1`
	if _, err := tx.Exec(touch, student.StudentID); err != nil {
		return fmt.Errorf("touch student: %w", err)
	}

	insertTurn := `INSERT INTO conversation_turns
	               (student_id, session_id, role, message, topic, sentiment, question_type, safety_flagged, safety_reason, tokens_est, response_time_ms)
	               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	               RETURNING id, created_at`
	if err := tx.QueryRowx(insertTurn,
		turn.StudentID, turn.SessionID, turn.Role, turn.Message,
		turn.Topic, turn.Sentiment, turn.QuestionType,
		turn.SafetyFlagged, turn.SafetyReason, turn.TokensEst, turn.ResponseTimeMS,
	).Scan(&turn.ID, &turn.CreatedAt); err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	if flag != nil {
		flag.TurnID = turn.ID
		insertFlag := `INSERT INTO flagged_items (turn_id, student_id, reason, severity, status)
		               VALUES ($1, $2, $3, $4, $5)
		               RETURNING id, flagged_at`
		if err := tx.QueryRowx(insertFlag,
			flag.TurnID, flag.StudentID, flag.Reason, flag.Severity, flag.Status,
		).Scan(&flag.ID, &flag.FlaggedAt); err != nil {
			return fmt.Errorf("insert flag: %w", err)
		}
	}

	return tx.Commit()
}

func (r *turnRepository) GetTurnByID(id int64) (*models.ConversationTurn, error) {
	var turn models.ConversationTurn
	query := `SELECT * FROM conversation_turns WHERE id = $1`
	err := r.db.Get(&turn, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &turn, nil
}

// GetTurnsByStudent returns the student's most recent turns, oldest first.
func (r *turnRepository) GetTurnsByStudent(studentID string, limit int) ([]*models.ConversationTurn, error) {
	var turns []*models.ConversationTurn
	query := `SELECT * FROM (
	              SELECT * FROM conversation_turns
	              WHERE student_id = $1
	              ORDER BY created_at DESC, id DESC
	              LIMIT $2
	          ) recent ORDER BY created_at ASC, id ASC`
	err := r.db.Select(&turns, query, studentID, limit)
	if err != nil {
		return nil, err
	}
	return turns, nil
}

func (r *turnRepository) GetTurnsInWindow(start, end time.Time) ([]*models.ConversationTurn, error) {
	var turns []*models.ConversationTurn
	query := `SELECT * FROM conversation_turns
	          WHERE created_at >= $1 AND created_at < $2
	          ORDER BY id ASC`
	err := r.db.Select(&turns, query, start, end)
	if err != nil {
		return nil, err
	}
	return turns, nil
}

func (r *turnRepository) GetTurnsByStudentInWindow(studentID string, start, end time.Time) ([]*models.ConversationTurn, error) {
	var turns []*models.ConversationTurn
	query := `SELECT * FROM conversation_turns
	          WHERE student_id = $1 AND created_at >= $2 AND created_at < $3
	          ORDER BY id ASC`
	err := r.db.Select(&turns, query, studentID, start, end)
	if err != nil {
		return nil, err
	}
	return turns, nil
}
