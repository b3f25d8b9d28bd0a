package models

import "time"

// Turn author roles. RoleStudent doubles as the non-admin identity role.
const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Question type labels. QuestionNone is the fixed value for tutor turns.
const (
	QuestionFactual   = "factual"
	QuestionOpenEnded = "open_ended"
	QuestionOther     = "other"
	QuestionNone      = "none"
)

// Labels is the classification result for a single turn.
type Labels struct {
	Topic        string `json:"topic"`
	Sentiment    string `json:"sentiment"`
	QuestionType string `json:"question_type"`
}

// ConversationTurn represents a row in the 'conversation_turns' table.
// Turns are append-only: once written they are never updated.
type ConversationTurn struct {
	ID             int64     `db:"id" json:"id"`
	StudentID      string    `db:"student_id" json:"student_id"`
	SessionID      string    `db:"session_id" json:"session_id"`
	Role           string    `db:"role" json:"role"`
	Message        string    `db:"message" json:"message"`
	Topic          string    `db:"topic" json:"topic"`
	Sentiment      string    `db:"sentiment" json:"sentiment"`
	QuestionType   string    `db:"question_type" json:"question_type"`
	SafetyFlagged  bool      `db:"safety_flagged" json:"safety_flagged"`
	SafetyReason   *string   `db:"safety_reason" json:"safety_reason,omitempty"`
	TokensEst      *int      `db:"tokens_est" json:"tokens_est,omitempty"`
	ResponseTimeMS *int      `db:"response_time_ms" json:"response_time_ms,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
