package models

import "time"

// Student represents a learner stored in the 'students' table.
// Rows are created on first observed turn and never deleted by the engine.
type Student struct {
	StudentID    string    `db:"student_id" json:"student_id"`
	Name         string    `db:"name" json:"name"`
	Email        *string   `db:"email" json:"email,omitempty"`
	EnrolledAt   time.Time `db:"enrolled_at" json:"enrolled_at"`
	LastActiveAt time.Time `db:"last_active_at" json:"last_active_at"`
	TotalTurns   int64     `db:"total_turns" json:"total_turns"`
}
