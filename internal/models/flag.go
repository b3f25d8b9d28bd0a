package models

import "time"

// Flag review statuses. Only admin review moves a flag out of 'unreviewed'.
const (
	FlagStatusUnreviewed          = "unreviewed"
	FlagStatusReviewedOK          = "reviewed_ok"
	FlagStatusReviewedActionTaken = "reviewed_action_taken"
)

// Flag severities, ordered from least to most serious.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

var severityRank = map[string]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// SeverityRank returns the ordering rank of a severity, -1 for unknown values.
func SeverityRank(severity string) int {
	if rank, ok := severityRank[severity]; ok {
		return rank
	}
	return -1
}

// ValidFlagStatus reports whether status is one of the accepted review states.
func ValidFlagStatus(status string) bool {
	switch status {
	case FlagStatusUnreviewed, FlagStatusReviewedOK, FlagStatusReviewedActionTaken:
		return true
	}
	return false
}

// FlaggedItem represents a row in the 'flagged_items' table. Created only by
// the moderation path; review fields are mutated only by admin action.
type FlaggedItem struct {
	ID         int64      `db:"id" json:"id"`
	TurnID     int64      `db:"turn_id" json:"turn_id"`
	StudentID  string     `db:"student_id" json:"student_id"`
	Reason     string     `db:"reason" json:"reason"`
	Severity   string     `db:"severity" json:"severity"`
	Status     string     `db:"status" json:"status"`
	FlaggedAt  time.Time  `db:"flagged_at" json:"flagged_at"`
	ReviewedBy *string    `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time `db:"reviewed_at" json:"reviewed_at,omitempty"`
}
