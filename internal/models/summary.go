package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Summary grouping keys.
const GroupingGlobal = "global"

// TopicGroupingKey builds the grouping key for a per-topic summary row.
func TopicGroupingKey(topic string) string {
	return "topic:" + topic
}

// StudentGroupingKey builds the grouping key for a per-student summary row.
func StudentGroupingKey(studentID string) string {
	return "student:" + studentID
}

// TopicCounts maps topic name to turn count, stored as JSONB.
type TopicCounts map[string]int

func (t TopicCounts) Value() (driver.Value, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t)
}

func (t *TopicCounts) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = TopicCounts{}
		return nil
	case []byte:
		return json.Unmarshal(v, t)
	case string:
		return json.Unmarshal([]byte(v), t)
	}
	return fmt.Errorf("cannot scan %T into TopicCounts", src)
}

// AnalyticsSummary represents a row in the 'analytics_summaries' table.
// Summaries are a cache derived from conversation turns: recomputing a
// window over unchanged turns must produce identical rows.
type AnalyticsSummary struct {
	WindowStart          time.Time   `db:"window_start" json:"window_start"`
	WindowEnd            time.Time   `db:"window_end" json:"window_end"`
	GroupingKey          string      `db:"grouping_key" json:"grouping_key"`
	TotalTurns           int         `db:"total_turns" json:"total_turns"`
	TotalSessions        int         `db:"total_sessions" json:"total_sessions"`
	AvgTurnsPerSession   float64     `db:"avg_turns_per_session" json:"avg_turns_per_session"`
	PositiveCount        int         `db:"positive_count" json:"positive_count"`
	NeutralCount         int         `db:"neutral_count" json:"neutral_count"`
	NegativeCount        int         `db:"negative_count" json:"negative_count"`
	FactualCount         int         `db:"factual_count" json:"factual_count"`
	OpenEndedCount       int         `db:"open_ended_count" json:"open_ended_count"`
	OtherCount           int         `db:"other_count" json:"other_count"`
	TopicCounts          TopicCounts `db:"topic_counts" json:"topic_counts"`
	UniqueActiveStudents int         `db:"unique_active_students" json:"unique_active_students"`
	FlaggedTurns         int         `db:"flagged_turns" json:"flagged_turns"`
}
