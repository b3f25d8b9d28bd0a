package aggregator

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"backend/internal/classifier"
	"backend/internal/models"
	"backend/internal/repository"
)

// Aggregator recomputes analytics summaries from raw turns. Recomputing
// the same window twice yields identical rows, so a crashed or repeated
// run is harmless.
type Aggregator struct {
	turnRepo    repository.TurnRepository
	summaryRepo repository.SummaryRepository
	logger      *zap.Logger
}

func New(turnRepo repository.TurnRepository, summaryRepo repository.SummaryRepository, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		turnRepo:    turnRepo,
		summaryRepo: summaryRepo,
		logger:      logger,
	}
}

// AlignedWindow returns the most recent fully elapsed window of the
// given size ending at or before now.
func AlignedWindow(now time.Time, size time.Duration) (time.Time, time.Time) {
	end := now.Truncate(size)
	return end.Add(-size), end
}

// Recompute rebuilds the global, per-topic, and per-student summary
// rows for the window, replacing any previous rows for it.
func (a *Aggregator) Recompute(start, end time.Time) error {
	turns, err := a.turnRepo.GetTurnsInWindow(start, end)
	if err != nil {
		return fmt.Errorf("load turns for window: %w", err)
	}

	rows := []*models.AnalyticsSummary{summarize(start, end, models.GroupingGlobal, turns)}

	byTopic := make(map[string][]*models.ConversationTurn)
	byStudent := make(map[string][]*models.ConversationTurn)
	for _, turn := range turns {
		topic := turn.Topic
		if topic == "" {
			topic = classifier.TopicFallback
		}
		byTopic[topic] = append(byTopic[topic], turn)
		byStudent[turn.StudentID] = append(byStudent[turn.StudentID], turn)
	}

	for _, topic := range sortedKeys(byTopic) {
		rows = append(rows, summarize(start, end, models.TopicGroupingKey(topic), byTopic[topic]))
	}
	for _, studentID := range sortedKeys(byStudent) {
		rows = append(rows, summarize(start, end, models.StudentGroupingKey(studentID), byStudent[studentID]))
	}

	if err := a.summaryRepo.ReplaceSummaries(start, end, rows); err != nil {
		return fmt.Errorf("replace summaries: %w", err)
	}

	a.logger.Info("Analytics window recomputed",
		zap.Time("window_start", start),
		zap.Time("window_end", end),
		zap.Int("turns", len(turns)),
		zap.Int("rows", len(rows)))
	return nil
}

// RecomputeStudent rebuilds a single student's summary row for the
// window without touching the other rows.
func (a *Aggregator) RecomputeStudent(start, end time.Time, studentID string) error {
	turns, err := a.turnRepo.GetTurnsByStudentInWindow(studentID, start, end)
	if err != nil {
		return fmt.Errorf("load student turns: %w", err)
	}

	key := models.StudentGroupingKey(studentID)
	row := summarize(start, end, key, turns)
	if err := a.summaryRepo.ReplaceSummaryByKey(start, end, key, row); err != nil {
		return fmt.Errorf("replace student summary: %w", err)
	}
	return nil
}

func summarize(start, end time.Time, groupingKey string, turns []*models.ConversationTurn) *models.AnalyticsSummary {
	row := &models.AnalyticsSummary{
		WindowStart: start,
		WindowEnd:   end,
		GroupingKey: groupingKey,
		TopicCounts: models.TopicCounts{},
	}

	sessions := make(map[string]struct{})
	students := make(map[string]struct{})

	for _, turn := range turns {
		row.TotalTurns++
		sessions[turn.SessionID] = struct{}{}
		students[turn.StudentID] = struct{}{}

		switch turn.Sentiment {
		case models.SentimentPositive:
			row.PositiveCount++
		case models.SentimentNegative:
			row.NegativeCount++
		default:
			row.NeutralCount++
		}

		switch turn.QuestionType {
		case models.QuestionFactual:
			row.FactualCount++
		case models.QuestionOpenEnded:
			row.OpenEndedCount++
		case models.QuestionOther:
			row.OtherCount++
		}

		topic := turn.Topic
		if topic == "" {
			topic = classifier.TopicFallback
		}
		row.TopicCounts[topic]++

		if turn.SafetyFlagged {
			row.FlaggedTurns++
		}
	}

	row.TotalSessions = len(sessions)
	row.UniqueActiveStudents = len(students)
	if row.TotalSessions > 0 {
		row.AvgTurnsPerSession = float64(row.TotalTurns) / float64(row.TotalSessions)
	}
	return row
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
