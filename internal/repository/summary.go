package repository

import (
	"fmt"
	"time"

	"backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type SummaryRepository interface {
	// ReplaceSummaries atomically swaps all summary rows for the window.
	// A failed replace leaves the previous rows untouched.
	ReplaceSummaries(start, end time.Time, rows []*models.AnalyticsSummary) error
	// ReplaceSummaryByKey swaps a single grouping key within the window.
	ReplaceSummaryByKey(start, end time.Time, groupingKey string, row *models.AnalyticsSummary) error
	GetSummaries(start, end time.Time) ([]*models.AnalyticsSummary, error)
	GetSummaryByKey(start, end time.Time, groupingKey string) (*models.AnalyticsSummary, error)
}

type summaryRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewSummaryRepository(db *sqlx.DB, logger *zap.Logger) SummaryRepository {
	return &summaryRepository{db: db, logger: logger}
}

const insertSummary = `INSERT INTO analytics_summaries
	(window_start, window_end, grouping_key, total_turns, total_sessions, avg_turns_per_session,
	 positive_count, neutral_count, negative_count, factual_count, open_ended_count, other_count,
	 topic_counts, unique_active_students, flagged_turns)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

func (r *summaryRepository) insertRow(tx *sqlx.Tx, row *models.AnalyticsSummary) error {
	_, err := tx.Exec(insertSummary,
		row.WindowStart, row.WindowEnd, row.GroupingKey,
		row.TotalTurns, row.TotalSessions, row.AvgTurnsPerSession,
		row.PositiveCount, row.NeutralCount, row.NegativeCount,
		row.FactualCount, row.OpenEndedCount, row.OtherCount,
		row.TopicCounts, row.UniqueActiveStudents, row.FlaggedTurns)
	return err
}

func (r *summaryRepository) ReplaceSummaries(start, end time.Time, rows []*models.AnalyticsSummary) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin summary transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM analytics_summaries WHERE window_start = $1 AND window_end = $2`, start, end); err != nil {
		return fmt.Errorf("clear summary window: %w", err)
	}

	for _, row := range rows {
		if err := r.insertRow(tx, row); err != nil {
			return fmt.Errorf("insert summary %q: %w", row.GroupingKey, err)
		}
	}

	return tx.Commit()
}

func (r *summaryRepository) ReplaceSummaryByKey(start, end time.Time, groupingKey string, row *models.AnalyticsSummary) error {
	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("begin summary transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM analytics_summaries WHERE window_start = $1 AND window_end = $2 AND grouping_key = $3`,
		start, end, groupingKey); err != nil {
		return fmt.Errorf("clear summary row: %w", err)
	}

	if row != nil {
		if err := r.insertRow(tx, row); err != nil {
			return fmt.Errorf("insert summary %q: %w", groupingKey, err)
		}
	}

	return tx.Commit()
}

func (r *summaryRepository) GetSummaries(start, end time.Time) ([]*models.AnalyticsSummary, error) {
	var rows []*models.AnalyticsSummary
	query := `SELECT * FROM analytics_summaries
	          WHERE window_start = $1 AND window_end = $2
	          ORDER BY grouping_key`
	err := r.db.Select(&rows, query, start, end)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *summaryRepository) GetSummaryByKey(start, end time.Time, groupingKey string) (*models.AnalyticsSummary, error) {
	var rows []*models.AnalyticsSummary
	query := `SELECT * FROM analytics_summaries
	          WHERE window_start = $1 AND window_end = $2 AND grouping_key = $3`
	err := r.db.Select(&rows, query, start, end, groupingKey)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}
