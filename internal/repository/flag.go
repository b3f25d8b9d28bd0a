package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrFlagNotFound is returned when an update targets a flag id that does
// not exist.
var ErrFlagNotFound = errors.New("flagged item not found")

type FlagRepository interface {
	GetFlagByID(id int64) (*models.FlaggedItem, error)
	GetAllFlags(limit int) ([]*models.FlaggedItem, error)
	GetFlagsByStatus(status string, limit int) ([]*models.FlaggedItem, error)
	UpdateFlagStatus(id int64, status, reviewedBy string) error
}

type flagRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewFlagRepository(db *sqlx.DB, logger *zap.Logger) FlagRepository {
	return &flagRepository{db: db, logger: logger}
}

func (r *flagRepository) GetFlagByID(id int64) (*models.FlaggedItem, error) {
	var flag models.FlaggedItem
	query := `SELECT * FROM flagged_items WHERE id = $1`
	err := r.db.Get(&flag, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &flag, nil
}

func (r *flagRepository) GetAllFlags(limit int) ([]*models.FlaggedItem, error) {
	var flags []*models.FlaggedItem
	query := `SELECT * FROM flagged_items ORDER BY flagged_at DESC LIMIT $1`
	err := r.db.Select(&flags, query, limit)
	if err != nil {
		return nil, err
	}
	return flags, nil
}

func (r *flagRepository) GetFlagsByStatus(status string, limit int) ([]*models.FlaggedItem, error) {
	var flags []*models.FlaggedItem
	query := `SELECT * FROM flagged_items WHERE status = $1 ORDER BY flagged_at DESC LIMIT $2`
	err := r.db.Select(&flags, query, status, limit)
	if err != nil {
		return nil, err
	}
	return flags, nil
}

func (r *flagRepository) UpdateFlagStatus(id int64, status, reviewedBy string) error {
	query := `UPDATE flagged_items
	          SET status = $1, reviewed_by = $2, reviewed_at = now()
	          WHERE id = $3`
	result, err := r.db.Exec(query, status, reviewedBy, id)
	if err != nil {
		r.logger.Error("Failed to update flag status",
			zap.Int64("flag_id", id),
			zap.String("status", status),
			zap.Error(err))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", ErrFlagNotFound, id)
	}

	return nil
}
