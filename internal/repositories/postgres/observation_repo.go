package postgres

import (
	"context"
	"errors"

	"github.com/mbruun/roadlog/internal/models"
	"github.com/mbruun/roadlog/internal/utils"
	"gorm.io/gorm"
)

type ObservationRepository interface {
	Insert(ctx context.Context, o *models.FieldObservation) error
	GetByID(ctx context.Context, projectID, id string) (*models.FieldObservation, error)
	ListByProject(ctx context.Context, projectID string, limit int) ([]models.FieldObservation, error)
	Delete(ctx context.Context, projectID, id string) error
}

type observationRepo struct {
	db *gorm.DB
}

func NewObservationRepo(db *gorm.DB) ObservationRepository {
	return &observationRepo{db: db}
}

func (r *observationRepo) Insert(ctx context.Context, o *models.FieldObservation) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *observationRepo) GetByID(ctx context.Context, projectID, id string) (*models.FieldObservation, error) {
	var row models.FieldObservation
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND id = ?", projectID, id).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *observationRepo) ListByProject(ctx context.Context, projectID string, limit int) ([]models.FieldObservation, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var rows []models.FieldObservation
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *observationRepo) Delete(ctx context.Context, projectID, id string) error {
	res := r.db.WithContext(ctx).
		Where("project_id = ? AND id = ?", projectID, id).
		Delete(&models.FieldObservation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}
