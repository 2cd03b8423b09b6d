package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/mbruun/roadlog/internal/models"
	pgrepo "github.com/mbruun/roadlog/internal/repositories/postgres"
	"github.com/mbruun/roadlog/internal/storage"
	"github.com/mbruun/roadlog/internal/utils"
)

type ObservationService interface {
	Get(ctx context.Context, projectID, id string) (*models.FieldObservation, error)
	List(ctx context.Context, projectID string, limit int) ([]models.FieldObservation, error)
	Delete(ctx context.Context, projectID, id string) error
}

type observationService struct {
	repo  pgrepo.ObservationRepository
	store storage.Remover
	log   *logrus.Logger
}

func NewObservationService(repo pgrepo.ObservationRepository, store storage.Remover, log *logrus.Logger) ObservationService {
	if log == nil {
		log = logrus.New()
	}
	return &observationService{repo: repo, store: store, log: log}
}

func (s *observationService) Get(ctx context.Context, projectID, id string) (*models.FieldObservation, error) {
	const op = "ObservationService.Get"

	if projectID == "" || id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "project_id and id are required", nil)
	}
	row, err := s.repo.GetByID(ctx, projectID, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "observation not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to load observation", err)
	}
	return row, nil
}

func (s *observationService) List(ctx context.Context, projectID string, limit int) ([]models.FieldObservation, error) {
	const op = "ObservationService.List"

	if projectID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "project_id is required", nil)
	}
	rows, err := s.repo.ListByProject(ctx, projectID, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list observations", err)
	}
	return rows, nil
}

// Delete removes the row first, then removes the referenced audio blob.
// A blob that cannot be removed is logged and tolerated; the row is the
// source of truth and it is already gone.
func (s *observationService) Delete(ctx context.Context, projectID, id string) error {
	const op = "ObservationService.Delete"

	row, err := s.Get(ctx, projectID, id)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, projectID, id); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "observation not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to delete observation", err)
	}

	if row.AudioObject != "" {
		if err := s.store.Remove(ctx, row.AudioObject); err != nil {
			s.log.WithError(err).WithField("audio_object", row.AudioObject).
				Warn("audio blob removal failed, leaving orphan")
		}
	}
	return nil
}
