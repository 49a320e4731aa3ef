package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"planboard/models"
)

type phaseStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func (s *phaseStore) Get(ctx context.Context, id uint) (*models.Phase, error) {
	var p models.Phase
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *phaseStore) ListByProject(ctx context.Context, projectID uint) ([]models.Phase, error) {
	var phases []models.Phase
	err := s.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("start_date").
		Find(&phases).Error
	if err != nil {
		s.logger.Errorw("failed to list phases", "projectID", projectID, "err", err)
		return nil, err
	}
	return phases, nil
}

func (s *phaseStore) ListStartingBefore(ctx context.Context, cutoff time.Time) ([]models.Phase, error) {
	var phases []models.Phase
	err := s.db.WithContext(ctx).
		Where("start_date < ?", cutoff).
		Order("start_date").
		Find(&phases).Error
	if err != nil {
		s.logger.Errorw("failed to list phases", "cutoff", cutoff, "err", err)
		return nil, err
	}
	return phases, nil
}

func (s *phaseStore) SetStatus(ctx context.Context, id uint, status models.PhaseStatus) error {
	err := s.db.WithContext(ctx).
		Model(&models.Phase{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		s.logger.Errorw("failed to set phase status", "phaseID", id, "status", status, "err", err)
	}
	return err
}
