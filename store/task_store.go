package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"planboard/models"
)

type taskStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func (s *taskStore) Get(ctx context.Context, id uint) (*models.Task, error) {
	var t models.Task
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (s *taskStore) ListStartingBefore(ctx context.Context, cutoff time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Where("start_date IS NOT NULL AND start_date < ?", cutoff).
		Order("start_date").
		Find(&tasks).Error
	if err != nil {
		s.logger.Errorw("failed to list tasks", "cutoff", cutoff, "err", err)
		return nil, err
	}
	return tasks, nil
}
