package store

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"planboard/models"
)

type projectStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func (s *projectStore) Get(ctx context.Context, id uint) (*models.Project, error) {
	var p models.Project
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *projectStore) ListForTimeline(ctx context.Context, projectID *uint) ([]models.Project, error) {
	query := s.db.WithContext(ctx).
		Preload("Phases", func(db *gorm.DB) *gorm.DB { return db.Order("phases.start_date") }).
		Preload("Phases.Tasks").
		Preload("Phases.Assignments").
		Preload("Phases.Assignments.TeamMember").
		Order("projects.start_date")
	if projectID != nil {
		query = query.Where("projects.id = ?", *projectID)
	}

	var projects []models.Project
	if err := query.Find(&projects).Error; err != nil {
		s.logger.Errorw("failed to load timeline projects", "err", err)
		return nil, err
	}
	return projects, nil
}

func (s *projectStore) ListStartingBefore(ctx context.Context, cutoff time.Time) ([]models.Project, error) {
	var projects []models.Project
	err := s.db.WithContext(ctx).
		Where("start_date < ?", cutoff).
		Order("start_date").
		Find(&projects).Error
	if err != nil {
		s.logger.Errorw("failed to list projects", "cutoff", cutoff, "err", err)
		return nil, err
	}
	return projects, nil
}
