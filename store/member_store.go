package store

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"planboard/models"
)

type memberStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func (s *memberStore) Get(ctx context.Context, id uint) (*models.TeamMember, error) {
	var m models.TeamMember
	if err := s.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *memberStore) GetByEmail(ctx context.Context, email string) (*models.TeamMember, error) {
	var m models.TeamMember
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *memberStore) List(ctx context.Context) ([]models.TeamMember, error) {
	var members []models.TeamMember
	if err := s.db.WithContext(ctx).Order("name").Find(&members).Error; err != nil {
		s.logger.Errorw("failed to list team members", "err", err)
		return nil, err
	}
	return members, nil
}
