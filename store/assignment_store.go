package store

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"planboard/models"
)

type assignmentStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func (s *assignmentStore) Create(ctx context.Context, a *models.Assignment) error {
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		// gorm does not always wrap constraint violations, so the raw
		// SQLSTATE has to be checked as well.
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "SQLSTATE 23505") {
			s.logger.Warnw("duplicate assignment",
				"phaseID", a.PhaseID, "teamMemberID", a.TeamMemberID, "role", a.Role)
			return ErrDuplicate
		}
		s.logger.Errorw("failed to create assignment", "err", err)
		return err
	}
	return nil
}

func (s *assignmentStore) Get(ctx context.Context, id uint) (*models.Assignment, error) {
	var a models.Assignment
	if err := s.db.WithContext(ctx).First(&a, id).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *assignmentStore) GetDetailed(ctx context.Context, id uint) (*models.Assignment, error) {
	var a models.Assignment
	err := s.db.WithContext(ctx).
		Preload("Phase").
		Preload("Phase.Project").
		Preload("TeamMember").
		First(&a, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *assignmentStore) ListByMember(ctx context.Context, memberID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.db.WithContext(ctx).
		Preload("Phase").
		Preload("Phase.Project").
		Where("team_member_id = ?", memberID).
		Order("start_date").
		Find(&assignments).Error
	if err != nil {
		s.logger.Errorw("failed to list assignments", "teamMemberID", memberID, "err", err)
		return nil, err
	}
	return assignments, nil
}

func (s *assignmentStore) ListByPhase(ctx context.Context, phaseID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.db.WithContext(ctx).
		Preload("TeamMember").
		Where("phase_id = ?", phaseID).
		Order("start_date").
		Find(&assignments).Error
	if err != nil {
		s.logger.Errorw("failed to list assignments", "phaseID", phaseID, "err", err)
		return nil, err
	}
	return assignments, nil
}

func (s *assignmentStore) ListByProject(ctx context.Context, projectID uint) ([]models.Assignment, error) {
	var assignments []models.Assignment
	err := s.db.WithContext(ctx).
		Preload("TeamMember").
		Preload("Phase").
		Joins("JOIN phases ON phases.id = assignments.phase_id").
		Where("phases.project_id = ?", projectID).
		Order("assignments.start_date").
		Find(&assignments).Error
	if err != nil {
		s.logger.Errorw("failed to list assignments", "projectID", projectID, "err", err)
		return nil, err
	}
	return assignments, nil
}

func (s *assignmentStore) LockForMember(ctx context.Context, memberID uint) error {
	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("team_member_id = ?", memberID).
		Pluck("id", &ids).Error
	if err != nil {
		s.logger.Errorw("failed to lock assignments", "teamMemberID", memberID, "err", err)
	}
	return err
}

func (s *assignmentStore) UpdateVersioned(ctx context.Context, id uint, version int, fields map[string]any) (int64, error) {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")

	res := s.db.WithContext(ctx).
		Model(&models.Assignment{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		s.logger.Errorw("failed to update assignment", "assignmentID", id, "err", res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *assignmentStore) Delete(ctx context.Context, id uint) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&models.Assignment{}, id)
	if res.Error != nil {
		s.logger.Errorw("failed to delete assignment", "assignmentID", id, "err", res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (s *assignmentStore) DeleteVersioned(ctx context.Context, id uint, version int) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND version = ?", id, version).
		Delete(&models.Assignment{})
	if res.Error != nil {
		s.logger.Errorw("failed to delete assignment", "assignmentID", id, "err", res.Error)
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
