package store

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"planboard/models"
)

type auditStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func (s *auditStore) Append(ctx context.Context, entry *models.AuditLogEntry) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		s.logger.Errorw("failed to append audit entry",
			"entityType", entry.EntityType, "entityID", entry.EntityID,
			"action", entry.Action, "err", err)
		return err
	}
	return nil
}

func (s *auditStore) ListByEntity(ctx context.Context, entityType string, entityID uint, limit int) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		s.logger.Errorw("failed to list audit entries", "entityType", entityType, "entityID", entityID, "err", err)
		return nil, err
	}
	return entries, nil
}

func (s *auditStore) ListByActor(ctx context.Context, actorID uint, limit int) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := s.db.WithContext(ctx).
		Where("actor_id = ?", actorID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		s.logger.Errorw("failed to list audit entries", "actorID", actorID, "err", err)
		return nil, err
	}
	return entries, nil
}

func (s *auditStore) Recent(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	var entries []models.AuditLogEntry
	err := s.db.WithContext(ctx).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		s.logger.Errorw("failed to list recent audit entries", "err", err)
		return nil, err
	}
	return entries, nil
}
