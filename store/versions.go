package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// versionTables maps each versioned entity kind to its table. The dispatch
// is by typed constant, never by parsing request paths.
var versionTables = map[Kind]string{
	KindProject:    "projects",
	KindPhase:      "phases",
	KindTask:       "tasks",
	KindAssignment: "assignments",
}

type versionStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func (s *versionStore) table(kind Kind) (string, error) {
	table, ok := versionTables[kind]
	if !ok {
		return "", fmt.Errorf("unversioned entity kind %q", kind)
	}
	return table, nil
}

func (s *versionStore) Load(ctx context.Context, kind Kind, id uint) (int, bool, error) {
	table, err := s.table(kind)
	if err != nil {
		return 0, false, err
	}

	var versions []int
	err = s.db.WithContext(ctx).
		Table(table).
		Where("id = ?", id).
		Limit(1).
		Pluck("version", &versions).Error
	if err != nil {
		s.logger.Errorw("failed to load version", "kind", kind, "id", id, "err", err)
		return 0, false, err
	}
	if len(versions) == 0 {
		return 0, false, nil
	}
	return versions[0], true, nil
}

func (s *versionStore) CompareAndIncrement(ctx context.Context, kind Kind, id uint, version int) (bool, error) {
	table, err := s.table(kind)
	if err != nil {
		return false, err
	}

	// Single conditional write: the compare and the increment are one
	// statement, so there is no read-then-write window.
	res := s.db.WithContext(ctx).
		Exec("UPDATE "+table+" SET version = version + 1 WHERE id = ? AND version = ?", id, version)
	if res.Error != nil {
		s.logger.Errorw("failed to increment version", "kind", kind, "id", id, "err", res.Error)
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
