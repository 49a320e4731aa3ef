package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"planboard/models"
)

var (
	// ErrNotFound is returned by Get-style methods when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a write violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Kind identifies a versioned entity type for the version dispatch table.
type Kind string

const (
	KindProject    Kind = "project"
	KindPhase      Kind = "phase"
	KindTask       Kind = "task"
	KindAssignment Kind = "assignment"
)

type MemberStore interface {
	Get(ctx context.Context, id uint) (*models.TeamMember, error)
	GetByEmail(ctx context.Context, email string) (*models.TeamMember, error)
	List(ctx context.Context) ([]models.TeamMember, error)
}

type ProjectStore interface {
	Get(ctx context.Context, id uint) (*models.Project, error)
	// ListForTimeline loads projects ordered by start date with phases,
	// tasks, assignments and assignees preloaded. A non-nil projectID
	// restricts the result to one project.
	ListForTimeline(ctx context.Context, projectID *uint) ([]models.Project, error)
	ListStartingBefore(ctx context.Context, cutoff time.Time) ([]models.Project, error)
}

type PhaseStore interface {
	Get(ctx context.Context, id uint) (*models.Phase, error)
	ListByProject(ctx context.Context, projectID uint) ([]models.Phase, error)
	ListStartingBefore(ctx context.Context, cutoff time.Time) ([]models.Phase, error)
	SetStatus(ctx context.Context, id uint, status models.PhaseStatus) error
}

type TaskStore interface {
	Get(ctx context.Context, id uint) (*models.Task, error)
	ListStartingBefore(ctx context.Context, cutoff time.Time) ([]models.Task, error)
}

type AssignmentStore interface {
	Create(ctx context.Context, a *models.Assignment) error
	Get(ctx context.Context, id uint) (*models.Assignment, error)
	// GetDetailed loads the assignment with phase, project and team member.
	GetDetailed(ctx context.Context, id uint) (*models.Assignment, error)
	ListByMember(ctx context.Context, memberID uint) ([]models.Assignment, error)
	ListByPhase(ctx context.Context, phaseID uint) ([]models.Assignment, error)
	ListByProject(ctx context.Context, projectID uint) ([]models.Assignment, error)
	// LockForMember takes row locks on the member's assignment rows so that
	// concurrent allocation checks for the same member serialize. Only
	// meaningful inside a transaction.
	LockForMember(ctx context.Context, memberID uint) error
	// UpdateVersioned applies fields and bumps version by one in a single
	// conditional UPDATE guarded by the submitted version. Returns the
	// number of rows affected; zero means the row is missing or stale.
	UpdateVersioned(ctx context.Context, id uint, version int, fields map[string]any) (int64, error)
	Delete(ctx context.Context, id uint) (int64, error)
	DeleteVersioned(ctx context.Context, id uint, version int) (int64, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry *models.AuditLogEntry) error
	ListByEntity(ctx context.Context, entityType string, entityID uint, limit int) ([]models.AuditLogEntry, error)
	ListByActor(ctx context.Context, actorID uint, limit int) ([]models.AuditLogEntry, error)
	Recent(ctx context.Context, limit int) ([]models.AuditLogEntry, error)
}

// VersionStore is the optimistic-concurrency dispatch table: one
// load/compare-and-increment capability pair per versioned entity kind.
type VersionStore interface {
	Load(ctx context.Context, kind Kind, id uint) (version int, found bool, err error)
	// CompareAndIncrement executes
	//   UPDATE <table> SET version = version + 1 WHERE id = ? AND version = ?
	// and reports whether a row was affected.
	CompareAndIncrement(ctx context.Context, kind Kind, id uint, version int) (bool, error)
}

// Store aggregates the per-entity repositories. InTx runs fn against a
// store bound to one database transaction; every write inside shares its
// fate.
type Store interface {
	Members() MemberStore
	Projects() ProjectStore
	Phases() PhaseStore
	Tasks() TaskStore
	Assignments() AssignmentStore
	Audit() AuditStore
	Versions() VersionStore
	InTx(ctx context.Context, fn func(Store) error) error
}

type gormStore struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

func New(db *gorm.DB, logger *zap.SugaredLogger) Store {
	return &gormStore{db: db, logger: logger}
}

func (s *gormStore) Members() MemberStore         { return &memberStore{db: s.db, logger: s.logger} }
func (s *gormStore) Projects() ProjectStore       { return &projectStore{db: s.db, logger: s.logger} }
func (s *gormStore) Phases() PhaseStore           { return &phaseStore{db: s.db, logger: s.logger} }
func (s *gormStore) Tasks() TaskStore             { return &taskStore{db: s.db, logger: s.logger} }
func (s *gormStore) Assignments() AssignmentStore { return &assignmentStore{db: s.db, logger: s.logger} }
func (s *gormStore) Audit() AuditStore            { return &auditStore{db: s.db, logger: s.logger} }
func (s *gormStore) Versions() VersionStore       { return &versionStore{db: s.db, logger: s.logger} }

func (s *gormStore) InTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx, logger: s.logger})
	})
}

// translate maps gorm errors onto the store sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}
