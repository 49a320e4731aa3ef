package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"planboard/store"
)

// VersionGuard applies the optimistic-concurrency protocol to versioned
// entities: the caller submits the version it last read, and the guard
// performs a single conditional compare-and-increment write. Of two
// concurrent writers holding the same version, exactly one commits.
type VersionGuard struct {
	logger *zap.SugaredLogger
}

func NewVersionGuard(logger *zap.SugaredLogger) *VersionGuard {
	return &VersionGuard{logger: logger}
}

// Apply increments the entity's version iff the stored version equals the
// submitted one. A stale version yields ErrVersionConflict. A missing entity
// passes through without error: the mutation handler reports not-found with
// the right entity name.
func (g *VersionGuard) Apply(ctx context.Context, st store.Store, kind store.Kind, id uint, submitted int) error {
	applied, err := st.Versions().CompareAndIncrement(ctx, kind, id, submitted)
	if err != nil {
		return fmt.Errorf("version check for %s %d: %w", kind, id, err)
	}
	if applied {
		return nil
	}

	_, found, err := st.Versions().Load(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("version check for %s %d: %w", kind, id, err)
	}
	if !found {
		return nil
	}

	g.logger.Infow("version conflict", "kind", kind, "id", id, "submitted", submitted)
	return ErrVersionConflict
}
