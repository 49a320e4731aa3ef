package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"planboard/metrics"
	"planboard/models"
	"planboard/store"
)

// PhaseManager handles the phase mutations this core owns. Status changes go
// through VersionGuard and leave a STATUS_CHANGE audit entry.
type PhaseManager struct {
	store  store.Store
	guard  *VersionGuard
	audit  *AuditTrail
	logger *zap.SugaredLogger
}

func NewPhaseManager(st store.Store, guard *VersionGuard, audit *AuditTrail, logger *zap.SugaredLogger) *PhaseManager {
	return &PhaseManager{store: st, guard: guard, audit: audit, logger: logger}
}

var validPhaseStatuses = map[models.PhaseStatus]bool{
	models.PhasePlanned:    true,
	models.PhaseInProgress: true,
	models.PhaseOnHold:     true,
	models.PhaseCompleted:  true,
}

func (m *PhaseManager) ChangeStatus(ctx context.Context, id uint, status models.PhaseStatus, version int, actor Actor) (*models.Phase, error) {
	if !validPhaseStatuses[status] {
		return nil, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", status)}
	}

	err := m.store.InTx(ctx, func(st store.Store) error {
		existing, err := st.Phases().Get(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &NotFoundError{Entity: "phase", ID: id}
			}
			return fmt.Errorf("load phase %d: %w", id, err)
		}

		if err := m.guard.Apply(ctx, st, store.KindPhase, id, version); err != nil {
			if errors.Is(err, ErrVersionConflict) {
				metrics.VersionConflict(string(store.KindPhase))
			}
			return err
		}
		if err := st.Phases().SetStatus(ctx, id, status); err != nil {
			return fmt.Errorf("set status of phase %d: %w", id, err)
		}

		_, err = m.audit.LogStatusChange(ctx, st, EntityPhase, id, actor,
			string(existing.Status), string(status))
		return err
	})
	if err != nil {
		return nil, err
	}

	m.logger.Infow("phase status changed", "phaseID", id, "status", status, "actorID", actor.ID)
	phase, err := m.store.Phases().Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reload phase %d: %w", id, err)
	}
	return phase, nil
}
