package services_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"planboard/models"
	"planboard/services"
	"planboard/store/storetest"
)

func TestAuditTrail_PayloadShapes(t *testing.T) {
	st := storetest.New()
	trail := services.NewAuditTrail(st, zap.NewNop().Sugar())
	actor := services.Actor{ID: 1, Role: models.RoleManager}
	ctx := context.Background()

	_, err := trail.LogCreate(ctx, st, services.EntityAssignment, 10, actor, map[string]any{"working_percentage": 50})
	require.NoError(t, err)
	_, err = trail.LogUpdate(ctx, st, services.EntityAssignment, 10, actor,
		map[string]any{"working_percentage": 50}, map[string]any{"working_percentage": 60})
	require.NoError(t, err)
	_, err = trail.LogStatusChange(ctx, st, services.EntityPhase, 3, actor, "PLANNED", "IN_PROGRESS")
	require.NoError(t, err)
	_, err = trail.LogDelete(ctx, st, services.EntityAssignment, 10, actor, map[string]any{"working_percentage": 60})
	require.NoError(t, err)

	require.Len(t, st.AuditLog, 4)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(st.AuditLog[1].Payload, &payload))
	require.Contains(t, payload, "before")
	require.Contains(t, payload, "after")

	require.NoError(t, json.Unmarshal(st.AuditLog[2].Payload, &payload))
	require.Equal(t, "PLANNED", payload["oldStatus"])
	require.Equal(t, "IN_PROGRESS", payload["newStatus"])
}

func TestAuditTrail_ReadSurfaces(t *testing.T) {
	st := storetest.New()
	trail := services.NewAuditTrail(st, zap.NewNop().Sugar())
	ctx := context.Background()
	alice := services.Actor{ID: 1, Role: models.RoleManager}
	bob := services.Actor{ID: 2, Role: models.RoleTeamLeader}

	_, err := trail.LogCreate(ctx, st, services.EntityAssignment, 10, alice, nil)
	require.NoError(t, err)
	_, err = trail.LogCreate(ctx, st, services.EntityAssignment, 11, bob, nil)
	require.NoError(t, err)
	_, err = trail.LogUpdate(ctx, st, services.EntityAssignment, 10, bob, nil, nil)
	require.NoError(t, err)

	byEntity, err := trail.ListByEntity(ctx, services.EntityAssignment, 10, 50)
	require.NoError(t, err)
	require.Len(t, byEntity, 2)
	// Most recent first.
	require.Equal(t, models.AuditUpdate, byEntity[0].Action)
	require.Equal(t, models.AuditCreate, byEntity[1].Action)

	byActor, err := trail.ListByActor(ctx, bob.ID, 50)
	require.NoError(t, err)
	require.Len(t, byActor, 2)

	recent, err := trail.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, models.AuditUpdate, recent[0].Action)
}

func TestPhaseManager_ChangeStatus(t *testing.T) {
	st := storetest.New()
	st.AddPhase(models.Phase{ID: 1, ProjectID: 1, Name: "Build", StartDate: date(2025, 1, 1), Status: models.PhasePlanned, Version: 2})
	logger := zap.NewNop().Sugar()
	manager := services.NewPhaseManager(st, services.NewVersionGuard(logger), services.NewAuditTrail(st, logger), logger)
	actor := services.Actor{ID: 1, Role: models.RoleManager}

	phase, err := manager.ChangeStatus(context.Background(), 1, models.PhaseInProgress, 2, actor)
	require.NoError(t, err)
	require.Equal(t, models.PhaseInProgress, phase.Status)
	require.Equal(t, 3, phase.Version)

	require.Len(t, st.AuditLog, 1)
	require.Equal(t, models.AuditStatusChange, st.AuditLog[0].Action)
	require.Equal(t, services.EntityPhase, st.AuditLog[0].EntityType)

	// Stale writer rejected, state and audit untouched.
	_, err = manager.ChangeStatus(context.Background(), 1, models.PhaseOnHold, 2, actor)
	require.ErrorIs(t, err, services.ErrVersionConflict)
	require.Len(t, st.AuditLog, 1)
	require.Equal(t, models.PhaseInProgress, st.PhasesByID[1].Status)

	// Missing phase reports not-found.
	_, err = manager.ChangeStatus(context.Background(), 99, models.PhaseOnHold, 1, actor)
	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)

	// Unknown status is a validation error.
	_, err = manager.ChangeStatus(context.Background(), 1, "BOGUS", 3, actor)
	var validation *services.ValidationError
	require.ErrorAs(t, err, &validation)
}
