package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"planboard/models"
	"planboard/services"
	"planboard/store"
	"planboard/store/storetest"
)

var testActor = services.Actor{ID: 1, Role: models.RoleManager}

func seededStore() *storetest.Store {
	st := storetest.New()
	st.AddMember(models.TeamMember{ID: 7, Name: "Dana", Email: "dana@example.com", Role: models.RoleTeamMember, Active: true})
	st.AddMember(models.TeamMember{ID: 8, Name: "Noor", Email: "noor@example.com", Role: models.RoleTeamMember, Active: true})
	st.AddProject(models.Project{ID: 1, Name: "Atlas", StartDate: date(2025, 1, 1)})
	st.AddPhase(models.Phase{ID: 1, ProjectID: 1, Name: "Build", StartDate: date(2025, 1, 1), DurationDays: 60})
	st.AddPhase(models.Phase{ID: 2, ProjectID: 1, Name: "Test", StartDate: date(2025, 3, 1), DurationDays: 30})
	return st
}

func newManager(st *storetest.Store) *services.AssignmentManager {
	logger := zap.NewNop().Sugar()
	ledger := services.NewAllocationLedger(st, false, logger)
	audit := services.NewAuditTrail(st, logger)
	return services.NewAssignmentManager(st, ledger, audit, logger)
}

func TestAssign_Success(t *testing.T) {
	st := seededStore()
	manager := newManager(st)

	end := date(2025, 2, 28)
	created, err := manager.Assign(context.Background(), services.AssignInput{
		PhaseID:           1,
		TeamMemberID:      7,
		Role:              "developer",
		WorkingPercentage: 60,
		StartDate:         date(2025, 1, 1),
		EndDate:           &end,
	}, testActor)
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.Equal(t, 1, created.Version)
	require.NotNil(t, created.Phase)
	require.NotNil(t, created.Phase.Project)
	require.NotNil(t, created.TeamMember)

	// Exactly one audit entry for the mutation.
	require.Len(t, st.AuditLog, 1)
	entry := st.AuditLog[0]
	require.Equal(t, services.EntityAssignment, entry.EntityType)
	require.Equal(t, created.ID, entry.EntityID)
	require.Equal(t, models.AuditCreate, entry.Action)
	require.Equal(t, testActor.ID, entry.ActorID)
}

func TestAssign_RoundTripReads(t *testing.T) {
	st := seededStore()
	manager := newManager(st)

	end := date(2025, 2, 28)
	created, err := manager.Assign(context.Background(), services.AssignInput{
		PhaseID:           1,
		TeamMemberID:      7,
		Role:              "developer",
		WorkingPercentage: 45,
		StartDate:         date(2025, 1, 15),
		EndDate:           &end,
	}, testActor)
	require.NoError(t, err)

	byMember, err := manager.ListByMember(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, byMember, 1)

	byProject, err := manager.ListByProject(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, byProject, 1)

	for _, got := range []models.Assignment{byMember[0], byProject[0]} {
		require.Equal(t, created.ID, got.ID)
		require.Equal(t, 45, got.WorkingPercentage)
		require.Equal(t, "developer", got.Role)
		require.True(t, got.StartDate.Equal(date(2025, 1, 15)))
		require.NotNil(t, got.EndDate)
		require.True(t, got.EndDate.Equal(end))
	}
}

func TestAssign_RejectsOverallocation(t *testing.T) {
	st := seededStore()
	st.AddAssignment(models.Assignment{
		TeamMemberID: 7, PhaseID: 2, Role: "qa", WorkingPercentage: 80, StartDate: date(2025, 3, 1),
	})
	manager := newManager(st)

	_, err := manager.Assign(context.Background(), services.AssignInput{
		PhaseID:           1,
		TeamMemberID:      7,
		Role:              "developer",
		WorkingPercentage: 30,
		StartDate:         date(2025, 1, 1),
	}, testActor)

	var overalloc *services.OverallocationError
	require.ErrorAs(t, err, &overalloc)
	require.Equal(t, 80, overalloc.CurrentAllocation)
	require.Equal(t, 110, overalloc.ProposedAllocation)
	require.NotEmpty(t, overalloc.Warning)

	// A rejected operation leaves no trace.
	require.Len(t, st.AssignmentsByID, 1)
	require.Empty(t, st.AuditLog)
}

// The sum the ledger reports must equal the sum the manager bases its
// accept/reject decision on: a proposal the ledger marks as fitting is
// accepted, and one it marks as over is rejected with the same numbers.
func TestAssign_ManagerAgreesWithLedger(t *testing.T) {
	st := seededStore()
	st.AddAssignment(models.Assignment{
		TeamMemberID: 7, PhaseID: 2, Role: "qa", WorkingPercentage: 55, StartDate: date(2025, 3, 1),
	})
	logger := zap.NewNop().Sugar()
	ledger := services.NewAllocationLedger(st, false, logger)
	manager := newManager(st)

	check, err := ledger.Check(context.Background(), services.AllocationQuery{
		TeamMemberID: 7, ProposedPercentage: 45,
	})
	require.NoError(t, err)
	require.False(t, check.IsOverallocated)
	require.Equal(t, 100, check.ProposedAllocation)

	_, err = manager.Assign(context.Background(), services.AssignInput{
		PhaseID: 1, TeamMemberID: 7, Role: "developer", WorkingPercentage: 45, StartDate: date(2025, 1, 1),
	}, testActor)
	require.NoError(t, err)

	check, err = ledger.Check(context.Background(), services.AllocationQuery{
		TeamMemberID: 7, ProposedPercentage: 1,
	})
	require.NoError(t, err)
	require.True(t, check.IsOverallocated)

	_, err = manager.Assign(context.Background(), services.AssignInput{
		PhaseID: 2, TeamMemberID: 7, Role: "reviewer", WorkingPercentage: 1, StartDate: date(2025, 3, 1),
	}, testActor)
	var overalloc *services.OverallocationError
	require.ErrorAs(t, err, &overalloc)
	require.Equal(t, check.CurrentAllocation, overalloc.CurrentAllocation)
	require.Equal(t, check.ProposedAllocation, overalloc.ProposedAllocation)
}

func TestAssign_Validation(t *testing.T) {
	st := seededStore()
	manager := newManager(st)

	tests := []struct {
		name  string
		input services.AssignInput
	}{
		{
			name: "end before start",
			input: services.AssignInput{
				PhaseID: 1, TeamMemberID: 7, Role: "dev", WorkingPercentage: 50,
				StartDate: date(2025, 2, 1), EndDate: datePtr(2025, 1, 1),
			},
		},
		{
			name: "percentage over 100",
			input: services.AssignInput{
				PhaseID: 1, TeamMemberID: 7, Role: "dev", WorkingPercentage: 120,
				StartDate: date(2025, 1, 1),
			},
		},
		{
			name: "missing role",
			input: services.AssignInput{
				PhaseID: 1, TeamMemberID: 7, WorkingPercentage: 50,
				StartDate: date(2025, 1, 1),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := manager.Assign(context.Background(), tt.input, testActor)
			var validation *services.ValidationError
			require.ErrorAs(t, err, &validation)
			require.Empty(t, st.AuditLog)
		})
	}
}

func TestAssign_MissingReferences(t *testing.T) {
	st := seededStore()
	manager := newManager(st)

	_, err := manager.Assign(context.Background(), services.AssignInput{
		PhaseID: 99, TeamMemberID: 7, Role: "dev", WorkingPercentage: 50, StartDate: date(2025, 1, 1),
	}, testActor)
	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "phase", notFound.Entity)

	_, err = manager.Assign(context.Background(), services.AssignInput{
		PhaseID: 1, TeamMemberID: 99, Role: "dev", WorkingPercentage: 50, StartDate: date(2025, 1, 1),
	}, testActor)
	require.ErrorAs(t, err, &notFound)
	require.Equal(t, "team member", notFound.Entity)
}

func TestAssign_DuplicateRoleInPhase(t *testing.T) {
	st := seededStore()
	st.AddAssignment(models.Assignment{
		TeamMemberID: 7, PhaseID: 1, Role: "developer", WorkingPercentage: 20, StartDate: date(2025, 1, 1),
	})
	manager := newManager(st)

	_, err := manager.Assign(context.Background(), services.AssignInput{
		PhaseID: 1, TeamMemberID: 7, Role: "developer", WorkingPercentage: 20, StartDate: date(2025, 1, 1),
	}, testActor)
	var validation *services.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestUpdate_ExcludesOwnContribution(t *testing.T) {
	st := seededStore()
	st.AddAssignment(models.Assignment{
		ID: 1, TeamMemberID: 7, PhaseID: 1, Role: "developer", WorkingPercentage: 40, StartDate: date(2025, 1, 1),
	})
	st.AddAssignment(models.Assignment{
		ID: 2, TeamMemberID: 7, PhaseID: 2, Role: "qa", WorkingPercentage: 30, StartDate: date(2025, 3, 1),
	})
	manager := newManager(st)

	// 30 (other) + 70 (new) = 100: allowed only because the old 40 is excluded.
	updated, err := manager.Update(context.Background(), 1, services.AssignmentPatch{
		WorkingPercentage: intPtr(70),
		Version:           1,
	}, testActor)
	require.NoError(t, err)
	require.Equal(t, 70, updated.WorkingPercentage)
	require.Equal(t, 2, updated.Version)

	require.Len(t, st.AuditLog, 1)
	require.Equal(t, models.AuditUpdate, st.AuditLog[0].Action)
}

func TestUpdate_RejectsOverallocation(t *testing.T) {
	st := seededStore()
	st.AddAssignment(models.Assignment{
		ID: 1, TeamMemberID: 7, PhaseID: 1, Role: "developer", WorkingPercentage: 20, StartDate: date(2025, 1, 1),
	})
	st.AddAssignment(models.Assignment{
		ID: 2, TeamMemberID: 7, PhaseID: 2, Role: "qa", WorkingPercentage: 40, StartDate: date(2025, 3, 1),
	})
	manager := newManager(st)

	// 40 (other) + 70 (new) = 110 > 100.
	_, err := manager.Update(context.Background(), 1, services.AssignmentPatch{
		WorkingPercentage: intPtr(70),
		Version:           1,
	}, testActor)
	var overalloc *services.OverallocationError
	require.ErrorAs(t, err, &overalloc)
	require.Equal(t, 40, overalloc.CurrentAllocation)
	require.Equal(t, 110, overalloc.ProposedAllocation)

	// Stored value untouched, no audit entry.
	require.Equal(t, 20, st.AssignmentsByID[1].WorkingPercentage)
	require.Empty(t, st.AuditLog)
}

func TestUpdate_VersionConflict(t *testing.T) {
	st := seededStore()
	st.AddAssignment(models.Assignment{
		ID: 1, TeamMemberID: 7, PhaseID: 1, Role: "developer", WorkingPercentage: 40,
		StartDate: date(2025, 1, 1), Version: 3,
	})
	manager := newManager(st)

	// First writer read version 3 and wins.
	updated, err := manager.Update(context.Background(), 1, services.AssignmentPatch{
		WorkingPercentage: intPtr(50),
		Version:           3,
	}, testActor)
	require.NoError(t, err)
	require.Equal(t, 4, updated.Version)

	// Second writer also read version 3 and must lose, regardless of order.
	_, err = manager.Update(context.Background(), 1, services.AssignmentPatch{
		WorkingPercentage: intPtr(60),
		Version:           3,
	}, testActor)
	require.ErrorIs(t, err, services.ErrVersionConflict)

	require.Equal(t, 50, st.AssignmentsByID[1].WorkingPercentage)
	require.Len(t, st.AuditLog, 1)
}

func TestUpdate_NotFound(t *testing.T) {
	st := seededStore()
	manager := newManager(st)

	_, err := manager.Update(context.Background(), 42, services.AssignmentPatch{
		WorkingPercentage: intPtr(10),
		Version:           1,
	}, testActor)
	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestRemove_SecondCallNotFound(t *testing.T) {
	st := seededStore()
	st.AddAssignment(models.Assignment{
		ID: 1, TeamMemberID: 7, PhaseID: 1, Role: "developer", WorkingPercentage: 40, StartDate: date(2025, 1, 1),
	})
	manager := newManager(st)

	require.NoError(t, manager.Remove(context.Background(), 1, nil, testActor))
	require.Len(t, st.AuditLog, 1)
	require.Equal(t, models.AuditDelete, st.AuditLog[0].Action)

	err := manager.Remove(context.Background(), 1, nil, testActor)
	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)
	require.Len(t, st.AuditLog, 1)
}

func TestRemove_StaleVersion(t *testing.T) {
	st := seededStore()
	st.AddAssignment(models.Assignment{
		ID: 1, TeamMemberID: 7, PhaseID: 1, Role: "developer", WorkingPercentage: 40,
		StartDate: date(2025, 1, 1), Version: 2,
	})
	manager := newManager(st)

	err := manager.Remove(context.Background(), 1, intPtr(1), testActor)
	require.ErrorIs(t, err, services.ErrVersionConflict)
	require.Len(t, st.AssignmentsByID, 1)

	require.NoError(t, manager.Remove(context.Background(), 1, intPtr(2), testActor))
	require.Empty(t, st.AssignmentsByID)
}

// flakyGetStore wraps the in-memory store and makes assignment Get calls
// fail once the configured number of successful calls is used up.
type flakyGetStore struct {
	*storetest.Store
	getErr   error
	getsLeft int
}

func (s *flakyGetStore) Assignments() store.AssignmentStore {
	return &flakyGetAssignments{AssignmentStore: s.Store.Assignments(), owner: s}
}

func (s *flakyGetStore) InTx(ctx context.Context, fn func(store.Store) error) error {
	return s.Store.InTx(ctx, func(store.Store) error { return fn(s) })
}

type flakyGetAssignments struct {
	store.AssignmentStore
	owner *flakyGetStore
}

func (a *flakyGetAssignments) Get(ctx context.Context, id uint) (*models.Assignment, error) {
	if a.owner.getsLeft <= 0 {
		return nil, a.owner.getErr
	}
	a.owner.getsLeft--
	return a.owner.Store.Assignments().Get(ctx, id)
}

// A store failure while telling a stale write apart from a deleted row must
// surface as a store error, not as a version conflict.
func TestUpdate_StoreErrorNotReportedAsConflict(t *testing.T) {
	base := seededStore()
	base.AddAssignment(models.Assignment{
		ID: 1, TeamMemberID: 7, PhaseID: 1, Role: "developer", WorkingPercentage: 40,
		StartDate: date(2025, 1, 1), Version: 2,
	})
	storeErr := errors.New("connection reset by peer")
	st := &flakyGetStore{Store: base, getErr: storeErr, getsLeft: 1}

	logger := zap.NewNop().Sugar()
	manager := services.NewAssignmentManager(st,
		services.NewAllocationLedger(st, false, logger),
		services.NewAuditTrail(st, logger), logger)

	// Stale version forces the zero-rows path; the distinguishing read fails.
	_, err := manager.Update(context.Background(), 1, services.AssignmentPatch{
		WorkingPercentage: intPtr(50),
		Version:           1,
	}, testActor)
	require.ErrorIs(t, err, storeErr)
	require.NotErrorIs(t, err, services.ErrVersionConflict)

	// Stored state untouched, no audit entry.
	require.Equal(t, 40, base.AssignmentsByID[1].WorkingPercentage)
	require.Empty(t, base.AuditLog)
}

func TestAssign_AuditFailureRollsBack(t *testing.T) {
	st := seededStore()
	st.AuditAppendErr = errors.New("audit store unavailable")
	manager := newManager(st)

	_, err := manager.Assign(context.Background(), services.AssignInput{
		PhaseID: 1, TeamMemberID: 7, Role: "developer", WorkingPercentage: 50, StartDate: date(2025, 1, 1),
	}, testActor)
	require.Error(t, err)

	// Audit writes are transactional with the mutation: no assignment may
	// exist without its audit entry.
	require.Empty(t, st.AssignmentsByID)
	require.Empty(t, st.AuditLog)
}
