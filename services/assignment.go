package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"planboard/metrics"
	"planboard/models"
	"planboard/store"
)

// AssignInput is the payload for creating an assignment.
type AssignInput struct {
	PhaseID           uint       `json:"phase_id"`
	TeamMemberID      uint       `json:"team_member_id"`
	Role              string     `json:"role"`
	WorkingPercentage int        `json:"working_percentage"`
	StartDate         time.Time  `json:"start_date"`
	EndDate           *time.Time `json:"end_date"`
}

// AssignmentPatch carries the fields of an update. Nil pointers leave the
// stored value untouched; ClearEndDate makes the assignment open-ended.
// Version is the version the caller last read.
type AssignmentPatch struct {
	Role              *string
	WorkingPercentage *int
	StartDate         *time.Time
	EndDate           *time.Time
	ClearEndDate      bool
	Version           int
}

// AssignmentManager orchestrates assignment mutations. Each operation runs
// as one transaction: existence checks, the member-level row lock, the
// allocation check, the write and the audit entry either all commit or all
// roll back.
type AssignmentManager struct {
	store  store.Store
	ledger *AllocationLedger
	audit  *AuditTrail
	logger *zap.SugaredLogger
}

func NewAssignmentManager(st store.Store, ledger *AllocationLedger, audit *AuditTrail, logger *zap.SugaredLogger) *AssignmentManager {
	return &AssignmentManager{store: st, ledger: ledger, audit: audit, logger: logger}
}

func (m *AssignmentManager) Assign(ctx context.Context, in AssignInput, actor Actor) (*models.Assignment, error) {
	if err := validateAssignInput(in); err != nil {
		metrics.AssignmentOp("assign", "rejected")
		return nil, err
	}

	var created models.Assignment
	err := m.store.InTx(ctx, func(st store.Store) error {
		if _, err := st.Phases().Get(ctx, in.PhaseID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &NotFoundError{Entity: "phase", ID: in.PhaseID}
			}
			return fmt.Errorf("load phase %d: %w", in.PhaseID, err)
		}
		if _, err := st.Members().Get(ctx, in.TeamMemberID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &NotFoundError{Entity: "team member", ID: in.TeamMemberID}
			}
			return fmt.Errorf("load team member %d: %w", in.TeamMemberID, err)
		}

		if err := st.Assignments().LockForMember(ctx, in.TeamMemberID); err != nil {
			return fmt.Errorf("lock assignments for member %d: %w", in.TeamMemberID, err)
		}
		check, err := m.ledger.CheckWith(ctx, st, AllocationQuery{
			TeamMemberID:       in.TeamMemberID,
			ProposedPercentage: in.WorkingPercentage,
			StartDate:          in.StartDate,
			EndDate:            in.EndDate,
		})
		if err != nil {
			return err
		}
		if check.IsOverallocated {
			return &OverallocationError{
				CurrentAllocation:  check.CurrentAllocation,
				ProposedAllocation: check.ProposedAllocation,
				Warning:            check.Warning,
			}
		}

		created = models.Assignment{
			PhaseID:           in.PhaseID,
			TeamMemberID:      in.TeamMemberID,
			Role:              in.Role,
			WorkingPercentage: in.WorkingPercentage,
			StartDate:         in.StartDate,
			EndDate:           in.EndDate,
			Version:           1,
		}
		if err := st.Assignments().Create(ctx, &created); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return &ValidationError{Field: "role", Reason: "team member already holds this role in the phase"}
			}
			return fmt.Errorf("create assignment: %w", err)
		}

		_, err = m.audit.LogCreate(ctx, st, EntityAssignment, created.ID, actor, created)
		return err
	})
	if err != nil {
		metrics.AssignmentOp("assign", "rejected")
		return nil, err
	}

	metrics.AssignmentOp("assign", "ok")
	m.logger.Infow("assignment created",
		"assignmentID", created.ID,
		"phaseID", in.PhaseID,
		"teamMemberID", in.TeamMemberID,
		"workingPercentage", in.WorkingPercentage,
		"actorID", actor.ID)
	return m.store.Assignments().GetDetailed(ctx, created.ID)
}

func (m *AssignmentManager) Update(ctx context.Context, id uint, patch AssignmentPatch, actor Actor) (*models.Assignment, error) {
	err := m.store.InTx(ctx, func(st store.Store) error {
		existing, err := st.Assignments().Get(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &NotFoundError{Entity: "assignment", ID: id}
			}
			return fmt.Errorf("load assignment %d: %w", id, err)
		}

		merged := *existing
		fields := map[string]any{}
		if patch.Role != nil {
			merged.Role = *patch.Role
			fields["role"] = *patch.Role
		}
		if patch.WorkingPercentage != nil {
			merged.WorkingPercentage = *patch.WorkingPercentage
			fields["working_percentage"] = *patch.WorkingPercentage
		}
		if patch.StartDate != nil {
			merged.StartDate = *patch.StartDate
			fields["start_date"] = *patch.StartDate
		}
		if patch.ClearEndDate {
			merged.EndDate = nil
			fields["end_date"] = nil
		} else if patch.EndDate != nil {
			merged.EndDate = patch.EndDate
			fields["end_date"] = patch.EndDate
		}
		if err := validateAssignmentFields(merged.Role, merged.WorkingPercentage, merged.StartDate, merged.EndDate); err != nil {
			return err
		}

		if patch.WorkingPercentage != nil {
			if err := st.Assignments().LockForMember(ctx, existing.TeamMemberID); err != nil {
				return fmt.Errorf("lock assignments for member %d: %w", existing.TeamMemberID, err)
			}
			excludeID := existing.ID
			check, err := m.ledger.CheckWith(ctx, st, AllocationQuery{
				TeamMemberID:        existing.TeamMemberID,
				ProposedPercentage:  merged.WorkingPercentage,
				ExcludeAssignmentID: &excludeID,
				StartDate:           merged.StartDate,
				EndDate:             merged.EndDate,
			})
			if err != nil {
				return err
			}
			if check.IsOverallocated {
				return &OverallocationError{
					CurrentAllocation:  check.CurrentAllocation,
					ProposedAllocation: check.ProposedAllocation,
					Warning:            check.Warning,
				}
			}
		}

		rows, err := st.Assignments().UpdateVersioned(ctx, id, patch.Version, fields)
		if err != nil {
			return fmt.Errorf("update assignment %d: %w", id, err)
		}
		if rows == 0 {
			// Zero rows means the row is gone or the version is stale; a
			// second read tells the two apart.
			if _, err := st.Assignments().Get(ctx, id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return &NotFoundError{Entity: "assignment", ID: id}
				}
				return fmt.Errorf("reload assignment %d: %w", id, err)
			}
			metrics.VersionConflict(string(store.KindAssignment))
			return ErrVersionConflict
		}
		merged.Version = existing.Version + 1

		_, err = m.audit.LogUpdate(ctx, st, EntityAssignment, id, actor, existing, merged)
		return err
	})
	if err != nil {
		metrics.AssignmentOp("update", "rejected")
		return nil, err
	}

	metrics.AssignmentOp("update", "ok")
	m.logger.Infow("assignment updated", "assignmentID", id, "actorID", actor.ID)
	return m.store.Assignments().GetDetailed(ctx, id)
}

// Remove deletes an assignment. A non-nil version makes the delete
// conditional on the caller holding the current version.
func (m *AssignmentManager) Remove(ctx context.Context, id uint, version *int, actor Actor) error {
	err := m.store.InTx(ctx, func(st store.Store) error {
		existing, err := st.Assignments().Get(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &NotFoundError{Entity: "assignment", ID: id}
			}
			return fmt.Errorf("load assignment %d: %w", id, err)
		}

		var rows int64
		if version != nil {
			rows, err = st.Assignments().DeleteVersioned(ctx, id, *version)
		} else {
			rows, err = st.Assignments().Delete(ctx, id)
		}
		if err != nil {
			return fmt.Errorf("delete assignment %d: %w", id, err)
		}
		if rows == 0 {
			if version != nil {
				metrics.VersionConflict(string(store.KindAssignment))
				return ErrVersionConflict
			}
			return &NotFoundError{Entity: "assignment", ID: id}
		}

		_, err = m.audit.LogDelete(ctx, st, EntityAssignment, id, actor, existing)
		return err
	})
	if err != nil {
		metrics.AssignmentOp("remove", "rejected")
		return err
	}

	metrics.AssignmentOp("remove", "ok")
	m.logger.Infow("assignment removed", "assignmentID", id, "actorID", actor.ID)
	return nil
}

func (m *AssignmentManager) ListByMember(ctx context.Context, memberID uint) ([]models.Assignment, error) {
	return m.store.Assignments().ListByMember(ctx, memberID)
}

func (m *AssignmentManager) ListByPhase(ctx context.Context, phaseID uint) ([]models.Assignment, error) {
	return m.store.Assignments().ListByPhase(ctx, phaseID)
}

func (m *AssignmentManager) ListByProject(ctx context.Context, projectID uint) ([]models.Assignment, error) {
	return m.store.Assignments().ListByProject(ctx, projectID)
}

func validateAssignInput(in AssignInput) error {
	if in.PhaseID == 0 {
		return &ValidationError{Field: "phase_id", Reason: "required"}
	}
	if in.TeamMemberID == 0 {
		return &ValidationError{Field: "team_member_id", Reason: "required"}
	}
	return validateAssignmentFields(in.Role, in.WorkingPercentage, in.StartDate, in.EndDate)
}

func validateAssignmentFields(role string, pct int, start time.Time, end *time.Time) error {
	if role == "" {
		return &ValidationError{Field: "role", Reason: "required"}
	}
	if pct < 1 || pct > MaxAllocation {
		return &ValidationError{Field: "working_percentage", Reason: "must be between 1 and 100"}
	}
	if start.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "required"}
	}
	if end != nil && end.Before(start) {
		return &ValidationError{Field: "end_date", Reason: "must not be before start_date"}
	}
	return nil
}
