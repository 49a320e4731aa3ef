package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"planboard/store"
)

// MaxAllocation is the hard capacity cap per team member, in percent.
const MaxAllocation = 100

// AllocationQuery describes a proposed commitment to evaluate.
type AllocationQuery struct {
	TeamMemberID       uint
	ProposedPercentage int
	// ExcludeAssignmentID drops the assignment's own current contribution
	// from the total when re-evaluating an update, so it is not counted
	// twice.
	ExcludeAssignmentID *uint
	// StartDate/EndDate bound the proposed commitment; only consulted in
	// windowed mode.
	StartDate time.Time
	EndDate   *time.Time
}

type AllocationResult struct {
	IsOverallocated    bool   `json:"is_overallocated"`
	CurrentAllocation  int    `json:"current_allocation"`
	ProposedAllocation int    `json:"proposed_allocation"`
	Warning            string `json:"warning,omitempty"`
}

// AllocationLedger computes a team member's committed capacity. It is a pure
// read: callers decide what to do with the result.
//
// By default every assignment counts toward the cap regardless of dates
// (the cap is organization-wide). With windowed=true only assignments whose
// date range overlaps the proposed one count.
type AllocationLedger struct {
	store    store.Store
	windowed bool
	logger   *zap.SugaredLogger
}

func NewAllocationLedger(st store.Store, windowed bool, logger *zap.SugaredLogger) *AllocationLedger {
	return &AllocationLedger{store: st, windowed: windowed, logger: logger}
}

func (l *AllocationLedger) Check(ctx context.Context, q AllocationQuery) (AllocationResult, error) {
	return l.CheckWith(ctx, l.store, q)
}

// CheckWith evaluates the query against the given store, which lets
// AssignmentManager run the check inside its own transaction.
func (l *AllocationLedger) CheckWith(ctx context.Context, st store.Store, q AllocationQuery) (AllocationResult, error) {
	assignments, err := st.Assignments().ListByMember(ctx, q.TeamMemberID)
	if err != nil {
		return AllocationResult{}, fmt.Errorf("load assignments for member %d: %w", q.TeamMemberID, err)
	}

	current := 0
	for _, a := range assignments {
		if q.ExcludeAssignmentID != nil && a.ID == *q.ExcludeAssignmentID {
			continue
		}
		if l.windowed && !a.Overlaps(q.StartDate, q.EndDate) {
			continue
		}
		current += a.WorkingPercentage
	}

	result := AllocationResult{
		CurrentAllocation:  current,
		ProposedAllocation: current + q.ProposedPercentage,
	}
	if result.ProposedAllocation > MaxAllocation {
		result.IsOverallocated = true
		result.Warning = fmt.Sprintf(
			"team member %d would be allocated at %d%%, exceeding the %d%% capacity limit",
			q.TeamMemberID, result.ProposedAllocation, MaxAllocation)
		l.logger.Debugw("overallocation detected",
			"teamMemberID", q.TeamMemberID,
			"current", current,
			"proposed", result.ProposedAllocation)
	}
	return result, nil
}
