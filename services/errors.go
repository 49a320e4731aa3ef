package services

import (
	"errors"
	"fmt"
)

// ErrVersionConflict is returned when a submitted version no longer matches
// the stored one. It is never retried here; the caller must re-fetch.
var ErrVersionConflict = errors.New("Version conflict: the record was modified by another user. Please refresh and try again.")

// ValidationError reports malformed input, caught before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing referenced entity.
type NotFoundError struct {
	Entity string
	ID     uint
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// OverallocationError rejects a change that would push a team member past
// 100% capacity. It carries both allocation totals.
type OverallocationError struct {
	CurrentAllocation  int
	ProposedAllocation int
	Warning            string
}

func (e *OverallocationError) Error() string {
	return e.Warning
}
