package models

import (
	"time"
)

type ConflictType string

const (
	ConflictPhaseOverlap      ConflictType = "PHASE_OVERLAP"
	ConflictResourceOveralloc ConflictType = "RESOURCE_OVERALLOC"
)

// Conflict is a detected scheduling problem. Conflicts are computed on read
// and never persisted.
type Conflict struct {
	Type         ConflictType `json:"type"`
	ProjectID    uint         `json:"project_id,omitempty"`
	PhaseIDs     []uint       `json:"phase_ids,omitempty"`
	TeamMemberID uint         `json:"team_member_id,omitempty"`
	Description  string       `json:"description"`
}

// TimelineFilter scopes a timeline query. Nil fields mean no restriction.
type TimelineFilter struct {
	StartDate    *time.Time
	EndDate      *time.Time
	ProjectID    *uint
	TeamMemberID *uint
}
