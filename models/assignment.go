package models

import (
	"time"
)

// Assignment commits a slice of a team member's working capacity to a phase
// over a date range. A nil EndDate means the commitment is open-ended.
type Assignment struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
	PhaseID           uint        `gorm:"not null;index;uniqueIndex:idx_assignment_phase_member_role" json:"phase_id"`
	Phase             *Phase      `gorm:"foreignKey:PhaseID" json:"phase,omitempty"`
	TeamMemberID      uint        `gorm:"not null;index;uniqueIndex:idx_assignment_phase_member_role" json:"team_member_id"`
	TeamMember        *TeamMember `gorm:"foreignKey:TeamMemberID" json:"team_member,omitempty"`
	Role              string      `gorm:"not null;size:100;uniqueIndex:idx_assignment_phase_member_role" json:"role"`
	WorkingPercentage int         `gorm:"not null" json:"working_percentage"`
	StartDate         time.Time   `gorm:"not null;type:date" json:"start_date"`
	EndDate           *time.Time  `gorm:"type:date" json:"end_date"`
	Version           int         `gorm:"not null;default:1" json:"version"`
}

// Overlaps reports whether the assignment's date range intersects the given
// range. Nil ends are treated as unbounded.
func (a *Assignment) Overlaps(start time.Time, end *time.Time) bool {
	if end != nil && !a.StartDate.Before(*end) {
		return false
	}
	if a.EndDate != nil && !start.Before(*a.EndDate) {
		return false
	}
	return true
}
