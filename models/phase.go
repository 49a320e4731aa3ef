package models

import (
	"time"
)

type PhaseStatus string

const (
	PhasePlanned    PhaseStatus = "PLANNED"
	PhaseInProgress PhaseStatus = "IN_PROGRESS"
	PhaseOnHold     PhaseStatus = "ON_HOLD"
	PhaseCompleted  PhaseStatus = "COMPLETED"
)

type Phase struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
	ProjectID        uint         `gorm:"not null;index" json:"project_id"`
	Project          *Project     `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Name             string       `gorm:"not null;size:200" json:"name"`
	StartDate        time.Time    `gorm:"not null;type:date" json:"start_date"`
	DurationDays     int          `gorm:"not null;default:0" json:"duration_days"`
	EstimatedEndDate *time.Time   `gorm:"type:date" json:"estimated_end_date"`
	ActualEndDate    *time.Time   `gorm:"type:date" json:"actual_end_date"`
	Status           PhaseStatus  `gorm:"not null;size:20;default:PLANNED" json:"status"`
	Version          int          `gorm:"not null;default:1" json:"version"`
	Tasks            []Task       `gorm:"foreignKey:PhaseID" json:"tasks,omitempty"`
	Assignments      []Assignment `gorm:"foreignKey:PhaseID" json:"assignments,omitempty"`
}

// EffectiveEnd is the date used for overlap detection: the actual end when
// the phase has finished, the estimate when one exists, otherwise the start
// date plus the planned duration.
func (p *Phase) EffectiveEnd() time.Time {
	if p.ActualEndDate != nil {
		return *p.ActualEndDate
	}
	if p.EstimatedEndDate != nil {
		return *p.EstimatedEndDate
	}
	return p.StartDate.AddDate(0, 0, p.DurationDays)
}
