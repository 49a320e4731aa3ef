package models

import (
	"time"
)

type ProjectStatus string

const (
	ProjectPlanned    ProjectStatus = "PLANNED"
	ProjectInProgress ProjectStatus = "IN_PROGRESS"
	ProjectOnHold     ProjectStatus = "ON_HOLD"
	ProjectCompleted  ProjectStatus = "COMPLETED"
)

type Project struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Name        string        `gorm:"uniqueIndex;not null;size:200" json:"name"`
	Description string        `gorm:"size:1000" json:"description"`
	StartDate   time.Time     `gorm:"not null;type:date" json:"start_date"`
	EndDate     *time.Time    `gorm:"type:date" json:"end_date"`
	Status      ProjectStatus `gorm:"not null;size:20;default:PLANNED" json:"status"`
	Version     int           `gorm:"not null;default:1" json:"version"`
	Phases      []Phase       `gorm:"foreignKey:ProjectID" json:"phases,omitempty"`
}
