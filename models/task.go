package models

import (
	"time"
)

type TaskStatus string

const (
	TaskOpen       TaskStatus = "OPEN"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskDone       TaskStatus = "DONE"
)

type Task struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	PhaseID     uint        `gorm:"not null;index" json:"phase_id"`
	Phase       *Phase      `gorm:"foreignKey:PhaseID" json:"phase,omitempty"`
	Name        string      `gorm:"not null;size:200" json:"name"`
	Description string      `gorm:"size:1000" json:"description"`
	AssigneeID  *uint       `gorm:"index" json:"assignee_id"`
	Assignee    *TeamMember `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	StartDate   *time.Time  `gorm:"type:date" json:"start_date"`
	EndDate     *time.Time  `gorm:"type:date" json:"end_date"`
	Status      TaskStatus  `gorm:"not null;size:20;default:OPEN" json:"status"`
	Version     int         `gorm:"not null;default:1" json:"version"`
}
