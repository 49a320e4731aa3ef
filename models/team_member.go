package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleManager    Role = "MANAGER"
	RoleTeamLeader Role = "TEAM_LEADER"
	RoleTeamMember Role = "TEAM_MEMBER"
)

type TeamMember struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Name         string         `gorm:"not null;size:200" json:"name"`
	Email        string         `gorm:"uniqueIndex;not null;size:200" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Role         Role           `gorm:"not null;size:20" json:"role"`
	Active       bool           `gorm:"default:true" json:"active"`
	Assignments  []Assignment   `gorm:"foreignKey:TeamMemberID" json:"assignments,omitempty"`
}
