package models

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditCreate       AuditAction = "CREATE"
	AuditUpdate       AuditAction = "UPDATE"
	AuditDelete       AuditAction = "DELETE"
	AuditStatusChange AuditAction = "STATUS_CHANGE"
)

// AuditLogEntry records one mutation. Entries are append-only: nothing in
// this codebase updates or deletes them.
type AuditLogEntry struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
	EntityType string          `gorm:"not null;size:50;index:idx_audit_entity" json:"entity_type"`
	EntityID   uint            `gorm:"not null;index:idx_audit_entity" json:"entity_id"`
	Action     AuditAction     `gorm:"not null;size:20" json:"action"`
	ActorID    uint            `gorm:"not null;index" json:"actor_id"`
	ActorRole  Role            `gorm:"not null;size:20" json:"actor_role"`
	Payload    json.RawMessage `gorm:"type:jsonb" json:"payload,omitempty"`
}
