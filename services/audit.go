package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"planboard/models"
	"planboard/store"
)

// Entity type tags used in audit entries.
const (
	EntityProject    = "project"
	EntityPhase      = "phase"
	EntityTask       = "task"
	EntityAssignment = "assignment"
)

// Actor identifies who performs a mutation. Identity is recorded for audit
// only; authorization happens at the transport layer.
type Actor struct {
	ID   uint
	Role models.Role
}

// AuditTrail appends immutable entries for every successful mutation. Writes
// go through the caller's transaction-bound store, so a failed audit write
// rolls the business mutation back with it.
type AuditTrail struct {
	store  store.Store
	logger *zap.SugaredLogger
}

func NewAuditTrail(st store.Store, logger *zap.SugaredLogger) *AuditTrail {
	return &AuditTrail{store: st, logger: logger}
}

func (t *AuditTrail) LogCreate(ctx context.Context, st store.Store, entityType string, entityID uint, actor Actor, after any) (*models.AuditLogEntry, error) {
	return t.append(ctx, st, entityType, entityID, models.AuditCreate, actor, map[string]any{"after": after})
}

func (t *AuditTrail) LogUpdate(ctx context.Context, st store.Store, entityType string, entityID uint, actor Actor, before, after any) (*models.AuditLogEntry, error) {
	return t.append(ctx, st, entityType, entityID, models.AuditUpdate, actor, map[string]any{"before": before, "after": after})
}

func (t *AuditTrail) LogDelete(ctx context.Context, st store.Store, entityType string, entityID uint, actor Actor, before any) (*models.AuditLogEntry, error) {
	return t.append(ctx, st, entityType, entityID, models.AuditDelete, actor, map[string]any{"before": before})
}

func (t *AuditTrail) LogStatusChange(ctx context.Context, st store.Store, entityType string, entityID uint, actor Actor, oldStatus, newStatus string) (*models.AuditLogEntry, error) {
	return t.append(ctx, st, entityType, entityID, models.AuditStatusChange, actor, map[string]any{"oldStatus": oldStatus, "newStatus": newStatus})
}

func (t *AuditTrail) append(ctx context.Context, st store.Store, entityType string, entityID uint, action models.AuditAction, actor Actor, payload map[string]any) (*models.AuditLogEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload for %s %d: %w", entityType, entityID, err)
	}

	entry := &models.AuditLogEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Payload:    raw,
	}
	if err := st.Audit().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append audit entry for %s %d: %w", entityType, entityID, err)
	}
	return entry, nil
}

func (t *AuditTrail) ListByEntity(ctx context.Context, entityType string, entityID uint, limit int) ([]models.AuditLogEntry, error) {
	return t.store.Audit().ListByEntity(ctx, entityType, entityID, normalizeLimit(limit))
}

func (t *AuditTrail) ListByActor(ctx context.Context, actorID uint, limit int) ([]models.AuditLogEntry, error) {
	return t.store.Audit().ListByActor(ctx, actorID, normalizeLimit(limit))
}

func (t *AuditTrail) Recent(ctx context.Context, limit int) ([]models.AuditLogEntry, error) {
	return t.store.Audit().Recent(ctx, normalizeLimit(limit))
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
