package usecase

import (
	"context"

	"github.com/iho/gymledger/internal/domain"
)

// journal writes the outbox event and audit row that accompany a change,
// inside the caller's transaction. Either repository may be nil.
type journal struct {
	outbox OutboxRepository
	audit  AuditRepository
	idGen  IDGenerator
	clock  Clock
}

func (j journal) event(ctx context.Context, tx Transaction, aggregateType, aggregateID, eventType string, payload any) error {
	if j.outbox == nil {
		return nil
	}
	tenantID, _ := domain.TenantFromContext(ctx)
	return j.outbox.Create(ctx, tx, &domain.OutboxEvent{
		ID:            j.idGen.Generate(),
		TenantID:      tenantID,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       domain.MarshalState(payload),
		CreatedAt:     j.clock.Now(),
	})
}

func (j journal) record(ctx context.Context, tx Transaction, action domain.AuditAction, resourceType, resourceID string, before, after any) error {
	if j.audit == nil {
		return nil
	}
	tenantID, _ := domain.TenantFromContext(ctx)
	log := &domain.AuditLog{
		ID:           j.idGen.Generate(),
		TenantID:     tenantID,
		UserID:       domain.ActorFromContext(ctx),
		Action:       string(action),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Status:       string(domain.AuditStatusSuccess),
		CreatedAt:    j.clock.Now(),
	}
	if before != nil {
		log.BeforeState = domain.MarshalState(before)
	}
	if after != nil {
		log.AfterState = domain.MarshalState(after)
	}
	return j.audit.CreateTx(ctx, tx, log)
}
