package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/gymledger/internal/domain"
	"github.com/iho/gymledger/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	s *Store
}

func NewOutboxRepository(s *Store) *OutboxRepository {
	return &OutboxRepository{s: s}
}

func (r *OutboxRepository) Create(_ context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	return r.s.write(tx, func() (func(), error) {
		c := *event
		return put(r.s.outbox, c.ID, &c), nil
	})
}

// GetUnpublished returns pending events of every tenant, oldest first.
func (r *OutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.OutboxEvent, 0)
	for _, e := range r.s.outbox {
		if !e.Published {
			c := *e
			result = append(result, &c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return page(result, limit, 0), nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if e, ok := r.s.outbox[id]; ok {
		c := *e
		c.Published = true
		c.PublishedAt = &publishedAt
		r.s.outbox[id] = &c
	}
	return nil
}

func (r *OutboxRepository) DeletePublished(_ context.Context, before time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, e := range r.s.outbox {
		if e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before) {
			delete(r.s.outbox, id)
		}
	}
	return nil
}

// AuditRepository implements usecase.AuditRepository.
type AuditRepository struct {
	s *Store
}

func NewAuditRepository(s *Store) *AuditRepository {
	return &AuditRepository{s: s}
}

func (r *AuditRepository) CreateTx(_ context.Context, tx usecase.Transaction, log *domain.AuditLog) error {
	return r.s.write(tx, func() (func(), error) {
		c := *log
		prev := r.s.audit
		r.s.audit = append(r.s.audit[:len(prev):len(prev)], &c)
		return func() { r.s.audit = prev }, nil
	})
}

func (r *AuditRepository) List(ctx context.Context, filter domain.AuditFilter) ([]*domain.AuditLog, error) {
	tenantID, err := domain.MustTenant(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	result := make([]*domain.AuditLog, 0)
	for i := len(r.s.audit) - 1; i >= 0; i-- {
		l := r.s.audit[i]
		switch {
		case l.TenantID != tenantID:
			continue
		case filter.UserID != "" && l.UserID != filter.UserID:
			continue
		case filter.Action != "" && l.Action != filter.Action:
			continue
		case filter.ResourceType != "" && l.ResourceType != filter.ResourceType:
			continue
		case filter.ResourceID != "" && l.ResourceID != filter.ResourceID:
			continue
		case filter.StartDate != nil && l.CreatedAt.Before(*filter.StartDate):
			continue
		case filter.EndDate != nil && l.CreatedAt.After(*filter.EndDate):
			continue
		}
		c := *l
		result = append(result, &c)
	}
	limit, offset := domain.ValidatePagination(filter.Limit, filter.Offset)
	return page(result, limit, offset), nil
}
