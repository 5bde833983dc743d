package memory

import (
	"context"
	"sort"
	"time"

	"github.com/iho/genfin/internal/domain"
	"github.com/iho/genfin/internal/usecase"
)

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// Create creates a new outbox event within a transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	r.store.outbox.put(asTx(tx), event.ID, *event)
	return nil
}

// GetUnpublished retrieves unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	events := r.store.outbox.list(nil, func(e *domain.OutboxEvent) bool { return !e.Published })

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})

	return page(events, limit, 0), nil
}

// MarkPublished marks an event as published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, id string, publishedAt time.Time) error {
	found, err := r.store.outbox.modify(id, func(e *domain.OutboxEvent) {
		e.Published = true
		e.PublishedAt = &publishedAt
	})
	if err != nil {
		return err
	}
	if !found {
		return domain.NewNotFoundError("outbox_event", id)
	}

	return nil
}

// GetByAggregate retrieves events for a specific aggregate.
func (r *OutboxRepository) GetByAggregate(ctx context.Context, aggregateType, aggregateID string, limit, offset int) ([]*domain.OutboxEvent, error) {
	events := r.store.outbox.list(nil, func(e *domain.OutboxEvent) bool {
		return e.AggregateType == aggregateType && e.AggregateID == aggregateID
	})

	return page(events, limit, offset), nil
}

// DeletePublished deletes published events older than the given time.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time) error {
	return r.store.outbox.deleteWhere(func(e *domain.OutboxEvent) bool {
		return e.Published && e.PublishedAt != nil && e.PublishedAt.Before(before)
	})
}
