package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

// Binder appends display records to the per-kind ordered collections, one view
// item per record.
type Binder struct {
	store domain.RecordStore
}

func NewBinder(store domain.RecordStore) *Binder {
	return &Binder{store: store}
}

// Bind appends records to kind's collection in order and returns the created items.
func (b *Binder) Bind(ctx context.Context, kind domain.SensorKind, records []domain.DisplayRecord) ([]domain.ViewItem, error) {
	if len(records) == 0 {
		return nil, nil
	}

	offset, err := b.store.Len(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s collection length: %w", kind, err)
	}

	items := make([]domain.ViewItem, 0, len(records))
	for i, rec := range records {
		items = append(items, domain.ViewItem{
			ID:       uuid.New(),
			Kind:     kind,
			Position: offset + i,
			Record:   rec,
		})
	}

	if err := b.store.Append(ctx, kind, items); err != nil {
		return nil, fmt.Errorf("failed to bind %s records: %w", kind, err)
	}
	return items, nil
}

// Items returns kind's collection in display order.
func (b *Binder) Items(ctx context.Context, kind domain.SensorKind) ([]domain.ViewItem, error) {
	items, err := b.store.List(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s collection: %w", kind, err)
	}
	return items, nil
}

// Clear empties every collection.
func (b *Binder) Clear(ctx context.Context) error {
	if err := b.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear collections: %w", err)
	}
	return nil
}
