package redis

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/tompaana/sensorcore-explorer/internal/domain"
)

const keyPrefix = "sensorexplorer:records:"

// RecordStore keeps each display collection as a Redis list of JSON view items.
type RecordStore struct {
	rdb goredis.UniversalClient
}

var _ domain.RecordStore = (*RecordStore)(nil)

func NewRecordStore(rdb goredis.UniversalClient) *RecordStore {
	return &RecordStore{rdb: rdb}
}

func recordsKey(kind domain.SensorKind) string {
	return keyPrefix + string(kind)
}

// Append pushes items onto the tail of kind's list in one transaction.
func (s *RecordStore) Append(ctx context.Context, kind domain.SensorKind, items []domain.ViewItem) error {
	if len(items) == 0 {
		return nil
	}

	values := make([]any, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("marshal view item: %w", err)
		}
		values = append(values, data)
	}

	if err := s.rdb.RPush(ctx, recordsKey(kind), values...).Err(); err != nil {
		return fmt.Errorf("rpush %s: %w", kind, err)
	}
	return nil
}

func (s *RecordStore) List(ctx context.Context, kind domain.SensorKind) ([]domain.ViewItem, error) {
	raw, err := s.rdb.LRange(ctx, recordsKey(kind), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", kind, err)
	}

	items := make([]domain.ViewItem, 0, len(raw))
	for _, r := range raw {
		var item domain.ViewItem
		if err := json.Unmarshal([]byte(r), &item); err != nil {
			return nil, fmt.Errorf("unmarshal %s view item: %w", kind, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *RecordStore) Len(ctx context.Context, kind domain.SensorKind) (int, error) {
	n, err := s.rdb.LLen(ctx, recordsKey(kind)).Result()
	if err != nil {
		return 0, fmt.Errorf("llen %s: %w", kind, err)
	}
	return int(n), nil
}

// Clear deletes every collection.
func (s *RecordStore) Clear(ctx context.Context) error {
	keys := make([]string, 0, len(domain.SensorKinds))
	for _, kind := range domain.SensorKinds {
		keys = append(keys, recordsKey(kind))
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("clear collections: %w", err)
	}
	return nil
}
