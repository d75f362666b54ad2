package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"freight/internal/domain"
)

const trackingTTL = 7 * 24 * time.Hour

// TrackingStore is the opaque sink for trip tracking points. Points are
// appended to a per-trip list and expire with the list; nothing in the
// lifecycle core reads them back.
type TrackingStore struct {
	client *redis.Client
}

// NewTrackingStore creates a new TrackingStore.
func NewTrackingStore(client *redis.Client) *TrackingStore {
	return &TrackingStore{client: client}
}

func trackingKey(tripID string) string {
	return fmt.Sprintf("trip:tracking:%s", tripID)
}

// Append records a tracking point for a trip.
func (s *TrackingStore) Append(ctx context.Context, point *domain.TrackingPoint) error {
	data, err := json.Marshal(point)
	if err != nil {
		return err
	}

	key := trackingKey(point.TripID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, trackingTTL)
	_, err = pipe.Exec(ctx)

	return err
}

// GetByTrip returns the recorded points for a trip in insertion order.
func (s *TrackingStore) GetByTrip(ctx context.Context, tripID string) ([]*domain.TrackingPoint, error) {
	items, err := s.client.LRange(ctx, trackingKey(tripID), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	points := make([]*domain.TrackingPoint, 0, len(items))
	for _, item := range items {
		var point domain.TrackingPoint
		if err := json.Unmarshal([]byte(item), &point); err != nil {
			return nil, err
		}
		points = append(points, &point)
	}

	return points, nil
}
