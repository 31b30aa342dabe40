package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auditorium-booking/internal/cache"
	"github.com/iliyamo/auditorium-booking/internal/model"
)

// SeatMapCache stores rendered seat maps per showtime.
//
// A filler reads Generation before loading the map from the store and
// hands it back to SetIfGeneration.  Invalidate must advance the
// generation so fills that raced a booking are dropped.
type SeatMapCache interface {
	Get(ctx context.Context, showtimeID int64) (model.SeatMap, bool, error)
	Generation(ctx context.Context, showtimeID int64) (int64, error)
	SetIfGeneration(ctx context.Context, m model.SeatMap, gen int64) (bool, error)
	Invalidate(ctx context.Context, showtimeID int64) error
}

// NewSeatMapCache returns a Redis backed cache, or a no-op cache when rdb
// is nil so the service runs without Redis.
func NewSeatMapCache(rdb *redis.Client, prefix string, ttl time.Duration) SeatMapCache {
	if rdb == nil || ttl <= 0 {
		return nopSeatMapCache{}
	}
	return cache.NewSeatMaps(rdb, prefix, ttl)
}

type nopSeatMapCache struct{}

func (nopSeatMapCache) Get(context.Context, int64) (model.SeatMap, bool, error) {
	return model.SeatMap{}, false, nil
}
func (nopSeatMapCache) Generation(context.Context, int64) (int64, error) { return 0, nil }
func (nopSeatMapCache) SetIfGeneration(context.Context, model.SeatMap, int64) (bool, error) {
	return false, nil
}
func (nopSeatMapCache) Invalidate(context.Context, int64) error { return nil }
