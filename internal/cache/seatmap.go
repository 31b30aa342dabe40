// Package cache keeps rendered seat maps in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// setIfGeneration writes KEYS[1] only while the generation counter in
// KEYS[2] still holds ARGV[1].  A missing counter reads as 0.
var setIfGeneration = redis.NewScript(`
local cur = redis.call('GET', KEYS[2]) or '0'
if cur ~= ARGV[1] then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// generationTTL bounds how long an idle showtime's counter lives.  It only
// has to outlast a single cache fill.
const generationTTL = 24 * time.Hour

// SeatMaps stores seat maps as JSON under prefix:showtimeID with a
// per-showtime generation counter under prefix:gen:showtimeID.
//
// Readers take the generation before reading the database and write back
// with SetIfGeneration.  Invalidate bumps the counter, so a map read before
// a booking committed is never written over the invalidation.
type SeatMaps struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

func NewSeatMaps(rdb *redis.Client, prefix string, ttl time.Duration) *SeatMaps {
	if prefix == "" {
		prefix = "seatmap"
	}
	return &SeatMaps{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (c *SeatMaps) key(showtimeID int64) string {
	return fmt.Sprintf("%s:%d", c.prefix, showtimeID)
}

func (c *SeatMaps) genKey(showtimeID int64) string {
	return fmt.Sprintf("%s:gen:%d", c.prefix, showtimeID)
}

func (c *SeatMaps) Get(ctx context.Context, showtimeID int64) (model.SeatMap, bool, error) {
	var m model.SeatMap
	bs, err := c.rdb.Get(ctx, c.key(showtimeID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return m, false, nil
	}
	if err != nil {
		return m, false, err
	}
	if err := json.Unmarshal(bs, &m); err != nil {
		return m, false, err
	}
	return m, true, nil
}

// Generation returns the showtime's current counter, 0 when unset.
func (c *SeatMaps) Generation(ctx context.Context, showtimeID int64) (int64, error) {
	n, err := c.rdb.Get(ctx, c.genKey(showtimeID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// SetIfGeneration stores m unless the showtime was invalidated after gen
// was read.  stored reports whether the write happened.
func (c *SeatMaps) SetIfGeneration(ctx context.Context, m model.SeatMap, gen int64) (bool, error) {
	bs, err := json.Marshal(m)
	if err != nil {
		return false, err
	}
	n, err := setIfGeneration.Run(ctx, c.rdb,
		[]string{c.key(m.ShowtimeID), c.genKey(m.ShowtimeID)},
		strconv.FormatInt(gen, 10), bs, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Invalidate bumps the generation and drops the cached map.
func (c *SeatMaps) Invalidate(ctx context.Context, showtimeID int64) error {
	gk := c.genKey(showtimeID)
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, gk)
		p.Expire(ctx, gk, generationTTL)
		p.Del(ctx, c.key(showtimeID))
		return nil
	})
	return err
}
