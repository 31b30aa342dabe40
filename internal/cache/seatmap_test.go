package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()

	var (
		container *tcredis.RedisContainer
		err       error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("docker unavailable: %v", r)
			}
		}()
		container, err = tcredis.RunContainer(ctx, testcontainers.WithImage("docker.io/redis:7"))
	}()
	if err != nil {
		t.Skipf("redis container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)
	opts, err := redis.ParseURL(uri)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func grid(showtimeID int64, booked ...model.SeatPosition) model.SeatMap {
	m := model.SeatMap{ShowtimeID: showtimeID, ScreenID: 7, Rows: 2, Columns: 2, Price: 250}
	for r := 1; r <= 2; r++ {
		for c := 1; c <= 2; c++ {
			s := model.SeatState{Row: r, Column: c}
			for _, b := range booked {
				if b.Row == r && b.Column == c {
					s.Booked = true
				}
			}
			m.Seats = append(m.Seats, s)
		}
	}
	return m
}

func TestSeatMapsAgainstRedis(t *testing.T) {
	rdb := startRedis(t)
	c := NewSeatMaps(rdb, "test-seatmap", time.Minute)
	ctx := context.Background()

	t.Run("fill and hit", func(t *testing.T) {
		gen, err := c.Generation(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, gen)

		stored, err := c.SetIfGeneration(ctx, grid(1), gen)
		require.NoError(t, err)
		assert.True(t, stored)

		got, ok, err := c.Get(ctx, 1)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, grid(1), got)
	})

	t.Run("fill that raced an invalidation is dropped", func(t *testing.T) {
		gen, err := c.Generation(ctx, 2)
		require.NoError(t, err)

		require.NoError(t, c.Invalidate(ctx, 2))

		stored, err := c.SetIfGeneration(ctx, grid(2), gen)
		require.NoError(t, err)
		assert.False(t, stored)
		_, ok, err := c.Get(ctx, 2)
		require.NoError(t, err)
		assert.False(t, ok)

		gen, err = c.Generation(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(1), gen)
		fresh := grid(2, model.SeatPosition{Row: 1, Column: 2})
		stored, err = c.SetIfGeneration(ctx, fresh, gen)
		require.NoError(t, err)
		assert.True(t, stored)
		got, ok, err := c.Get(ctx, 2)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, fresh, got)
	})

	t.Run("invalidate drops the entry", func(t *testing.T) {
		require.NoError(t, c.Invalidate(ctx, 1))
		_, ok, err := c.Get(ctx, 1)
		require.NoError(t, err)
		assert.False(t, ok)

		ttl, err := rdb.TTL(ctx, "test-seatmap:gen:1").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Hour)
	})
}
