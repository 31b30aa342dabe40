package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/metrics"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/queue"
	"github.com/iliyamo/auditorium-booking/internal/repository"
	"github.com/iliyamo/auditorium-booking/internal/utils"
)

func testShowtimes() fakeShowtimes {
	return fakeShowtimes{
		42: {
			Showtime:       model.Showtime{ID: 42, ShowID: 1, ScreenID: 7, StartTime: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)},
			ShowTitle:      "Hamlet",
			ScreenNumber:   1,
			Rows:           10,
			Columns:        10,
			Price:          250,
			AuditoriumID:   3,
			AuditoriumName: "Town Hall",
		},
	}
}

func newTestService(t *testing.T, pub queue.Publisher) (*BookingService, *memoryStore) {
	t.Helper()
	st := testShowtimes()
	store := newMemoryStore(st)
	return NewBookingService(st, store, &mapCache{}, pub, logger.NewNop()), store
}

func seat(r, c int) model.SeatPosition { return model.SeatPosition{Row: r, Column: c} }

func TestBookThenConflict(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishTicketIssued", mock.Anything, mock.MatchedBy(func(ev queue.TicketIssuedEvent) bool {
		return ev.ShowtimeID == 42 && ev.UserID == "u1"
	})).Return(nil).Once()
	svc, _ := newTestService(t, pub)
	ctx := context.Background()

	res, err := svc.Book(ctx, model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(3, 4)}}, metrics.SourceAPI)
	require.NoError(t, err)
	assert.Len(t, res.BookingIDs, 1)
	assert.NotZero(t, res.TicketID)

	_, err = svc.Book(ctx, model.Selection{ShowtimeID: 42, UserID: "u2", Seats: []model.SeatPosition{seat(3, 4)}}, metrics.SourceAPI)
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []model.SeatPosition{seat(3, 4)}, conflict.Seats)
	assert.ErrorIs(t, err, model.ErrSeatsUnavailable)

	pub.AssertExpectations(t)
}

func TestBookSeatsShareOneTicket(t *testing.T) {
	svc, store := newTestService(t, queue.NopPublisher{})

	res, err := svc.Book(context.Background(), model.Selection{
		ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(1, 1), seat(1, 2)},
	}, metrics.SourceAPI)
	require.NoError(t, err)
	require.Len(t, res.Bookings, 2)
	for _, b := range res.Bookings {
		assert.Equal(t, res.TicketID, b.TicketID)
		assert.Equal(t, int64(7), b.ScreenID)
	}

	p, err := utils.DecodeTicketPayload(res.Ticket.Payload)
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, int64(42), p.ShowtimeID)
	assert.Equal(t, res.Reference, p.BookingID)
	assert.Len(t, p.Seats, 2)
	assert.Len(t, store.booked, 2)
}

func TestBookIsAllOrNothing(t *testing.T) {
	svc, store := newTestService(t, queue.NopPublisher{})
	ctx := context.Background()

	_, err := svc.Book(ctx, model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(5, 5)}}, metrics.SourceAPI)
	require.NoError(t, err)

	_, err = svc.Book(ctx, model.Selection{
		ShowtimeID: 42, UserID: "u2", Seats: []model.SeatPosition{seat(5, 4), seat(5, 5), seat(5, 6)},
	}, metrics.SourceAPI)
	var conflict *model.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []model.SeatPosition{seat(5, 5)}, conflict.Seats)

	taken, err := store.FindTaken(ctx, 42, []model.SeatPosition{seat(5, 4), seat(5, 6)})
	require.NoError(t, err)
	assert.Empty(t, taken)
}

func TestBookRejectsInvalidSelections(t *testing.T) {
	svc, store := newTestService(t, queue.NopPublisher{})
	ctx := context.Background()

	tests := []struct {
		name string
		sel  model.Selection
		want error
	}{
		{"no user", model.Selection{ShowtimeID: 42, Seats: []model.SeatPosition{seat(1, 1)}}, ErrUnauthenticated},
		{"unknown showtime", model.Selection{ShowtimeID: 99, UserID: "u1", Seats: []model.SeatPosition{seat(1, 1)}}, repository.ErrShowtimeNotFound},
		{"empty", model.Selection{ShowtimeID: 42, UserID: "u1"}, model.ErrEmptySelection},
		{"duplicate", model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(2, 2), seat(2, 2)}}, model.ErrDuplicateSeat},
		{"outside grid", model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(11, 1)}}, model.ErrSeatOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Book(ctx, tt.sel, metrics.SourceAPI)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, store.creates)
}

func TestConcurrentBookingsOfOneSeat(t *testing.T) {
	svc, _ := newTestService(t, queue.NopPublisher{})
	const n = 32

	var wins, conflicts atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Book(context.Background(), model.Selection{
				ShowtimeID: 42, UserID: "u" + string(rune('a'+i%26)), Seats: []model.SeatPosition{seat(3, 4)},
			}, metrics.SourceAPI)
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, model.ErrSeatsUnavailable):
				conflicts.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
}

func TestPublishFailureDoesNotFailBooking(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishTicketIssued", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	svc, _ := newTestService(t, pub)

	_, err := svc.Book(context.Background(), model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(1, 1)}}, metrics.SourceAPI)
	assert.NoError(t, err)
	pub.AssertNumberOfCalls(t, "PublishTicketIssued", 1)
}

func TestVerifyIsAdvisory(t *testing.T) {
	svc, store := newTestService(t, queue.NopPublisher{})
	ctx := context.Background()
	sel := model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(4, 4), seat(4, 5)}}

	avail, err := svc.Verify(ctx, sel)
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.NotNil(t, avail.UnavailableSeats)
	assert.Empty(t, avail.UnavailableSeats)

	_, err = svc.Book(ctx, model.Selection{ShowtimeID: 42, UserID: "u2", Seats: []model.SeatPosition{seat(4, 5)}}, metrics.SourceAPI)
	require.NoError(t, err)

	avail, err = svc.Verify(ctx, sel)
	require.NoError(t, err)
	assert.False(t, avail.Available)
	assert.Equal(t, []model.SeatPosition{seat(4, 5)}, avail.UnavailableSeats)
	assert.Equal(t, 1, store.creates)
}

func TestSeatMapReflectsBookings(t *testing.T) {
	svc, _ := newTestService(t, queue.NopPublisher{})
	ctx := context.Background()

	before, err := svc.SeatMap(ctx, 42)
	require.NoError(t, err)
	require.Len(t, before.Seats, 100)
	assert.False(t, lo.SomeBy(before.Seats, func(s model.SeatState) bool { return s.Booked }))

	again, err := svc.SeatMap(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, before, again)

	_, err = svc.Book(ctx, model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(3, 4)}}, metrics.SourceAPI)
	require.NoError(t, err)

	after, err := svc.SeatMap(ctx, 42)
	require.NoError(t, err)
	booked := lo.Filter(after.Seats, func(s model.SeatState, _ int) bool { return s.Booked })
	assert.Equal(t, []model.SeatState{{Row: 3, Column: 4, Booked: true}}, booked)
}

// racingMapStore runs afterRead once, after the seat map snapshot is taken
// and before it is returned.
type racingMapStore struct {
	*memoryStore
	afterRead func()
}

func (s *racingMapStore) SeatMap(ctx context.Context, showtimeID int64) (model.SeatMap, error) {
	m, err := s.memoryStore.SeatMap(ctx, showtimeID)
	if f := s.afterRead; f != nil {
		s.afterRead = nil
		f()
	}
	return m, err
}

func TestSeatMapFillRacingBookingIsNotCached(t *testing.T) {
	st := testShowtimes()
	store := &racingMapStore{memoryStore: newMemoryStore(st)}
	c := &mapCache{}
	svc := NewBookingService(st, store, c, queue.NopPublisher{}, logger.NewNop())
	ctx := context.Background()

	store.afterRead = func() {
		_, err := svc.Book(ctx, model.Selection{ShowtimeID: 42, UserID: "u1", Seats: []model.SeatPosition{seat(3, 4)}}, metrics.SourceAPI)
		require.NoError(t, err)
	}

	stale, err := svc.SeatMap(ctx, 42)
	require.NoError(t, err)
	assert.False(t, lo.SomeBy(stale.Seats, func(s model.SeatState) bool { return s.Booked }))

	_, cached, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.False(t, cached, "a map read before the booking committed must not be cached")

	fresh, err := svc.SeatMap(ctx, 42)
	require.NoError(t, err)
	booked := lo.Filter(fresh.Seats, func(s model.SeatState, _ int) bool { return s.Booked })
	assert.Equal(t, []model.SeatState{{Row: 3, Column: 4, Booked: true}}, booked)

	_, cached, err = c.Get(ctx, 42)
	require.NoError(t, err)
	assert.True(t, cached)
}
