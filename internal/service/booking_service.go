// Package service holds the booking workflow and the integrations around
// it (payments, geocoding).  Storage is reached through small interfaces
// so the workflow can run against in-memory fakes.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/metrics"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/queue"
	"github.com/iliyamo/auditorium-booking/internal/repository"
	"github.com/iliyamo/auditorium-booking/internal/utils"
)

var (
	ErrUnauthenticated  = errors.New("authentication required")
	ErrInvalidSelection = errors.New("invalid seat selection")
)

// ShowtimeReader resolves a showtime to its screen.
type ShowtimeReader interface {
	GetDetail(ctx context.Context, id int64) (model.ShowtimeDetail, error)
}

// BookingStore is the persistence side of the guard.  Create must be
// atomic: either every seat is booked under one ticket or nothing is
// written and a *model.ConflictError names the taken seats.
type BookingStore interface {
	FindTaken(ctx context.Context, showtimeID int64, seats []model.SeatPosition) ([]model.SeatPosition, error)
	Create(ctx context.Context, nb repository.NewBooking) (model.BookingResult, error)
	SeatMap(ctx context.Context, showtimeID int64) (model.SeatMap, error)
}

type BookingService struct {
	showtimes ShowtimeReader
	store     BookingStore
	cache     SeatMapCache
	pub       queue.Publisher
	l         logger.Logger
	now       func() time.Time
}

func NewBookingService(showtimes ShowtimeReader, store BookingStore, cache SeatMapCache, pub queue.Publisher, l logger.Logger) *BookingService {
	if cache == nil {
		cache = nopSeatMapCache{}
	}
	if pub == nil {
		pub = queue.NopPublisher{}
	}
	return &BookingService{
		showtimes: showtimes,
		store:     store,
		cache:     cache,
		pub:       pub,
		l:         l,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// prepare checks the caller and the selection against the showtime's
// screen.
func (s *BookingService) prepare(ctx context.Context, sel model.Selection) (model.ShowtimeDetail, error) {
	if sel.UserID == "" {
		return model.ShowtimeDetail{}, ErrUnauthenticated
	}
	detail, err := s.showtimes.GetDetail(ctx, sel.ShowtimeID)
	if err != nil {
		return detail, err
	}
	if err := sel.Validate(detail.Screen()); err != nil {
		return detail, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}
	return detail, nil
}

// Book claims every seat of sel for the user or none of them.  source
// labels metrics and events (api, webhook).
func (s *BookingService) Book(ctx context.Context, sel model.Selection, source string) (model.BookingResult, error) {
	detail, err := s.prepare(ctx, sel)
	if err != nil {
		return model.BookingResult{}, err
	}

	ref := utils.NewBookingReference()
	payload, err := utils.EncodeTicketPayload(utils.TicketPayload{
		UserID:     sel.UserID,
		ShowtimeID: sel.ShowtimeID,
		Seats:      sel.Seats,
		BookingID:  ref,
		Timestamp:  s.now(),
	})
	if err != nil {
		return model.BookingResult{}, err
	}

	start := time.Now()
	res, err := s.store.Create(ctx, repository.NewBooking{
		ShowtimeID: sel.ShowtimeID,
		ScreenID:   detail.ScreenID,
		UserID:     sel.UserID,
		Seats:      sel.Seats,
		Reference:  ref,
		Payload:    payload,

		CheckoutSessionID: sel.CheckoutSessionID,
	})
	metrics.BookingDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())

	var conflict *model.ConflictError
	if errors.As(err, &conflict) {
		metrics.BookingConflicts.WithLabelValues(source).Inc()
		s.l.Infof(ctx, "service.booking.Book: showtime %d: seats taken: %v", sel.ShowtimeID, conflict.Seats)
		return model.BookingResult{}, conflict
	}
	if err != nil {
		s.l.Errorf(ctx, "service.booking.Book: showtime %d: %v", sel.ShowtimeID, err)
		return model.BookingResult{}, err
	}

	if res.Replayed {
		s.l.Infof(ctx, "service.booking.Book: checkout %s already settled as ticket %d", sel.CheckoutSessionID, res.TicketID)
		return res, nil
	}

	metrics.BookingsCreated.WithLabelValues(source).Inc()
	metrics.SeatsBooked.Add(float64(len(sel.Seats)))

	if err := s.cache.Invalidate(ctx, sel.ShowtimeID); err != nil {
		s.l.Warnf(ctx, "service.booking.Book: invalidate seat map %d: %v", sel.ShowtimeID, err)
	}
	s.publish(ctx, detail, sel, res, source)
	return res, nil
}

func (s *BookingService) publish(ctx context.Context, detail model.ShowtimeDetail, sel model.Selection, res model.BookingResult, source string) {
	ev := queue.TicketIssuedEvent{
		TicketID:       res.TicketID,
		Reference:      res.Reference,
		UserID:         sel.UserID,
		ShowtimeID:     sel.ShowtimeID,
		ScreenID:       detail.ScreenID,
		AuditoriumName: detail.AuditoriumName,
		ShowTitle:      detail.ShowTitle,
		StartsAt:       detail.StartTime,
		BookingIDs:     res.BookingIDs,
		SeatLabels:     lo.Map(sel.Seats, func(p model.SeatPosition, _ int) string { return p.Label() }),
		TotalAmount:    detail.Price * len(sel.Seats),
		Source:         source,
		IssuedAt:       s.now(),
	}
	if err := s.pub.PublishTicketIssued(ctx, ev); err != nil {
		metrics.EventsPublishFailed.Inc()
		s.l.Warnf(ctx, "service.booking.publish: ticket %d: %v", res.TicketID, err)
	}
}

// Verify reports which requested seats are already booked.  The answer is
// advisory: a later Book can still conflict.
func (s *BookingService) Verify(ctx context.Context, sel model.Selection) (model.Availability, error) {
	if _, err := s.prepare(ctx, sel); err != nil {
		return model.Availability{}, err
	}
	taken, err := s.store.FindTaken(ctx, sel.ShowtimeID, sel.Seats)
	if err != nil {
		return model.Availability{}, err
	}
	if taken == nil {
		taken = []model.SeatPosition{}
	}
	return model.Availability{Available: len(taken) == 0, UnavailableSeats: taken}, nil
}

// SeatMap returns the showtime's grid with booked flags.  Cache failures
// fall through to the store.
func (s *BookingService) SeatMap(ctx context.Context, showtimeID int64) (model.SeatMap, error) {
	m, ok, err := s.cache.Get(ctx, showtimeID)
	switch {
	case err != nil:
		metrics.SeatMapCache.WithLabelValues("error").Inc()
		s.l.Warnf(ctx, "service.booking.SeatMap: cache get %d: %v", showtimeID, err)
	case ok:
		metrics.SeatMapCache.WithLabelValues("hit").Inc()
		return m, nil
	default:
		metrics.SeatMapCache.WithLabelValues("miss").Inc()
	}

	// The generation is read before the store so a booking that commits
	// in between makes the write-back a no-op.
	gen, genErr := s.cache.Generation(ctx, showtimeID)
	m, err = s.store.SeatMap(ctx, showtimeID)
	if err != nil {
		return model.SeatMap{}, err
	}
	if genErr != nil {
		s.l.Warnf(ctx, "service.booking.SeatMap: cache generation %d: %v", showtimeID, genErr)
		return m, nil
	}
	if _, err := s.cache.SetIfGeneration(ctx, m, gen); err != nil {
		s.l.Warnf(ctx, "service.booking.SeatMap: cache set %d: %v", showtimeID, err)
	}
	return m, nil
}
