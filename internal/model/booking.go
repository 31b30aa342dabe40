package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

var (
	// ErrSeatsUnavailable is matched by every *ConflictError.
	ErrSeatsUnavailable = errors.New("seats unavailable")
	ErrEmptySelection   = errors.New("at least one seat is required")
	ErrDuplicateSeat    = errors.New("seat requested more than once")
	ErrSeatOutOfRange   = errors.New("seat outside screen grid")
	ErrTooManySeats     = fmt.Errorf("at most %d seats per booking", MaxSeatsPerBooking)
)

// MaxSeatsPerBooking keeps a ticket payload within what a QR code holds at
// the highest error correction level, even on a 100x100 grid.
const MaxSeatsPerBooking = 40

// ConflictError lists exactly the requested seats that are already
// booked for the showtime.
type ConflictError struct {
	ShowtimeID int64
	Seats      []SeatPosition
}

func (e *ConflictError) Error() string {
	labels := lo.Map(e.Seats, func(p SeatPosition, _ int) string { return p.Label() })
	return fmt.Sprintf("showtime %d: %s: %s", e.ShowtimeID, ErrSeatsUnavailable, strings.Join(labels, ", "))
}

func (e *ConflictError) Is(target error) bool { return target == ErrSeatsUnavailable }

// Selection is the caller-owned draft of seats a user wants for one
// showtime.  It holds no server state until passed to the booking guard.
type Selection struct {
	ShowtimeID int64
	UserID     string
	Seats      []SeatPosition
	// CheckoutSessionID is set when the booking settles a paid checkout.
	// At most one ticket exists per session.
	CheckoutSessionID string
}

// Validate checks the selection against the showtime's screen.
func (s Selection) Validate(screen Screen) error {
	if len(s.Seats) == 0 {
		return ErrEmptySelection
	}
	if len(s.Seats) > MaxSeatsPerBooking {
		return fmt.Errorf("%w: got %d", ErrTooManySeats, len(s.Seats))
	}
	if dups := lo.FindDuplicates(s.Seats); len(dups) > 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateSeat, dups[0].Label())
	}
	for _, p := range s.Seats {
		if !screen.Contains(p) {
			return fmt.Errorf("%w: %s (screen is %dx%d)", ErrSeatOutOfRange, p, screen.Rows, screen.Columns)
		}
	}
	return nil
}

// TakenAmong returns the requested seats present in taken, in request
// order.
func TakenAmong(requested, taken []SeatPosition) []SeatPosition {
	set := lo.SliceToMap(taken, func(p SeatPosition) (SeatPosition, struct{}) { return p, struct{}{} })
	return lo.Filter(requested, func(p SeatPosition, _ int) bool {
		_, ok := set[p]
		return ok
	})
}

// Booking claims one seat of a showtime for a user.  At most one booking
// exists per (ShowtimeID, ScreenID, Row, Column).
type Booking struct {
	ID         int64     `db:"id" json:"id"`
	ShowtimeID int64     `db:"showtime_id" json:"showtimeId"`
	ScreenID   int64     `db:"screen_id" json:"screenId"`
	Row        int       `db:"row_no" json:"row"`
	Column     int       `db:"col_no" json:"column"`
	UserID     string    `db:"user_id" json:"userId"`
	TicketID   int64     `db:"ticket_id" json:"ticketId"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

func (b Booking) Position() SeatPosition { return SeatPosition{Row: b.Row, Column: b.Column} }

type TicketStatus string

const TicketActive TicketStatus = "ACTIVE"

// Ticket groups the bookings of one checkout and carries the scannable
// payload.
type Ticket struct {
	ID        int64        `db:"id" json:"id"`
	UserID    string       `db:"user_id" json:"userId"`
	Reference string       `db:"reference" json:"bookingReference"`
	Payload   string       `db:"payload" json:"payload"`
	Status    TicketStatus `db:"status" json:"status"`
	CreatedAt time.Time    `db:"created_at" json:"createdAt"`
}

// BookingResult is returned by a successful booking.
type BookingResult struct {
	TicketID   int64     `json:"ticketId"`
	BookingIDs []int64   `json:"bookingIds"`
	Reference  string    `json:"bookingReference"`
	Ticket     Ticket    `json:"-"`
	Bookings   []Booking `json:"-"`
	// Replayed marks a checkout session that was already settled; the
	// result describes the existing ticket and nothing was written.
	Replayed bool `json:"-"`
}

// Availability is the advisory verify outcome.
type Availability struct {
	Available        bool           `json:"available"`
	UnavailableSeats []SeatPosition `json:"unavailableSeats"`
}

// TicketSummary is a ticket joined with what it was bought for.
type TicketSummary struct {
	TicketID       int64          `json:"ticketId"`
	Reference      string         `json:"bookingReference"`
	Status         TicketStatus   `json:"status"`
	ShowTitle      string         `json:"showTitle"`
	ShowtimeID     int64          `json:"showtimeId"`
	StartTime      time.Time      `json:"showtime"`
	ScreenNumber   int            `json:"screenNumber"`
	AuditoriumName string         `json:"auditoriumName"`
	Address        string         `json:"address,omitempty"`
	Seats          []string       `json:"seats"`
	Positions      []SeatPosition `json:"-"`
	TotalAmount    int            `json:"totalAmount"`
	QRCode         string         `json:"qrCode,omitempty"`
	Payload        string         `json:"-"`
	CreatedAt      time.Time      `json:"createdAt"`
}
