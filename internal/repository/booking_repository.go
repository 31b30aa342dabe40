package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// NewBooking is everything the guard transaction writes for one checkout.
type NewBooking struct {
	ShowtimeID int64
	ScreenID   int64
	UserID     string
	Seats      []model.SeatPosition
	Reference  string
	Payload    string
	// CheckoutSessionID, when set, makes Create idempotent per session.
	CheckoutSessionID string
}

// BookingRepo persists bookings, tickets and the denormalized seat flag.
type BookingRepo struct {
	db *sqlx.DB
}

func NewBookingRepo(db *sqlx.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

// seatTuples renders "(?,?),(?,?)" for a row constructor IN list and
// returns the matching args.
func seatTuples(seats []model.SeatPosition) (string, []interface{}) {
	parts := make([]string, len(seats))
	args := make([]interface{}, 0, len(seats)*2)
	for i, s := range seats {
		parts[i] = "(?,?)"
		args = append(args, s.Row, s.Column)
	}
	return strings.Join(parts, ","), args
}

func takenSeats(ctx context.Context, q sqlx.QueryerContext, showtimeID int64, seats []model.SeatPosition, lock bool) ([]model.SeatPosition, error) {
	tuples, args := seatTuples(seats)
	query := `SELECT row_no, col_no FROM bookings
	          WHERE showtime_id = ? AND (row_no, col_no) IN (` + tuples + `)`
	if lock {
		query += " FOR UPDATE"
	}
	var found []model.SeatPosition
	if err := sqlx.SelectContext(ctx, q, &found, query, append([]interface{}{showtimeID}, args...)...); err != nil {
		return nil, err
	}
	return model.TakenAmong(seats, found), nil
}

// FindTaken returns which of seats already have a booking for the
// showtime.  It takes no locks; the answer is advisory.
func (r *BookingRepo) FindTaken(ctx context.Context, showtimeID int64, seats []model.SeatPosition) ([]model.SeatPosition, error) {
	if len(seats) == 0 {
		return nil, nil
	}
	return takenSeats(ctx, r.db, showtimeID, seats, false)
}

// Create runs the guard transaction.  The showtime row is locked first so
// bookings for one showtime are serialized; the existence check then sees
// every committed booking.  Any taken seat aborts the whole request with a
// *model.ConflictError and nothing is written.  uq_booking_seat backs the
// check: a duplicate key is reported as the same conflict.
func (r *BookingRepo) Create(ctx context.Context, nb NewBooking) (res model.BookingResult, err error) {
	if len(nb.Seats) == 0 {
		return res, model.ErrEmptySelection
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("could not begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return
		}
		if err = tx.Commit(); err != nil {
			err = fmt.Errorf("could not commit booking: %w", err)
		}
	}()

	var screenID int64
	if err = tx.GetContext(ctx, &screenID, `SELECT screen_id FROM showtimes WHERE id = ? FOR UPDATE`, nb.ShowtimeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrShowtimeNotFound
		}
		return res, err
	}
	if nb.ScreenID != 0 && nb.ScreenID != screenID {
		err = fmt.Errorf("%w: screen %d does not run showtime %d", model.ErrSeatOutOfRange, nb.ScreenID, nb.ShowtimeID)
		return res, err
	}

	if nb.CheckoutSessionID != "" {
		var done bool
		if res, done, err = settledCheckout(ctx, tx, nb.CheckoutSessionID); err != nil || done {
			return res, err
		}
	}

	taken, err := takenSeats(ctx, tx, nb.ShowtimeID, nb.Seats, true)
	if err != nil {
		return res, fmt.Errorf("could not check seats: %w", err)
	}
	if len(taken) > 0 {
		err = &model.ConflictError{ShowtimeID: nb.ShowtimeID, Seats: taken}
		return res, err
	}

	out, err := tx.ExecContext(ctx,
		`INSERT INTO tickets (user_id, reference, payload, status, checkout_session_id) VALUES (?, ?, ?, ?, NULLIF(?, ''))`,
		nb.UserID, nb.Reference, nb.Payload, model.TicketActive, nb.CheckoutSessionID)
	if err != nil {
		return res, fmt.Errorf("could not create ticket: %w", err)
	}
	ticketID, err := out.LastInsertId()
	if err != nil {
		return res, err
	}

	query := `INSERT INTO bookings (showtime_id, screen_id, row_no, col_no, user_id, ticket_id) VALUES `
	args := make([]interface{}, 0, len(nb.Seats)*6)
	for i, s := range nb.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, nb.ShowtimeID, screenID, s.Row, s.Column, nb.UserID, ticketID)
	}
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		if isDuplicateKey(err) {
			err = conflictFromDuplicate(ctx, tx, nb, err)
			return res, err
		}
		return res, fmt.Errorf("could not create bookings: %w", err)
	}

	tuples, seatArgs := seatTuples(nb.Seats)
	if _, err = tx.ExecContext(ctx,
		`UPDATE seats SET booked = 1 WHERE screen_id = ? AND (row_no, col_no) IN (`+tuples+`)`,
		append([]interface{}{screenID}, seatArgs...)...); err != nil {
		return res, fmt.Errorf("could not mark seats booked: %w", err)
	}

	res, err = loadResult(ctx, tx, ticketID)
	return res, err
}

// loadResult re-reads a ticket and its bookings inside the transaction.
func loadResult(ctx context.Context, tx *sqlx.Tx, ticketID int64) (model.BookingResult, error) {
	var res model.BookingResult
	if err := tx.SelectContext(ctx, &res.Bookings,
		`SELECT id, showtime_id, screen_id, row_no, col_no, user_id, ticket_id, created_at
		 FROM bookings WHERE ticket_id = ? ORDER BY id`, ticketID); err != nil {
		return res, err
	}
	if err := tx.GetContext(ctx, &res.Ticket,
		`SELECT id, user_id, reference, payload, status, created_at FROM tickets WHERE id = ?`, ticketID); err != nil {
		return res, err
	}
	res.TicketID = ticketID
	res.Reference = res.Ticket.Reference
	res.BookingIDs = make([]int64, len(res.Bookings))
	for i, b := range res.Bookings {
		res.BookingIDs[i] = b.ID
	}
	return res, nil
}

// settledCheckout returns the ticket already issued for a checkout
// session.  The caller holds the showtime lock, so a concurrent delivery
// of the same session waits here until the first one commits.
func settledCheckout(ctx context.Context, tx *sqlx.Tx, sessionID string) (model.BookingResult, bool, error) {
	var ticketID int64
	err := tx.GetContext(ctx, &ticketID, `SELECT id FROM tickets WHERE checkout_session_id = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.BookingResult{}, false, nil
	}
	if err != nil {
		return model.BookingResult{}, false, fmt.Errorf("could not look up checkout session: %w", err)
	}
	res, err := loadResult(ctx, tx, ticketID)
	if err != nil {
		return res, false, err
	}
	res.Replayed = true
	return res, true, nil
}

// conflictFromDuplicate turns a unique violation on the booking insert
// into a ConflictError naming the seats that are now taken.  If they
// cannot be re-read the insert error is returned instead, so a conflict
// always carries its seats.
func conflictFromDuplicate(ctx context.Context, q sqlx.QueryerContext, nb NewBooking, dupErr error) error {
	taken, err := takenSeats(ctx, q, nb.ShowtimeID, nb.Seats, false)
	if err != nil {
		return fmt.Errorf("could not create bookings: %w", errors.Join(dupErr, fmt.Errorf("re-read taken seats: %w", err)))
	}
	if len(taken) == 0 {
		return fmt.Errorf("could not create bookings: %w", dupErr)
	}
	return &model.ConflictError{ShowtimeID: nb.ShowtimeID, Seats: taken}
}

// SeatMap returns the screen grid of a showtime with per-showtime booked
// flags derived from bookings.
func (r *BookingRepo) SeatMap(ctx context.Context, showtimeID int64) (model.SeatMap, error) {
	var head struct {
		ScreenID int64 `db:"screen_id"`
		Rows     int   `db:"rows_count"`
		Columns  int   `db:"cols_count"`
		Price    int   `db:"price"`
	}
	err := r.db.GetContext(ctx, &head,
		`SELECT st.screen_id, sc.rows_count, sc.cols_count, sc.price
		 FROM showtimes st JOIN screens sc ON sc.id = st.screen_id
		 WHERE st.id = ?`, showtimeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SeatMap{}, ErrShowtimeNotFound
		}
		return model.SeatMap{}, err
	}

	seats := []model.SeatState{}
	err = r.db.SelectContext(ctx, &seats,
		`SELECT s.row_no, s.col_no, (b.id IS NOT NULL) AS booked
		 FROM seats s
		 LEFT JOIN bookings b
		   ON b.showtime_id = ? AND b.screen_id = s.screen_id AND b.row_no = s.row_no AND b.col_no = s.col_no
		 WHERE s.screen_id = ?
		 ORDER BY s.row_no, s.col_no`, showtimeID, head.ScreenID)
	if err != nil {
		return model.SeatMap{}, err
	}
	return model.SeatMap{
		ShowtimeID: showtimeID,
		ScreenID:   head.ScreenID,
		Rows:       head.Rows,
		Columns:    head.Columns,
		Price:      head.Price,
		Seats:      seats,
	}, nil
}

// SeatsInfo counts the screen's seats and the showtime's bookings.
func (r *BookingRepo) SeatsInfo(ctx context.Context, showtimeID int64) (model.SeatsInfo, error) {
	var info model.SeatsInfo
	err := r.db.GetContext(ctx, &info,
		`SELECT
		   (SELECT COUNT(*) FROM seats s WHERE s.screen_id = st.screen_id) AS total,
		   (SELECT COUNT(*) FROM bookings b WHERE b.showtime_id = st.id) AS booked
		 FROM showtimes st WHERE st.id = ?`, showtimeID)
	if errors.Is(err, sql.ErrNoRows) {
		return info, ErrShowtimeNotFound
	}
	return info, err
}

// ListByUser returns a user's bookings, newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID string) ([]model.Booking, error) {
	out := []model.Booking{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT id, showtime_id, screen_id, row_no, col_no, user_id, ticket_id, created_at
		 FROM bookings WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	return out, err
}
