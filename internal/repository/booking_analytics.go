package repository

import (
	"context"
	"time"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// MaxRecentBookings caps RecentBookings.
const MaxRecentBookings = 50

// RevenueTrend sums screen prices of bookings per UTC day, oldest first.
// Zero from or to leaves that side open.
func (r *BookingRepo) RevenueTrend(ctx context.Context, from, to time.Time) ([]model.RevenuePoint, error) {
	query := `SELECT DATE_FORMAT(b.created_at, '%Y-%m-%d') AS day, CAST(SUM(sc.price) AS SIGNED) AS revenue
		FROM bookings b JOIN screens sc ON sc.id = b.screen_id
		WHERE 1 = 1`
	var args []interface{}
	if !from.IsZero() {
		query += ` AND b.created_at >= ?`
		args = append(args, from.UTC())
	}
	if !to.IsZero() {
		query += ` AND b.created_at <= ?`
		args = append(args, to.UTC())
	}
	query += ` GROUP BY day ORDER BY day`

	out := []model.RevenuePoint{}
	err := r.db.SelectContext(ctx, &out, query, args...)
	return out, err
}

// RecentBookings returns the newest bookings across all showtimes.  limit
// is clamped to 1..MaxRecentBookings.
func (r *BookingRepo) RecentBookings(ctx context.Context, limit int) ([]model.RecentBooking, error) {
	limit = max(1, min(limit, MaxRecentBookings))
	out := []model.RecentBooking{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT b.id, b.showtime_id, b.row_no, b.col_no, b.ticket_id, b.user_id,
		        u.name AS user_name, sh.title AS show_title, st.start_time, b.created_at
		 FROM bookings b
		 JOIN users u ON u.id = b.user_id
		 JOIN showtimes st ON st.id = b.showtime_id
		 JOIN shows sh ON sh.id = st.show_id
		 ORDER BY b.created_at DESC, b.id DESC
		 LIMIT ?`, limit)
	return out, err
}

// AuditoriumStats counts screens, showtimes and bookings per auditorium.
func (r *BookingRepo) AuditoriumStats(ctx context.Context) ([]model.AuditoriumStats, error) {
	out := []model.AuditoriumStats{}
	err := r.db.SelectContext(ctx, &out,
		`SELECT a.id, a.name,
		        (SELECT COUNT(*) FROM screens sc WHERE sc.auditorium_id = a.id) AS total_screens,
		        (SELECT COUNT(*) FROM showtimes st JOIN screens sc ON sc.id = st.screen_id
		          WHERE sc.auditorium_id = a.id) AS total_showtimes,
		        (SELECT COUNT(*) FROM bookings b JOIN screens sc ON sc.id = b.screen_id
		          WHERE sc.auditorium_id = a.id) AS total_bookings
		 FROM auditoriums a
		 ORDER BY a.id`)
	return out, err
}
