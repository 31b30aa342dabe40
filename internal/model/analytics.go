package model

import "time"

// RevenuePoint is the booked revenue of one UTC day.  Every booking counts
// its screen's price.
type RevenuePoint struct {
	Date    string `db:"day" json:"date"`
	Revenue int64  `db:"revenue" json:"revenue"`
}

// RecentBooking is a booking joined with who made it and what for.
type RecentBooking struct {
	ID         int64     `db:"id" json:"id"`
	ShowtimeID int64     `db:"showtime_id" json:"showtimeId"`
	Row        int       `db:"row_no" json:"row"`
	Column     int       `db:"col_no" json:"column"`
	TicketID   int64     `db:"ticket_id" json:"ticketId"`
	UserID     string    `db:"user_id" json:"userId"`
	UserName   string    `db:"user_name" json:"userName"`
	ShowTitle  string    `db:"show_title" json:"showTitle"`
	StartTime  time.Time `db:"start_time" json:"startTime"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

type AuditoriumStats struct {
	ID             int64  `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	TotalScreens   int    `db:"total_screens" json:"totalScreens"`
	TotalShowtimes int    `db:"total_showtimes" json:"totalShowtimes"`
	TotalBookings  int    `db:"total_bookings" json:"totalBookings"`
}
