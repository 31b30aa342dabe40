package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// TicketRepo reads tickets joined with what they were bought for.
type TicketRepo struct {
	db *sqlx.DB
}

func NewTicketRepo(db *sqlx.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// ticketSeatRow is one booking of a ticket with its context.
type ticketSeatRow struct {
	TicketID       int64              `db:"ticket_id"`
	Reference      string             `db:"reference"`
	Status         model.TicketStatus `db:"status"`
	Payload        string             `db:"payload"`
	CreatedAt      time.Time          `db:"created_at"`
	ShowtimeID     int64              `db:"showtime_id"`
	StartTime      time.Time          `db:"start_time"`
	ShowTitle      string             `db:"show_title"`
	ScreenNumber   int                `db:"screen_number"`
	Price          int                `db:"price"`
	AuditoriumName string             `db:"auditorium_name"`
	Address        string             `db:"address"`
	Row            int                `db:"row_no"`
	Column         int                `db:"col_no"`
}

const ticketSeatSelect = `SELECT t.id AS ticket_id, t.reference, t.status, t.payload, t.created_at,
	       b.showtime_id, st.start_time, sh.title AS show_title, sc.number AS screen_number, sc.price,
	       a.name AS auditorium_name, COALESCE(ad.address, '') AS address, b.row_no, b.col_no
	FROM tickets t
	JOIN bookings b ON b.ticket_id = t.id
	JOIN showtimes st ON st.id = b.showtime_id
	JOIN shows sh ON sh.id = st.show_id
	JOIN screens sc ON sc.id = b.screen_id
	JOIN auditoriums a ON a.id = sc.auditorium_id
	LEFT JOIN addresses ad ON ad.auditorium_id = a.id`

// summarize folds booking rows into one summary per ticket, keeping the
// order tickets first appear in.
func summarize(rows []ticketSeatRow) []model.TicketSummary {
	out := []model.TicketSummary{}
	idx := map[int64]int{}
	for _, r := range rows {
		i, ok := idx[r.TicketID]
		if !ok {
			i = len(out)
			idx[r.TicketID] = i
			out = append(out, model.TicketSummary{
				TicketID:       r.TicketID,
				Reference:      r.Reference,
				Status:         r.Status,
				ShowTitle:      r.ShowTitle,
				ShowtimeID:     r.ShowtimeID,
				StartTime:      r.StartTime,
				ScreenNumber:   r.ScreenNumber,
				AuditoriumName: r.AuditoriumName,
				Address:        r.Address,
				Payload:        r.Payload,
				CreatedAt:      r.CreatedAt,
				Seats:          []string{},
			})
		}
		p := model.SeatPosition{Row: r.Row, Column: r.Column}
		out[i].Positions = append(out[i].Positions, p)
		out[i].Seats = append(out[i].Seats, p.Label())
		out[i].TotalAmount += r.Price
	}
	return out
}

// ListByUser returns the user's tickets, newest first.
func (r *TicketRepo) ListByUser(ctx context.Context, userID string) ([]model.TicketSummary, error) {
	var rows []ticketSeatRow
	err := r.db.SelectContext(ctx, &rows,
		ticketSeatSelect+` WHERE t.user_id = ? ORDER BY t.created_at DESC, t.id DESC, b.row_no, b.col_no`, userID)
	if err != nil {
		return nil, err
	}
	return summarize(rows), nil
}

// GetForUser returns one ticket if it belongs to userID.
func (r *TicketRepo) GetForUser(ctx context.Context, ticketID int64, userID string) (model.TicketSummary, error) {
	var rows []ticketSeatRow
	err := r.db.SelectContext(ctx, &rows,
		ticketSeatSelect+` WHERE t.id = ? AND t.user_id = ? ORDER BY b.row_no, b.col_no`, ticketID, userID)
	if err != nil {
		return model.TicketSummary{}, err
	}
	if len(rows) == 0 {
		return model.TicketSummary{}, ErrTicketNotFound
	}
	return summarize(rows)[0], nil
}
