package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// ShowtimeFilter narrows ListUpcoming.  Zero fields are ignored.
type ShowtimeFilter struct {
	ScreenID     int64
	ShowID       int64
	AuditoriumID int64
	ManagerID    string
	From         time.Time
}

// ShowtimeRepo reads and schedules showtimes.
type ShowtimeRepo struct {
	db *sqlx.DB
}

func NewShowtimeRepo(db *sqlx.DB) *ShowtimeRepo {
	return &ShowtimeRepo{db: db}
}

const showtimeDetailSelect = `SELECT st.id, st.show_id, st.screen_id, st.start_time,
	       sh.title AS show_title, sc.number AS screen_number, sc.rows_count, sc.cols_count, sc.price,
	       a.id AS auditorium_id, a.name AS auditorium_name
	FROM showtimes st
	JOIN shows sh ON sh.id = st.show_id
	JOIN screens sc ON sc.id = st.screen_id
	JOIN auditoriums a ON a.id = sc.auditorium_id`

// GetDetail resolves a showtime to its show, screen and auditorium.
func (r *ShowtimeRepo) GetDetail(ctx context.Context, id int64) (model.ShowtimeDetail, error) {
	var d model.ShowtimeDetail
	err := r.db.GetContext(ctx, &d, showtimeDetailSelect+` WHERE st.id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrShowtimeNotFound
	}
	return d, err
}

// CreateMany schedules show on screen at every start time in one
// transaction and returns the created rows in input order.
func (r *ShowtimeRepo) CreateMany(ctx context.Context, showID, screenID int64, starts []time.Time) (out []model.Showtime, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, rbErr)
			}
			return
		}
		err = tx.Commit()
	}()

	out = make([]model.Showtime, 0, len(starts))
	for _, t := range starts {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO showtimes (show_id, screen_id, start_time) VALUES (?, ?, ?)`, showID, screenID, t.UTC())
		if err != nil {
			return nil, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		out = append(out, model.Showtime{ID: id, ShowID: showID, ScreenID: screenID, StartTime: t.UTC()})
	}
	return out, nil
}

// ListUpcoming returns showtimes starting at or after f.From, ordered by
// start time.
func (r *ShowtimeRepo) ListUpcoming(ctx context.Context, f ShowtimeFilter) ([]model.ShowtimeDetail, error) {
	var (
		where []string
		args  []interface{}
		q     = showtimeDetailSelect
	)
	if f.ManagerID != "" {
		q += ` JOIN auditorium_managers m ON m.auditorium_id = a.id`
		where = append(where, "m.user_id = ?")
		args = append(args, f.ManagerID)
	}
	if f.ScreenID != 0 {
		where = append(where, "st.screen_id = ?")
		args = append(args, f.ScreenID)
	}
	if f.ShowID != 0 {
		where = append(where, "st.show_id = ?")
		args = append(args, f.ShowID)
	}
	if f.AuditoriumID != 0 {
		where = append(where, "a.id = ?")
		args = append(args, f.AuditoriumID)
	}
	if !f.From.IsZero() {
		where = append(where, "st.start_time >= ?")
		args = append(args, f.From.UTC())
	}
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY st.start_time, st.id"

	out := []model.ShowtimeDetail{}
	err := r.db.SelectContext(ctx, &out, q, args...)
	return out, err
}
