package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

// ShowtimeSearch filters and paginates the public showtime search.
type ShowtimeSearch struct {
	Title      string
	Auditorium string
	Genre      model.Genre
	TimeFilter string // upcoming (default) or any
	Page       int
	PageSize   int
}

// Search matches titles and auditorium names case-insensitively and
// returns one page plus the total match count.
func (r *ShowtimeRepo) Search(ctx context.Context, q ShowtimeSearch) ([]model.ShowtimeDetail, int64, error) {
	var (
		where []string
		args  []interface{}
	)
	if strings.ToLower(q.TimeFilter) != "any" {
		where = append(where, "st.start_time >= UTC_TIMESTAMP()")
	}
	if q.Title != "" {
		where = append(where, "LOWER(sh.title) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Title)+"%")
	}
	if q.Auditorium != "" {
		where = append(where, "LOWER(a.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Auditorium)+"%")
	}
	if q.Genre != "" {
		where = append(where, "sh.genre = ?")
		args = append(args, q.Genre)
	}
	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*)
		FROM showtimes st
		JOIN shows sh ON sh.id = st.show_id
		JOIN screens sc ON sc.id = st.screen_id
		JOIN auditoriums a ON a.id = sc.auditorium_id`+cond, args...); err != nil {
		return nil, 0, err
	}

	page, size := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	out := []model.ShowtimeDetail{}
	err := r.db.SelectContext(ctx, &out,
		showtimeDetailSelect+cond+` ORDER BY st.start_time, st.id LIMIT ? OFFSET ?`,
		append(args, size, (page-1)*size)...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
