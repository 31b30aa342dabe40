package model

import "time"

// Genre classifies a show.
type Genre string

const (
	GenreMovie    Genre = "MOVIE"
	GenreLecture  Genre = "LECTURE"
	GenreConcert  Genre = "CONCERT"
	GenreTheatre  Genre = "THEATRE"
	GenreWorkshop Genre = "WORKSHOP"
	GenreOther    Genre = "OTHER"
)

func ValidGenre(g Genre) bool {
	switch g {
	case GenreMovie, GenreLecture, GenreConcert, GenreTheatre, GenreWorkshop, GenreOther:
		return true
	}
	return false
}

// Show is an event that can be scheduled on screens.
type Show struct {
	ID          int64     `db:"id" json:"id"`
	Title       string    `db:"title" json:"title"`
	Genre       Genre     `db:"genre" json:"genre"`
	Organizer   string    `db:"organizer" json:"organizer"`
	Duration    int       `db:"duration_min" json:"duration"`
	ReleaseDate time.Time `db:"release_date" json:"releaseDate"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// Showtime is one scheduled instance of a show on a screen.
type Showtime struct {
	ID        int64     `db:"id" json:"id"`
	ShowID    int64     `db:"show_id" json:"showId"`
	ScreenID  int64     `db:"screen_id" json:"screenId"`
	StartTime time.Time `db:"start_time" json:"startTime"`
}

// ShowtimeDetail joins a showtime with its show, screen and auditorium.
type ShowtimeDetail struct {
	Showtime
	ShowTitle      string `db:"show_title" json:"showTitle"`
	ScreenNumber   int    `db:"screen_number" json:"screenNumber"`
	Rows           int    `db:"rows_count" json:"rows"`
	Columns        int    `db:"cols_count" json:"columns"`
	Price          int    `db:"price" json:"price"`
	AuditoriumID   int64  `db:"auditorium_id" json:"auditoriumId"`
	AuditoriumName string `db:"auditorium_name" json:"auditoriumName"`
}

// ShowtimesByDate groups showtimes sharing a UTC calendar date (YYYY-MM-DD).
type ShowtimesByDate struct {
	Date      string           `json:"date"`
	Showtimes []ShowtimeDetail `json:"showtimes"`
}

// GroupByDate buckets showtimes by UTC start date, keeping input order
// within and across buckets.
func GroupByDate(in []ShowtimeDetail) []ShowtimesByDate {
	out := []ShowtimesByDate{}
	idx := map[string]int{}
	for _, st := range in {
		d := st.StartTime.UTC().Format("2006-01-02")
		i, ok := idx[d]
		if !ok {
			i = len(out)
			idx[d] = i
			out = append(out, ShowtimesByDate{Date: d})
		}
		out[i].Showtimes = append(out[i].Showtimes, st)
	}
	return out
}

// Screen returns the grid the showtime runs on.
func (d ShowtimeDetail) Screen() Screen {
	return Screen{
		ID:           d.ScreenID,
		AuditoriumID: d.AuditoriumID,
		Number:       d.ScreenNumber,
		Rows:         d.Rows,
		Columns:      d.Columns,
		Price:        d.Price,
	}
}
