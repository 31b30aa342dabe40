package model

import (
	"fmt"
	"strconv"
)

// Seat is one fixed position in a screen grid.  Row and Column are
// 1-based and (ScreenID, Row, Column) is unique.  Booked is the
// denormalized "sold at least once" flag; per-showtime availability is
// always derived from bookings.
type Seat struct {
	ID       int64 `db:"id" json:"id"`
	ScreenID int64 `db:"screen_id" json:"screenId"`
	Row      int   `db:"row_no" json:"row"`
	Column   int   `db:"col_no" json:"column"`
	Booked   bool  `db:"booked" json:"booked"`
}

// SeatPosition identifies a seat inside a screen.
type SeatPosition struct {
	Row    int `db:"row_no" json:"row"`
	Column int `db:"col_no" json:"column"`
}

// Label renders the position as a row letter plus column, e.g. A1, C12, AA3.
func (p SeatPosition) Label() string {
	return rowLabel(p.Row) + strconv.Itoa(p.Column)
}

func (p SeatPosition) String() string {
	return fmt.Sprintf("(%d,%d)", p.Row, p.Column)
}

// rowLabel converts a 1-based row number into A, B, ..., Z, AA, AB, ...
func rowLabel(row int) string {
	i := row - 1
	if i < 0 {
		return "?"
	}
	var res []byte
	for {
		res = append(res, byte('A'+i%26))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}

// SeatState is one cell of a showtime seat map.
type SeatState struct {
	Row    int  `db:"row_no" json:"row"`
	Column int  `db:"col_no" json:"column"`
	Booked bool `db:"booked" json:"booked"`
}

// SeatMap is the full grid of a showtime's screen.
type SeatMap struct {
	ShowtimeID int64       `json:"showtimeId"`
	ScreenID   int64       `json:"screenId"`
	Rows       int         `json:"rows"`
	Columns    int         `json:"columns"`
	Price      int         `json:"price"`
	Seats      []SeatState `json:"seats"`
}

// SeatsInfo summarizes occupancy of a showtime.
type SeatsInfo struct {
	Total  int `db:"total" json:"total"`
	Booked int `db:"booked" json:"booked"`
}
