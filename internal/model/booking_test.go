package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstSeats(n int) []SeatPosition {
	out := make([]SeatPosition, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, SeatPosition{Row: i/10 + 1, Column: i%10 + 1})
	}
	return out
}

func TestSelectionValidate(t *testing.T) {
	screen := Screen{ID: 7, Rows: 10, Columns: 10}

	tests := []struct {
		name  string
		seats []SeatPosition
		want  error
	}{
		{"ok", []SeatPosition{{Row: 3, Column: 4}, {Row: 10, Column: 10}}, nil},
		{"empty", nil, ErrEmptySelection},
		{"duplicate", []SeatPosition{{Row: 1, Column: 1}, {Row: 1, Column: 1}}, ErrDuplicateSeat},
		{"row zero", []SeatPosition{{Row: 0, Column: 1}}, ErrSeatOutOfRange},
		{"column past grid", []SeatPosition{{Row: 1, Column: 11}}, ErrSeatOutOfRange},
		{"seat cap", firstSeats(MaxSeatsPerBooking), nil},
		{"past seat cap", firstSeats(MaxSeatsPerBooking + 1), ErrTooManySeats},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Selection{ShowtimeID: 42, UserID: "u1", Seats: tt.seats}.Validate(screen)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTakenAmongKeepsRequestOrder(t *testing.T) {
	requested := []SeatPosition{{Row: 2, Column: 2}, {Row: 1, Column: 1}, {Row: 3, Column: 3}}
	taken := []SeatPosition{{Row: 1, Column: 1}, {Row: 2, Column: 2}, {Row: 9, Column: 9}}

	got := TakenAmong(requested, taken)
	assert.Equal(t, []SeatPosition{{Row: 2, Column: 2}, {Row: 1, Column: 1}}, got)
	assert.Empty(t, TakenAmong(requested, nil))
}

func TestSeatLabel(t *testing.T) {
	assert.Equal(t, "A1", SeatPosition{Row: 1, Column: 1}.Label())
	assert.Equal(t, "C12", SeatPosition{Row: 3, Column: 12}.Label())
	assert.Equal(t, "Z5", SeatPosition{Row: 26, Column: 5}.Label())
	assert.Equal(t, "AA3", SeatPosition{Row: 27, Column: 3}.Label())
	assert.Equal(t, "?1", SeatPosition{Row: 0, Column: 1}.Label())
}

func TestConflictError(t *testing.T) {
	var err error = &ConflictError{ShowtimeID: 42, Seats: []SeatPosition{{Row: 3, Column: 4}}}

	assert.True(t, errors.Is(err, ErrSeatsUnavailable))
	assert.Contains(t, err.Error(), "C4")

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, int64(42), ce.ShowtimeID)
}

func TestGroupByDate(t *testing.T) {
	day1 := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	in := []ShowtimeDetail{
		{Showtime: Showtime{ID: 1, StartTime: day1}},
		{Showtime: Showtime{ID: 2, StartTime: day1.Add(3 * time.Hour)}},
		{Showtime: Showtime{ID: 3, StartTime: day2}},
	}

	got := GroupByDate(in)
	require.Len(t, got, 2)
	assert.Equal(t, "2026-03-01", got[0].Date)
	assert.Len(t, got[0].Showtimes, 2)
	assert.Equal(t, "2026-03-02", got[1].Date)
	assert.NotNil(t, GroupByDate(nil))
}
