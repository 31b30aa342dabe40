package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-booking/internal/model"
)

func TestTicketPayloadRoundTrip(t *testing.T) {
	in := TicketPayload{
		UserID:     "u1",
		ShowtimeID: 42,
		Seats:      []model.SeatPosition{{Row: 3, Column: 4}, {Row: 3, Column: 5}},
		BookingID:  NewBookingReference(),
		Timestamp:  time.Date(2026, 3, 1, 18, 30, 0, 0, time.FixedZone("IST", 19800)),
	}

	raw, err := EncodeTicketPayload(in)
	require.NoError(t, err)
	assert.Contains(t, raw, `"bookingId":"BK`)

	out, err := DecodeTicketPayload(raw)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.ShowtimeID, out.ShowtimeID)
	assert.Equal(t, in.Seats, out.Seats)
	assert.Equal(t, in.BookingID, out.BookingID)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
}

func TestDecodeTicketPayloadRejectsGarbage(t *testing.T) {
	_, err := DecodeTicketPayload("not json")
	assert.Error(t, err)
}

func TestBookingReferencesAreUnique(t *testing.T) {
	a, b := NewBookingReference(), NewBookingReference()
	assert.True(t, strings.HasPrefix(a, "BK"))
	assert.NotEqual(t, a, b)
}

func TestTicketQR(t *testing.T) {
	png, err := TicketQRPNG(`{"bookingId":"BK1"}`)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))

	url, err := TicketQRDataURL(`{"bookingId":"BK1"}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestLargestTicketFitsInQR(t *testing.T) {
	// widest seat labels on the largest grid
	seats := make([]model.SeatPosition, 0, model.MaxSeatsPerBooking)
	for i := 0; i < model.MaxSeatsPerBooking; i++ {
		seats = append(seats, model.SeatPosition{Row: 100 - i/4, Column: 100 - i%4})
	}
	payload, err := EncodeTicketPayload(TicketPayload{
		UserID:     "0b9e8c4e-7a55-4c1b-9d7e-3f6a2b1c0d99",
		ShowtimeID: 9223372036854775807,
		Seats:      seats,
		BookingID:  NewBookingReference(),
		Timestamp:  time.Date(2026, 3, 1, 18, 0, 0, 123456789, time.UTC),
	})
	require.NoError(t, err)

	png, err := TicketQRPNG(payload)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
}
