package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/middleware"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/repository"
	"github.com/iliyamo/auditorium-booking/internal/service"
	"github.com/iliyamo/auditorium-booking/internal/utils"
)

const testSecret = "test-secret"

type stubBookings struct {
	bookErr error
	lastSel model.Selection
}

func (s *stubBookings) Book(_ context.Context, sel model.Selection, _ string) (model.BookingResult, error) {
	s.lastSel = sel
	if s.bookErr != nil {
		return model.BookingResult{}, s.bookErr
	}
	return model.BookingResult{TicketID: 1, BookingIDs: []int64{10, 11}, Reference: "BKtest"}, nil
}

func (s *stubBookings) Verify(_ context.Context, sel model.Selection) (model.Availability, error) {
	return model.Availability{Available: true, UnavailableSeats: []model.SeatPosition{}}, nil
}

func (s *stubBookings) SeatMap(_ context.Context, id int64) (model.SeatMap, error) {
	if id != 42 {
		return model.SeatMap{}, repository.ErrShowtimeNotFound
	}
	return model.SeatMap{ShowtimeID: 42, Rows: 1, Columns: 1, Seats: []model.SeatState{{Row: 1, Column: 1}}}, nil
}

type stubHistory struct{}

func (stubHistory) ListByUser(context.Context, string) ([]model.Booking, error) {
	return []model.Booking{}, nil
}

func newBookingServer(svc *stubBookings) *echo.Echo {
	e := echo.New()
	h := NewBookingHandler(svc, stubHistory{}, logger.NewNop())
	e.GET("/v1/showtimes/:id/seats", h.SeatMap)
	g := e.Group("/v1", middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleCustomer))
	g.POST("/bookings", h.Create)
	g.POST("/bookings/verify", h.Verify)
	return e
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, userID, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func do(e *echo.Echo, method, path, body, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const bookingBody = `{"showtimeId":42,"seats":[{"row":3,"column":4}]}`

func TestCreateBooking(t *testing.T) {
	svc := &stubBookings{}
	e := newBookingServer(svc)

	rec := do(e, http.MethodPost, "/v1/bookings", bookingBody, bearer(t, "u1", model.RoleCustomer))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "u1", svc.lastSel.UserID)
	assert.Equal(t, []model.SeatPosition{{Row: 3, Column: 4}}, svc.lastSel.Seats)

	var res model.BookingResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, []int64{10, 11}, res.BookingIDs)
}

func TestCreateBookingConflictListsSeats(t *testing.T) {
	svc := &stubBookings{bookErr: &model.ConflictError{ShowtimeID: 42, Seats: []model.SeatPosition{{Row: 3, Column: 4}}}}
	e := newBookingServer(svc)

	rec := do(e, http.MethodPost, "/v1/bookings", bookingBody, bearer(t, "u2", model.RoleCustomer))
	require.Equal(t, http.StatusConflict, rec.Code)

	var body struct {
		Error            string               `json:"error"`
		UnavailableSeats []model.SeatPosition `json:"unavailableSeats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []model.SeatPosition{{Row: 3, Column: 4}}, body.UnavailableSeats)
}

func TestCreateBookingErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		body string
		auth bool
		want int
	}{
		{"no token", nil, bookingBody, false, http.StatusUnauthorized},
		{"missing showtime", nil, `{"seats":[{"row":1,"column":1}]}`, true, http.StatusBadRequest},
		{"malformed body", nil, `{"showtimeId":`, true, http.StatusBadRequest},
		{"out of grid", fmt.Errorf("%w: %w", service.ErrInvalidSelection, model.ErrSeatOutOfRange), bookingBody, true, http.StatusBadRequest},
		{"unknown showtime", repository.ErrShowtimeNotFound, bookingBody, true, http.StatusNotFound},
		{"storage failure", errors.New("connection reset"), bookingBody, true, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newBookingServer(&stubBookings{bookErr: tt.err})
			auth := ""
			if tt.auth {
				auth = bearer(t, "u1", model.RoleCustomer)
			}
			rec := do(e, http.MethodPost, "/v1/bookings", tt.body, auth)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRoleGate(t *testing.T) {
	e := newBookingServer(&stubBookings{})
	rec := do(e, http.MethodPost, "/v1/bookings", bookingBody, bearer(t, "m1", "GUEST"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSeatMapIsPublic(t *testing.T) {
	e := newBookingServer(&stubBookings{})

	rec := do(e, http.MethodGet, "/v1/showtimes/42/seats", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"showtimeId":42`)

	assert.Equal(t, http.StatusNotFound, do(e, http.MethodGet, "/v1/showtimes/7/seats", "", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(e, http.MethodGet, "/v1/showtimes/abc/seats", "", "").Code)
}
