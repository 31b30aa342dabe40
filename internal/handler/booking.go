package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/metrics"
	"github.com/iliyamo/auditorium-booking/internal/model"
)

// BookingService is the seat guard as seen by HTTP.
type BookingService interface {
	Book(ctx context.Context, sel model.Selection, source string) (model.BookingResult, error)
	Verify(ctx context.Context, sel model.Selection) (model.Availability, error)
	SeatMap(ctx context.Context, showtimeID int64) (model.SeatMap, error)
}

// BookingLister lists a user's bookings.
type BookingLister interface {
	ListByUser(ctx context.Context, userID string) ([]model.Booking, error)
}

type BookingHandler struct {
	Service BookingService
	History BookingLister
	L       logger.Logger
}

func NewBookingHandler(svc BookingService, history BookingLister, l logger.Logger) *BookingHandler {
	return &BookingHandler{Service: svc, History: history, L: l}
}

type seatSelectionReq struct {
	ShowtimeID int64                `json:"showtimeId"`
	Seats      []model.SeatPosition `json:"seats"`
}

// selection binds the request body into a Selection owned by the caller.
func selection(c echo.Context) (model.Selection, error) {
	var req seatSelectionReq
	if err := c.Bind(&req); err != nil {
		return model.Selection{}, err
	}
	uid, _ := getUserID(c)
	return model.Selection{ShowtimeID: req.ShowtimeID, UserID: uid, Seats: req.Seats}, nil
}

// Create books every requested seat or none.
// POST /v1/bookings {showtimeId, seats:[{row, column}]}
func (h *BookingHandler) Create(c echo.Context) error {
	sel, err := selection(c)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	if sel.ShowtimeID <= 0 {
		return badRequest(c, "showtimeId required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Service.Book(ctx, sel, metrics.SourceAPI)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Verify is an advisory availability check; it reserves nothing.
// POST /v1/bookings/verify
func (h *BookingHandler) Verify(c echo.Context) error {
	sel, err := selection(c)
	if err != nil {
		return badRequest(c, "invalid body")
	}
	if sel.ShowtimeID <= 0 {
		return badRequest(c, "showtimeId required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	avail, err := h.Service.Verify(ctx, sel)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, avail)
}

// SeatMap is public.  GET /v1/showtimes/:id/seats
func (h *BookingHandler) SeatMap(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	m, err := h.Service.SeatMap(ctx, id)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, m)
}

// ListMine returns the caller's bookings.  GET /v1/bookings
func (h *BookingHandler) ListMine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, h.L, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.History.ListByUser(ctx, uid)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}
