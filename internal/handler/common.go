package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/middleware"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/repository"
	"github.com/iliyamo/auditorium-booking/internal/service"
)

// requestTimeout bounds the storage work of a single request.
const requestTimeout = 5 * time.Second

var errNoUser = errors.New("invalid user_id in context")

func requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// getUserID returns the subject stored by middleware.JWTAuth.
func getUserID(c echo.Context) (string, error) {
	if id := middleware.UserID(c); id != "" {
		return id, nil
	}
	return "", errNoUser
}

// parseIDParam reads a positive integer path parameter.
func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}

// respondError maps service and repository errors onto the HTTP taxonomy.
// A conflict carries the exact list of unavailable seats.
func respondError(c echo.Context, l logger.Logger, err error) error {
	var conflict *model.ConflictError
	switch {
	case errors.As(err, &conflict):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":            "seats unavailable",
			"unavailableSeats": conflict.Seats,
		})
	case errors.Is(err, service.ErrUnauthenticated), errors.Is(err, errNoUser):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrInvalidSelection),
		errors.Is(err, model.ErrEmptySelection),
		errors.Is(err, model.ErrDuplicateSeat),
		errors.Is(err, model.ErrSeatOutOfRange),
		errors.Is(err, model.ErrTooManySeats),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, service.ErrInvalidMetadata):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrShowtimeNotFound),
		errors.Is(err, repository.ErrAuditoriumNotFound),
		errors.Is(err, repository.ErrScreenNotFound),
		errors.Is(err, repository.ErrShowNotFound),
		errors.Is(err, repository.ErrTicketNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrLocationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
	case errors.Is(err, service.ErrPaymentsDisabled):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrGeocodingUnavailable):
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "geocoding failed"})
	}
	l.Errorf(c.Request().Context(), "handler: %s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
