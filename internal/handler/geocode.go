package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/service"
)

type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (service.Location, error)
	Search(ctx context.Context, query string) (service.Location, error)
}

type GeocodeHandler struct {
	Geocoder Geocoder
	L        logger.Logger
}

func NewGeocodeHandler(g Geocoder, l logger.Logger) *GeocodeHandler {
	return &GeocodeHandler{Geocoder: g, L: l}
}

// Reverse GET /v1/geocode/reverse?lat=&lng=
func (h *GeocodeHandler) Reverse(c echo.Context) error {
	lat, err1 := strconv.ParseFloat(c.QueryParam("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.QueryParam("lng"), 64)
	if err1 != nil || err2 != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return badRequest(c, "valid lat and lng required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Search resolves a city name to coordinates.
// GET /v1/geocode/search?city=
func (h *GeocodeHandler) Search(c echo.Context) error {
	city := strings.TrimSpace(c.QueryParam("city"))
	if city == "" || len(city) > 200 {
		return badRequest(c, "city required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.Geocoder.Search(ctx, city)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, res)
}
