package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/iliyamo/auditorium-booking/internal/config"
	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/repository"
)

// BookingAnalytics reads aggregate booking figures.
type BookingAnalytics interface {
	RevenueTrend(ctx context.Context, from, to time.Time) ([]model.RevenuePoint, error)
	RecentBookings(ctx context.Context, limit int) ([]model.RecentBooking, error)
	AuditoriumStats(ctx context.Context) ([]model.AuditoriumStats, error)
}

// AdminHandler manages venue manager accounts and serves booking
// analytics.
type AdminHandler struct {
	Cfg       config.AuthConfig
	Users     *repository.UserRepo
	Analytics BookingAnalytics
	L         logger.Logger
}

func NewAdminHandler(cfg config.AuthConfig, u *repository.UserRepo, a BookingAnalytics, l logger.Logger) *AdminHandler {
	return &AdminHandler{Cfg: cfg, Users: u, Analytics: a, L: l}
}

// CreateManager POST /v1/admin/managers {email, name, password}
func (h *AdminHandler) CreateManager(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || len(req.Password) < minPasswordLen {
		return badRequest(c, "email and a password of at least 8 characters required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Email, req.Name, req.Password, model.RoleManager, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusCreated, userPart{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role})
}

// ListManagers GET /v1/admin/managers
func (h *AdminHandler) ListManagers(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.Users.ListByRole(ctx, model.RoleManager)
	if err != nil {
		return respondError(c, h.L, err)
	}
	items := lo.Map(users, func(u model.User, _ int) userPart {
		return userPart{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
	})
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// parseDay accepts YYYY-MM-DD or RFC3339.  A bare date used as an upper
// bound covers the whole day.
func parseDay(v string, end bool) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return time.Time{}, err
	}
	if end {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}

// RevenueTrend GET /v1/admin/analytics/revenue?start_date=&end_date=
func (h *AdminHandler) RevenueTrend(c echo.Context) error {
	from, err := parseDay(c.QueryParam("start_date"), false)
	if err != nil {
		return badRequest(c, "start_date must be YYYY-MM-DD or RFC3339")
	}
	to, err := parseDay(c.QueryParam("end_date"), true)
	if err != nil {
		return badRequest(c, "end_date must be YYYY-MM-DD or RFC3339")
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return badRequest(c, "end_date before start_date")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	points, err := h.Analytics.RevenueTrend(ctx, from, to)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": points})
}

// RecentBookings GET /v1/admin/analytics/recent-bookings?limit=1..50
func (h *AdminHandler) RecentBookings(c echo.Context) error {
	limit := 10
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > repository.MaxRecentBookings {
			return badRequest(c, "limit must be between 1 and 50")
		}
		limit = n
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Analytics.RecentBookings(ctx, limit)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// AuditoriumStats GET /v1/admin/analytics/auditoriums
func (h *AdminHandler) AuditoriumStats(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Analytics.AuditoriumStats(ctx)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
