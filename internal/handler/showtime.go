package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/middleware"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/repository"
)

type ShowtimeStore interface {
	CreateMany(ctx context.Context, showID, screenID int64, starts []time.Time) ([]model.Showtime, error)
	ListUpcoming(ctx context.Context, f repository.ShowtimeFilter) ([]model.ShowtimeDetail, error)
	Search(ctx context.Context, q repository.ShowtimeSearch) ([]model.ShowtimeDetail, int64, error)
}

// ScreenAccess resolves screens and manager permissions.
type ScreenAccess interface {
	GetScreen(ctx context.Context, id int64) (model.Screen, error)
	IsManager(ctx context.Context, auditoriumID int64, userID string) (bool, error)
}

type SeatsInfoReader interface {
	SeatsInfo(ctx context.Context, showtimeID int64) (model.SeatsInfo, error)
}

type ShowtimeHandler struct {
	Showtimes ShowtimeStore
	Shows     ShowStore
	Screens   ScreenAccess
	Seats     SeatsInfoReader
	L         logger.Logger
	Now       func() time.Time
}

func NewShowtimeHandler(st ShowtimeStore, shows ShowStore, screens ScreenAccess, seats SeatsInfoReader, l logger.Logger) *ShowtimeHandler {
	return &ShowtimeHandler{Showtimes: st, Shows: shows, Screens: screens, Seats: seats, L: l, Now: time.Now}
}

type createShowtimesReq struct {
	ShowID    int64 `json:"showId"`
	ScreenID  int64 `json:"screenId"`
	Showtimes []struct {
		Time string `json:"time"`
	} `json:"showtimes"`
}

// Create schedules a show on a screen at one or more start times.
// Managers may only schedule on screens of auditoriums they manage.
// POST /v1/showtimes (ADMIN, MANAGER)
func (h *ShowtimeHandler) Create(c echo.Context) error {
	var req createShowtimesReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.ShowID <= 0 || req.ScreenID <= 0 || len(req.Showtimes) == 0 {
		return badRequest(c, "showId, screenId and showtimes required")
	}
	starts := make([]time.Time, 0, len(req.Showtimes))
	for _, st := range req.Showtimes {
		t, err := time.Parse(time.RFC3339, st.Time)
		if err != nil {
			return badRequest(c, "showtimes[].time must be RFC3339")
		}
		starts = append(starts, t.UTC())
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Shows.GetByID(ctx, req.ShowID); err != nil {
		return respondError(c, h.L, err)
	}
	screen, err := h.Screens.GetScreen(ctx, req.ScreenID)
	if err != nil {
		return respondError(c, h.L, err)
	}
	if middleware.Role(c) == model.RoleManager {
		uid, _ := getUserID(c)
		ok, err := h.Screens.IsManager(ctx, screen.AuditoriumID, uid)
		if err != nil {
			return respondError(c, h.L, err)
		}
		if !ok {
			return respondError(c, h.L, repository.ErrForbidden)
		}
	}

	out, err := h.Showtimes.CreateMany(ctx, req.ShowID, req.ScreenID, starts)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"items": out})
}

func (h *ShowtimeHandler) upcomingByDate(c echo.Context, f repository.ShowtimeFilter) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	f.From = h.Now().UTC()
	items, err := h.Showtimes.ListUpcoming(ctx, f)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"dates": model.GroupByDate(items)})
}

// ByScreen GET /v1/screens/:id/showtimes
func (h *ShowtimeHandler) ByScreen(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid screen id")
	}
	return h.upcomingByDate(c, repository.ShowtimeFilter{ScreenID: id})
}

// ByAuditoriumShow GET /v1/auditoriums/:id/shows/:showId/showtimes
func (h *ShowtimeHandler) ByAuditoriumShow(c echo.Context) error {
	aid, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid auditorium id")
	}
	sid, ok := parseIDParam(c, "showId")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	return h.upcomingByDate(c, repository.ShowtimeFilter{AuditoriumID: aid, ShowID: sid})
}

// Managed lists every showtime in the caller's auditoriums.
// GET /v1/manager/showtimes
func (h *ShowtimeHandler) Managed(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, h.L, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Showtimes.ListUpcoming(ctx, repository.ShowtimeFilter{ManagerID: uid})
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// SeatsInfo GET /v1/showtimes/:id/seats-info
func (h *ShowtimeHandler) SeatsInfo(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid showtime id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	info, err := h.Seats.SeatsInfo(ctx, id)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, info)
}

// Search GET /v1/search/showtimes?title=&auditorium=&genre=&time=upcoming|any&page=&page_size=
func (h *ShowtimeHandler) Search(c echo.Context) error {
	q := repository.ShowtimeSearch{
		Title:      strings.TrimSpace(c.QueryParam("title")),
		Auditorium: strings.TrimSpace(c.QueryParam("auditorium")),
		Genre:      model.Genre(strings.ToUpper(strings.TrimSpace(c.QueryParam("genre")))),
		TimeFilter: strings.ToLower(strings.TrimSpace(c.QueryParam("time"))),
	}
	if q.Genre != "" && !model.ValidGenre(q.Genre) {
		return badRequest(c, "unknown genre")
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	if q.Page < 1 {
		q.Page = 1
	}
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	items, total, err := h.Showtimes.Search(ctx, q)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"data":      items,
		"total":     total,
		"page":      q.Page,
		"page_size": q.PageSize,
	})
}
