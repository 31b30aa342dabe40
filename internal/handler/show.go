package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/model"
)

type ShowStore interface {
	Create(ctx context.Context, s model.Show) (model.Show, error)
	GetByID(ctx context.Context, id int64) (model.Show, error)
	List(ctx context.Context, genre model.Genre) ([]model.Show, error)
}

type ShowHandler struct {
	Shows ShowStore
	L     logger.Logger
}

func NewShowHandler(s ShowStore, l logger.Logger) *ShowHandler {
	return &ShowHandler{Shows: s, L: l}
}

type createShowReq struct {
	Title       string `json:"title"`
	Genre       string `json:"genre"`
	Organizer   string `json:"organizer"`
	Duration    int    `json:"duration"`
	ReleaseDate string `json:"releaseDate"`
}

// parseDate accepts RFC3339 or a bare YYYY-MM-DD (UTC midnight).
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Create POST /v1/shows (ADMIN, MANAGER)
func (h *ShowHandler) Create(c echo.Context) error {
	var req createShowReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	s := model.Show{
		Title:     strings.TrimSpace(req.Title),
		Genre:     model.Genre(strings.ToUpper(strings.TrimSpace(req.Genre))),
		Organizer: strings.TrimSpace(req.Organizer),
		Duration:  req.Duration,
	}
	if s.Title == "" || s.Organizer == "" {
		return badRequest(c, "title and organizer required")
	}
	if !model.ValidGenre(s.Genre) {
		return badRequest(c, "unknown genre")
	}
	if s.Duration <= 0 {
		return badRequest(c, "duration must be positive minutes")
	}
	rd, ok := parseDate(req.ReleaseDate)
	if !ok {
		return badRequest(c, "releaseDate must be YYYY-MM-DD or RFC3339")
	}
	s.ReleaseDate = rd

	ctx, cancel := requestContext(c)
	defer cancel()

	out, err := h.Shows.Create(ctx, s)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// List GET /v1/shows?genre=
func (h *ShowHandler) List(c echo.Context) error {
	genre := model.Genre(strings.ToUpper(strings.TrimSpace(c.QueryParam("genre"))))
	if genre != "" && !model.ValidGenre(genre) {
		return badRequest(c, "unknown genre")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Shows.List(ctx, genre)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get GET /v1/shows/:id
func (h *ShowHandler) Get(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid show id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	s, err := h.Shows.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, s)
}
