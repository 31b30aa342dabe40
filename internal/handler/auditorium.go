package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/repository"
)

type AuditoriumStore interface {
	Create(ctx context.Context, in repository.NewAuditorium) (model.Auditorium, error)
	GetByID(ctx context.Context, id int64) (model.Auditorium, error)
	SearchByBounds(ctx context.Context, b model.Bounds, limit int) ([]model.Auditorium, error)
	ListByManager(ctx context.Context, userID string) ([]model.Auditorium, error)
	CountByManager(ctx context.Context, userID string) (int, error)
	IsManager(ctx context.Context, auditoriumID int64, userID string) (bool, error)
	Update(ctx context.Context, id int64, in repository.NewAuditorium) (model.Auditorium, []int64, error)
	Delete(ctx context.Context, id int64) ([]int64, error)
	ListScreens(ctx context.Context, auditoriumID int64) ([]model.Screen, error)
	GetScreen(ctx context.Context, id int64) (model.Screen, error)
}

type UserReader interface {
	GetByID(ctx context.Context, id string) (model.User, error)
}

// SeatMapInvalidator drops cached seat maps of removed showtimes.
type SeatMapInvalidator interface {
	Invalidate(ctx context.Context, showtimeID int64) error
}

type AuditoriumHandler struct {
	Auditoriums AuditoriumStore
	Users       UserReader
	SeatMaps    SeatMapInvalidator
	L           logger.Logger
}

func NewAuditoriumHandler(a AuditoriumStore, u UserReader, seatMaps SeatMapInvalidator, l logger.Logger) *AuditoriumHandler {
	return &AuditoriumHandler{Auditoriums: a, Users: u, SeatMaps: seatMaps, L: l}
}

func (h *AuditoriumHandler) invalidateSeatMaps(ctx context.Context, showtimeIDs []int64) {
	if h.SeatMaps == nil {
		return
	}
	for _, id := range showtimeIDs {
		if err := h.SeatMaps.Invalidate(ctx, id); err != nil {
			h.L.Warnf(ctx, "handler.auditorium: invalidate seat map %d: %v", id, err)
		}
	}
}

// maxGridSide caps rows and columns of a screen.
const maxGridSide = 100

type addressReq struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type screenReq struct {
	Rows            int    `json:"rows"`
	Columns         int    `json:"columns"`
	Price           int    `json:"price"`
	ProjectionType  string `json:"projectionType"`
	SoundSystemType string `json:"soundSystemType"`
}

type createAuditoriumReq struct {
	Name      string      `json:"name"`
	Address   addressReq  `json:"address"`
	ManagerID string      `json:"managerId"`
	Screens   []screenReq `json:"screens"`
}

// toInput validates the request.  Updates may leave screens out to keep
// the current ones.
func (r createAuditoriumReq) toInput(requireScreens bool) (repository.NewAuditorium, error) {
	in := repository.NewAuditorium{
		Name:      strings.TrimSpace(r.Name),
		Address:   model.Address{Lat: r.Address.Lat, Lng: r.Address.Lng, Address: strings.TrimSpace(r.Address.Address)},
		ManagerID: strings.TrimSpace(r.ManagerID),
	}
	if in.Name == "" {
		return in, errors.New("name required")
	}
	if r.Address.Lat < -90 || r.Address.Lat > 90 || r.Address.Lng < -180 || r.Address.Lng > 180 {
		return in, errors.New("address lat/lng out of range")
	}
	if requireScreens && len(r.Screens) == 0 {
		return in, errors.New("at least one screen required")
	}
	for i, s := range r.Screens {
		if s.Rows < 1 || s.Rows > maxGridSide || s.Columns < 1 || s.Columns > maxGridSide {
			return in, fmt.Errorf("screen %d: rows and columns must be between 1 and %d", i+1, maxGridSide)
		}
		if s.Price < 0 {
			return in, fmt.Errorf("screen %d: price must not be negative", i+1)
		}
		proj := model.ProjectionType(strings.ToUpper(strings.TrimSpace(s.ProjectionType)))
		if proj == "" {
			proj = model.ProjectionStandard
		}
		sound := model.SoundSystemType(strings.ToUpper(strings.TrimSpace(s.SoundSystemType)))
		if sound == "" {
			sound = model.SoundStereo
		}
		if !model.ValidProjection(proj) || !model.ValidSoundSystem(sound) {
			return in, fmt.Errorf("screen %d: unknown projection or sound system", i+1)
		}
		in.Screens = append(in.Screens, repository.NewScreen{
			Rows: s.Rows, Columns: s.Columns, Price: s.Price, ProjectionType: proj, SoundSystemType: sound,
		})
	}
	return in, nil
}

// Create registers an auditorium with its screens and seat grids.
// POST /v1/auditoriums (ADMIN)
func (h *AuditoriumHandler) Create(c echo.Context) error {
	var req createAuditoriumReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.toInput(true)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if msg, err := h.checkManager(ctx, in.ManagerID); msg != "" || err != nil {
		if err != nil {
			return respondError(c, h.L, err)
		}
		return badRequest(c, msg)
	}

	a, err := h.Auditoriums.Create(ctx, in)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// checkManager returns a client message when managerID does not name a
// MANAGER user.
func (h *AuditoriumHandler) checkManager(ctx context.Context, managerID string) (string, error) {
	if managerID == "" {
		return "", nil
	}
	u, err := h.Users.GetByID(ctx, managerID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return "manager not found", nil
	}
	if err != nil {
		return "", err
	}
	if u.Role != model.RoleManager {
		return "user is not a manager", nil
	}
	return "", nil
}

// Update edits an auditorium.  Sending screens replaces all of them and
// cancels everything scheduled on the old ones.
// PUT /v1/auditoriums/:id (ADMIN)
func (h *AuditoriumHandler) Update(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid auditorium id")
	}
	var req createAuditoriumReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.toInput(false)
	if err != nil {
		return badRequest(c, err.Error())
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if msg, err := h.checkManager(ctx, in.ManagerID); msg != "" || err != nil {
		if err != nil {
			return respondError(c, h.L, err)
		}
		return badRequest(c, msg)
	}

	a, removed, err := h.Auditoriums.Update(ctx, id, in)
	if err != nil {
		return respondError(c, h.L, err)
	}
	if len(removed) > 0 {
		h.L.Infof(ctx, "handler.auditorium.Update: auditorium %d: screens replaced, %d showtimes removed", id, len(removed))
	}
	h.invalidateSeatMaps(ctx, removed)
	return c.JSON(http.StatusOK, a)
}

// Get is public.  GET /v1/auditoriums/:id
func (h *AuditoriumHandler) Get(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid auditorium id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	a, err := h.Auditoriums.GetByID(ctx, id)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Search finds auditoriums inside a map viewport.
// GET /v1/auditoriums?ne_lat=&ne_lng=&sw_lat=&sw_lng=
func (h *AuditoriumHandler) Search(c echo.Context) error {
	var vals [4]float64
	for i, name := range []string{"ne_lat", "ne_lng", "sw_lat", "sw_lng"} {
		v, err := strconv.ParseFloat(c.QueryParam(name), 64)
		if err != nil {
			return badRequest(c, name+" required")
		}
		vals[i] = v
	}
	b := model.Bounds{NELat: vals[0], NELng: vals[1], SWLat: vals[2], SWLng: vals[3]}
	if b.SWLat > b.NELat || b.SWLng > b.NELng {
		return badRequest(c, "south-west corner must be below and left of north-east corner")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Auditoriums.SearchByBounds(ctx, b, limit)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListManaged returns the caller's auditoriums.  GET /v1/manager/auditoriums
func (h *AuditoriumHandler) ListManaged(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, h.L, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	items, err := h.Auditoriums.ListByManager(ctx, uid)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Dashboard returns manager counters.  GET /v1/manager/dashboard
func (h *AuditoriumHandler) Dashboard(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondError(c, h.L, err)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	n, err := h.Auditoriums.CountByManager(ctx, uid)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"auditoriumCount": n})
}

// Delete removes an auditorium and everything scheduled in it.
// DELETE /v1/auditoriums/:id (ADMIN)
func (h *AuditoriumHandler) Delete(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid auditorium id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	removed, err := h.Auditoriums.Delete(ctx, id)
	if err != nil {
		return respondError(c, h.L, err)
	}
	h.invalidateSeatMaps(ctx, removed)
	return c.NoContent(http.StatusNoContent)
}

// Screens is public.  GET /v1/auditoriums/:id/screens
func (h *AuditoriumHandler) Screens(c echo.Context) error {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid auditorium id")
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if _, err := h.Auditoriums.GetByID(ctx, id); err != nil {
		return respondError(c, h.L, err)
	}
	items, err := h.Auditoriums.ListScreens(ctx, id)
	if err != nil {
		return respondError(c, h.L, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
