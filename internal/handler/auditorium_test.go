package handler

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/middleware"
	"github.com/iliyamo/auditorium-booking/internal/model"
	"github.com/iliyamo/auditorium-booking/internal/repository"
)

// stubAuditoriums holds auditorium 3 with showtimes 41 and 42.
type stubAuditoriums struct {
	updated repository.NewAuditorium
}

func (s *stubAuditoriums) Create(_ context.Context, in repository.NewAuditorium) (model.Auditorium, error) {
	return model.Auditorium{ID: 4, Name: in.Name}, nil
}

func (s *stubAuditoriums) GetByID(_ context.Context, id int64) (model.Auditorium, error) {
	if id != 3 {
		return model.Auditorium{}, repository.ErrAuditoriumNotFound
	}
	return model.Auditorium{ID: 3, Name: "Town Hall"}, nil
}

func (s *stubAuditoriums) SearchByBounds(context.Context, model.Bounds, int) ([]model.Auditorium, error) {
	return nil, nil
}

func (s *stubAuditoriums) ListByManager(context.Context, string) ([]model.Auditorium, error) {
	return nil, nil
}

func (s *stubAuditoriums) CountByManager(context.Context, string) (int, error) { return 0, nil }

func (s *stubAuditoriums) IsManager(context.Context, int64, string) (bool, error) { return false, nil }

func (s *stubAuditoriums) Update(_ context.Context, id int64, in repository.NewAuditorium) (model.Auditorium, []int64, error) {
	if id != 3 {
		return model.Auditorium{}, nil, repository.ErrAuditoriumNotFound
	}
	s.updated = in
	var removed []int64
	if len(in.Screens) > 0 {
		removed = []int64{41, 42}
	}
	return model.Auditorium{ID: 3, Name: in.Name}, removed, nil
}

func (s *stubAuditoriums) Delete(_ context.Context, id int64) ([]int64, error) {
	if id != 3 {
		return nil, repository.ErrAuditoriumNotFound
	}
	return []int64{41, 42}, nil
}

func (s *stubAuditoriums) ListScreens(context.Context, int64) ([]model.Screen, error) { return nil, nil }

func (s *stubAuditoriums) GetScreen(context.Context, int64) (model.Screen, error) {
	return model.Screen{}, repository.ErrScreenNotFound
}

type stubUsers map[string]model.User

func (u stubUsers) GetByID(_ context.Context, id string) (model.User, error) {
	usr, ok := u[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return usr, nil
}

type recordingInvalidator struct {
	mu  sync.Mutex
	ids []int64
}

func (r *recordingInvalidator) Invalidate(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	return nil
}

func newAuditoriumServer(store *stubAuditoriums, inv *recordingInvalidator) *echo.Echo {
	e := echo.New()
	users := stubUsers{
		"m1": {ID: "m1", Role: model.RoleManager},
		"c1": {ID: "c1", Role: model.RoleCustomer},
	}
	h := NewAuditoriumHandler(store, users, inv, logger.NewNop())
	g := e.Group("/v1", middleware.JWTAuth(testSecret), middleware.RequireRole(model.RoleAdmin))
	g.PUT("/auditoriums/:id", h.Update)
	g.DELETE("/auditoriums/:id", h.Delete)
	return e
}

func TestUpdateAuditoriumKeepsScreens(t *testing.T) {
	store := &stubAuditoriums{}
	inv := &recordingInvalidator{}
	e := newAuditoriumServer(store, inv)

	rec := do(e, http.MethodPut, "/v1/auditoriums/3",
		`{"name":" Grand Hall ","address":{"lat":12.9,"lng":77.6,"address":"MG Road"},"managerId":"m1"}`,
		bearer(t, "admin", model.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Grand Hall", store.updated.Name)
	assert.Equal(t, "m1", store.updated.ManagerID)
	assert.Empty(t, store.updated.Screens)
	assert.Empty(t, inv.ids)
}

func TestUpdateAuditoriumReplacingScreensDropsSeatMaps(t *testing.T) {
	store := &stubAuditoriums{}
	inv := &recordingInvalidator{}
	e := newAuditoriumServer(store, inv)

	rec := do(e, http.MethodPut, "/v1/auditoriums/3",
		`{"name":"Grand Hall","address":{"lat":12.9,"lng":77.6},"screens":[{"rows":5,"columns":8,"price":300}]}`,
		bearer(t, "admin", model.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, store.updated.Screens, 1)
	assert.Equal(t, model.ProjectionStandard, store.updated.Screens[0].ProjectionType)
	assert.Equal(t, []int64{41, 42}, inv.ids)
}

func TestUpdateAuditoriumRejects(t *testing.T) {
	e := newAuditoriumServer(&stubAuditoriums{}, &recordingInvalidator{})
	admin := bearer(t, "admin", model.RoleAdmin)

	tests := []struct {
		name string
		path string
		body string
		auth string
		want int
	}{
		{"no name", "/v1/auditoriums/3", `{"address":{"lat":1,"lng":1}}`, admin, http.StatusBadRequest},
		{"bad grid", "/v1/auditoriums/3", `{"name":"X","address":{"lat":1,"lng":1},"screens":[{"rows":0,"columns":5}]}`, admin, http.StatusBadRequest},
		{"manager is a customer", "/v1/auditoriums/3", `{"name":"X","address":{"lat":1,"lng":1},"managerId":"c1"}`, admin, http.StatusBadRequest},
		{"unknown manager", "/v1/auditoriums/3", `{"name":"X","address":{"lat":1,"lng":1},"managerId":"nobody"}`, admin, http.StatusBadRequest},
		{"unknown auditorium", "/v1/auditoriums/9", `{"name":"X","address":{"lat":1,"lng":1}}`, admin, http.StatusNotFound},
		{"not admin", "/v1/auditoriums/3", `{"name":"X","address":{"lat":1,"lng":1}}`, bearer(t, "m1", model.RoleManager), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPut, tt.path, tt.body, tt.auth)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestDeleteAuditoriumDropsSeatMaps(t *testing.T) {
	inv := &recordingInvalidator{}
	e := newAuditoriumServer(&stubAuditoriums{}, inv)

	rec := do(e, http.MethodDelete, "/v1/auditoriums/3", "", bearer(t, "admin", model.RoleAdmin))
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int64{41, 42}, inv.ids)

	rec = do(e, http.MethodDelete, "/v1/auditoriums/9", "", bearer(t, "admin", model.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
