// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/auditorium-booking/internal/config"
	"github.com/iliyamo/auditorium-booking/internal/handler"
	"github.com/iliyamo/auditorium-booking/internal/logger"
	"github.com/iliyamo/auditorium-booking/internal/middleware"
	"github.com/iliyamo/auditorium-booking/internal/model"
)

// Handlers groups everything RegisterRoutes mounts.
type Handlers struct {
	Health      echo.HandlerFunc
	Auth        *handler.AuthHandler
	Admin       *handler.AdminHandler
	Auditoriums *handler.AuditoriumHandler
	Shows       *handler.ShowHandler
	Showtimes   *handler.ShowtimeHandler
	Bookings    *handler.BookingHandler
	Tickets     *handler.TicketHandler
	Payments    *handler.PaymentHandler
	Geocode     *handler.GeocodeHandler
}

// RegisterRoutes mounts the whole API.  rdb may be nil, which disables the
// response cache and the rate limiter.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, h Handlers, rdb *redis.Client, l logger.Logger) {
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	jwt := middleware.JWTAuth(cfg.Auth.JWTSecret)
	anyRole := middleware.RequireRole(model.RoleCustomer, model.RoleManager, model.RoleAdmin)
	staff := middleware.RequireRole(model.RoleAdmin, model.RoleManager)
	admin := middleware.RequireRole(model.RoleAdmin)
	manager := middleware.RequireRole(model.RoleManager)
	limit := middleware.NewTokenBucket(cfg.RateLimit, rdb, l)
	cache := middleware.NewRedisCache(cfg.Cache, rdb)

	a := e.Group("/v1/auth")
	a.POST("/register", h.Auth.Register)
	a.POST("/login", h.Auth.Login)
	a.POST("/refresh", h.Auth.Refresh)
	a.POST("/refresh-access", h.Auth.RefreshAccess)
	a.POST("/logout", h.Auth.Logout)
	e.POST("/v1/logout", h.Auth.Logout)

	// public catalog
	pub := e.Group("/v1")
	pub.GET("/auditoriums", h.Auditoriums.Search, cache)
	pub.GET("/auditoriums/:id", h.Auditoriums.Get, cache)
	pub.GET("/auditoriums/:id/screens", h.Auditoriums.Screens, cache)
	pub.GET("/auditoriums/:id/shows/:showId/showtimes", h.Showtimes.ByAuditoriumShow)
	pub.GET("/shows", h.Shows.List, cache)
	pub.GET("/shows/:id", h.Shows.Get, cache)
	pub.GET("/screens/:id/showtimes", h.Showtimes.ByScreen)
	pub.GET("/showtimes/:id/seats", h.Bookings.SeatMap)
	pub.GET("/showtimes/:id/seats-info", h.Showtimes.SeatsInfo)
	pub.GET("/search/showtimes", h.Showtimes.Search, cache)
	pub.GET("/geocode/reverse", h.Geocode.Reverse, cache)
	pub.GET("/geocode/search", h.Geocode.Search, cache)
	pub.POST("/payments/webhook", h.Payments.Webhook)

	auth := e.Group("/v1", jwt, anyRole)
	auth.GET("/me", h.Auth.Me)
	auth.POST("/bookings", h.Bookings.Create, limit)
	auth.POST("/bookings/verify", h.Bookings.Verify)
	auth.GET("/bookings", h.Bookings.ListMine)
	auth.POST("/checkout", h.Payments.Checkout, limit)
	auth.GET("/tickets", h.Tickets.List)
	auth.GET("/tickets/:id", h.Tickets.Get)
	auth.GET("/tickets/:id/qr", h.Tickets.QR)

	st := e.Group("/v1", jwt, staff)
	st.POST("/shows", h.Shows.Create)
	st.POST("/showtimes", h.Showtimes.Create)

	ad := e.Group("/v1", jwt, admin)
	ad.POST("/auditoriums", h.Auditoriums.Create)
	ad.PUT("/auditoriums/:id", h.Auditoriums.Update)
	ad.DELETE("/auditoriums/:id", h.Auditoriums.Delete)
	ad.POST("/admin/managers", h.Admin.CreateManager)
	ad.GET("/admin/managers", h.Admin.ListManagers)
	ad.GET("/admin/analytics/revenue", h.Admin.RevenueTrend)
	ad.GET("/admin/analytics/recent-bookings", h.Admin.RecentBookings)
	ad.GET("/admin/analytics/auditoriums", h.Admin.AuditoriumStats)

	m := e.Group("/v1/manager", jwt, manager)
	m.GET("/auditoriums", h.Auditoriums.ListManaged)
	m.GET("/dashboard", h.Auditoriums.Dashboard)
	m.GET("/showtimes", h.Showtimes.Managed)
}
