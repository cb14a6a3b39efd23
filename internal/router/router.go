package router // package router registers the HTTP routes of the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/party-booking/internal/handler"
	"github.com/iliyamo/party-booking/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth exposes the admin login behind the rate limiter.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login, limit)
}

// RegisterPublic exposes the catalogue and quotes.  Both are cacheable.
func RegisterPublic(e *echo.Echo, h *handler.BookingHandler, cache echo.MiddlewareFunc) {
	e.GET("/v1/packages", h.Packages, cache)
	e.GET("/v1/pricing", h.Pricing, cache)
}

// RegisterAdmin exposes reservation management.  Every route needs an ADMIN
// access token.
func RegisterAdmin(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.GET("/reservations", h.List)
	g.POST("/reservations", h.Create)
	g.GET("/reservations/:id", h.Get)
	g.PUT("/reservations/:id/paid", h.MarkPaid)
	g.DELETE("/reservations/:id", h.Delete)
	g.POST("/sync", h.Sync)
	g.GET("/calendar/:year/:month", h.Calendar)
}
