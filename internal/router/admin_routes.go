package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-reservation/internal/handler"
	"github.com/iliyamo/library-reservation/internal/middleware"
	"github.com/iliyamo/library-reservation/internal/model"
)

// RegisterAdmin registers the desk endpoints under /v1/admin.  Every route
// requires a valid JWT and the ADMIN role; state transitions also pass the
// write limiter.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, catalog *handler.CatalogHandler, jwtSecret string, writeLimit echo.MiddlewareFunc) {
	g := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleAdmin))

	g.POST("/books", catalog.CreateBook)

	g.GET("/reservations/pending", h.PendingReservations)
	g.POST("/reservations/:id/approve", h.Approve, writeLimit)
	g.POST("/reservations/:id/reject", h.Reject, writeLimit)

	g.GET("/borrowings/active", h.ActiveBorrowings)
	g.POST("/borrowings/:id/return", h.Return, writeLimit)
}
