package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/library-reservation/internal/handler"
	"github.com/iliyamo/library-reservation/internal/middleware"
	"github.com/iliyamo/library-reservation/internal/model"
)

// RegisterStudent registers reserve and hold (STUDENT only, behind the
// write limiter) and the caller's own history and notification feed (any
// signed-in user).
func RegisterStudent(e *echo.Echo, h *handler.StudentHandler, n *handler.NotificationHandler, jwtSecret string, writeLimit echo.MiddlewareFunc) {
	auth := middleware.JWTAuth(jwtSecret)

	// route-level middleware: the public catalog shares the /v1/books prefix
	student := middleware.RequireRole(model.RoleStudent)
	e.POST("/v1/books/:id/reservations", h.Reserve, auth, student, writeLimit)
	e.POST("/v1/books/:id/holds", h.PlaceHold, auth, student, writeLimit)

	me := e.Group("/v1/me", auth, middleware.RequireRole(model.RoleStudent, model.RoleAdmin))
	me.GET("/reservations", h.MyReservations)
	me.GET("/borrowings", h.MyBorrowings)
	me.GET("/notifications", n.List)
	me.GET("/notifications/unread-count", n.UnreadCount)
	me.POST("/notifications/:id/read", n.MarkRead)
}
