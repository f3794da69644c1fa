package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-reservation/internal/repository"
)

// NotificationHandler serves the caller's pull-based notification feed.
type NotificationHandler struct {
    Notes *repository.NotificationRepo
}

func NewNotificationHandler(n *repository.NotificationRepo) *NotificationHandler {
    return &NotificationHandler{Notes: n}
}

// List handles GET /v1/me/notifications?unread=true&limit=20.
func (h *NotificationHandler) List(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
    }
    unread, _ := strconv.ParseBool(c.QueryParam("unread"))
    limit, _ := strconv.Atoi(c.QueryParam("limit"))

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    items, err := h.Notes.ListByUser(ctx, uid, unread, limit)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// UnreadCount handles GET /v1/me/notifications/unread-count.
func (h *NotificationHandler) UnreadCount(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    n, err := h.Notes.CountUnread(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"unread": n})
}

// MarkRead handles POST /v1/me/notifications/:id/read.  Another user's
// notification reads as not found.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
    }
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if err := h.Notes.MarkRead(ctx, id, uid); err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.NoContent(http.StatusNoContent)
}
