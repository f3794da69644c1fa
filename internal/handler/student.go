package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-reservation/internal/lifecycle"
    "github.com/iliyamo/library-reservation/internal/repository"
    "github.com/iliyamo/library-reservation/internal/scheduling"
)

// StudentHandler exposes reserve, hold and the caller's own history.  All
// routes run behind JWTAuth.
type StudentHandler struct {
    Manager      *lifecycle.Manager
    Reservations *repository.ReservationRepo
    Borrowings   *repository.BorrowingRepo
}

func NewStudentHandler(m *lifecycle.Manager, r *repository.ReservationRepo, b *repository.BorrowingRepo) *StudentHandler {
    return &StudentHandler{Manager: m, Reservations: r, Borrowings: b}
}

type reserveReq struct {
    Date string `json:"date" validate:"required,date"`
}

// Reserve handles POST /v1/books/:id/reservations with {"date":"YYYY-MM-DD"}.
func (h *StudentHandler) Reserve(c echo.Context) error {
    bookID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
    }
    var req reserveReq
    if ok, err := bindValid(c, &req); !ok {
        return err
    }
    date, _ := scheduling.ParseDate(req.Date) // validated above

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Manager.Reserve(ctx, getUserID(c), bookID, date)
    if err != nil {
        return writeLifecycleError(c, err, res)
    }
    return c.JSON(http.StatusCreated, res)
}

// PlaceHold handles POST /v1/books/:id/holds.
func (h *StudentHandler) PlaceHold(c echo.Context) error {
    bookID, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    hold, err := h.Manager.PlaceHold(ctx, getUserID(c), bookID)
    if err != nil {
        return writeLifecycleError(c, err, hold)
    }
    return c.JSON(http.StatusCreated, hold)
}

// MyReservations handles GET /v1/me/reservations.
func (h *StudentHandler) MyReservations(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    items, err := h.Reservations.ListByUser(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MyBorrowings handles GET /v1/me/borrowings.
func (h *StudentHandler) MyBorrowings(c echo.Context) error {
    uid := getUserID(c)
    if uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    items, err := h.Borrowings.ListByUser(ctx, uid)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}
