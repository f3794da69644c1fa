package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-reservation/internal/lifecycle"
    "github.com/iliyamo/library-reservation/internal/repository"
)

// AdminHandler exposes the desk workflow: pending queue, approve/reject,
// active loans and returns.  Routes require the ADMIN role.
type AdminHandler struct {
    Manager      *lifecycle.Manager
    Reservations *repository.ReservationRepo
    Borrowings   *repository.BorrowingRepo
}

func NewAdminHandler(m *lifecycle.Manager, r *repository.ReservationRepo, b *repository.BorrowingRepo) *AdminHandler {
    return &AdminHandler{Manager: m, Reservations: r, Borrowings: b}
}

// PendingReservations handles GET /v1/admin/reservations/pending.
func (h *AdminHandler) PendingReservations(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    items, err := h.Reservations.ListPending(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ActiveBorrowings handles GET /v1/admin/borrowings/active.
func (h *AdminHandler) ActiveBorrowings(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    items, err := h.Borrowings.ListActive(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Approve handles POST /v1/admin/reservations/:id/approve and returns the
// new loan.
func (h *AdminHandler) Approve(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    loan, err := h.Manager.ApproveReservation(ctx, id)
    if err != nil {
        return writeLifecycleError(c, err, loan)
    }
    return c.JSON(http.StatusOK, loan)
}

// Reject handles POST /v1/admin/reservations/:id/reject.
func (h *AdminHandler) Reject(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    res, err := h.Manager.RejectReservation(ctx, id)
    if err != nil {
        return writeLifecycleError(c, err, res)
    }
    return c.JSON(http.StatusOK, res)
}

// Return handles POST /v1/admin/borrowings/:id/return.
func (h *AdminHandler) Return(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid borrowing id"})
    }
    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    loan, err := h.Manager.ReturnBook(ctx, id)
    if err != nil {
        return writeLifecycleError(c, err, loan)
    }
    return c.JSON(http.StatusOK, loan)
}
