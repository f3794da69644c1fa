package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-reservation/internal/lifecycle"
    "github.com/iliyamo/library-reservation/internal/lock"
    "github.com/iliyamo/library-reservation/internal/middleware"
)

// writeLifecycleError maps the manager's error kinds to HTTP.  result is
// echoed back on a partial failure so the client sees what was written.
func writeLifecycleError(c echo.Context, err error, result interface{}) error {
    var (
        pf *lifecycle.PartialFailureError
        ce *lifecycle.ConflictError
    )
    switch {
    case errors.As(err, &pf):
        return c.JSON(http.StatusMultiStatus, echo.Map{
            "error":     "request partially applied",
            "operation": pf.Operation,
            "completed": pf.Completed,
            "failed":    pf.Failed,
            "result":    result,
        })
    case errors.As(err, &ce):
        kind := "validation_conflict"
        if errors.Is(ce, lifecycle.ErrQueueConflict) {
            kind = "queue_conflict"
        }
        return c.JSON(http.StatusConflict, echo.Map{"error": ce.Reason, "kind": kind})
    case errors.Is(err, lifecycle.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
    case errors.Is(err, lifecycle.ErrAlreadyTerminal):
        return c.JSON(http.StatusConflict, echo.Map{"error": err.Error(), "kind": "already_terminal"})
    case errors.Is(err, lifecycle.ErrUnauthenticated):
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
    case errors.Is(err, lock.ErrNotAcquired), errors.Is(err, context.DeadlineExceeded):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "book is busy, try again"})
    default:
        c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
    }
}

// getUserID returns the authenticated caller's id, or 0 when there is none.
func getUserID(c echo.Context) uint64 {
    id, ok := middleware.CurrentUser(c)
    if !ok {
        return 0
    }
    return id.ID
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}
