package middleware

import (
    "strconv"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/library-reservation/internal/model"
)

const identityKey = "identity"

func setIdentity(c echo.Context, id model.Identity) {
    c.Set(identityKey, id)
    c.Set("user_id", id.ID)
    c.Set("role", id.Role)
}

// CurrentUser returns the authenticated caller, or false when the request
// did not pass through JWTAuth.
func CurrentUser(c echo.Context) (model.Identity, bool) {
    id, ok := c.Get(identityKey).(model.Identity)
    if !ok || id.ID == 0 {
        return model.Identity{}, false
    }
    return id, true
}

// rateSubject names the caller for rate-limit keys.
func rateSubject(c echo.Context) string {
    if id, ok := CurrentUser(c); ok {
        return strconv.FormatUint(id.ID, 10)
    }
    return "anon"
}
