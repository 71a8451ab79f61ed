package common

import (
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// RequireUUIDParam extracts a UUID route parameter. A malformed id cannot name
// anything, so it is reported as 404.
func RequireUUIDParam(c echo.Context, param string) (uuid.UUID, error) {
	u, err := uuid.Parse(c.Param(param))
	if err != nil {
		return uuid.Nil, ErrNotFound(param + " not found")
	}
	return u, nil
}
