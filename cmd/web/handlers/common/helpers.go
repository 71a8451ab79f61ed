package common

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/gifmoments/pkg/utils/passwords"
)

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireAdminToken checks the bearer token against an argon2id hash. With no
// hash configured every request is rejected.
func RequireAdminToken(hash string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := BearerToken(c)
			if hash == "" || token == "" {
				return ErrUnauthorized()
			}
			ok, err := passwords.Matches(token, hash)
			if err != nil {
				slog.ErrorContext(c.Request().Context(), "admin token check failed", "error", err)
				return ErrInternal("token check failed")
			}
			if !ok {
				return ErrUnauthorized()
			}
			return next(c)
		}
	}
}
