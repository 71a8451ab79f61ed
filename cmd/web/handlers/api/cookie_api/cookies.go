// Package cookie_api replaces and clears the shared download cookie jar.
package cookie_api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/common"
	"thirdcoast.systems/gifmoments/internal/cookiejar"
)

const maxCookieBytes = 1 << 20

type Jar interface {
	Replace(ctx context.Context, content string) (cookiejar.ParseResult, error)
	Clear(ctx context.Context) error
}

// HandleReplace accepts a Netscape cookie file as the raw body, or as
// {"cookies": "..."} when sent as JSON.
func HandleReplace(jar Jar) echo.HandlerFunc {
	return func(c echo.Context) error {
		if jar == nil {
			return common.ErrUnavailable("cookie jar is not configured")
		}

		content, err := readCookies(c)
		if err != nil {
			return err
		}

		res, err := jar.Replace(c.Request().Context(), content)
		if errors.Is(err, cookiejar.ErrNoValidCookies) {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error":         "no valid cookies found",
				"invalid_count": res.Invalid,
				"first_invalid": res.FirstInvalid,
			})
		}
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "store cookies failed", "error", err)
			return common.ErrInternal("failed to store cookies")
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status":        "ok",
			"valid_count":   len(res.Cookies),
			"invalid_count": res.Invalid,
		})
	}
}

func HandleClear(jar Jar) echo.HandlerFunc {
	return func(c echo.Context) error {
		if jar == nil {
			return common.ErrUnavailable("cookie jar is not configured")
		}
		if err := jar.Clear(c.Request().Context()); err != nil {
			slog.ErrorContext(c.Request().Context(), "clear cookies failed", "error", err)
			return common.ErrInternal("failed to clear cookies")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func readCookies(c echo.Context) (string, error) {
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		var req struct {
			Cookies string `json:"cookies"`
		}
		if err := c.Bind(&req); err != nil {
			return "", common.ErrBadRequest("invalid json")
		}
		if strings.TrimSpace(req.Cookies) == "" {
			return "", common.ErrBadRequest("cookies is required")
		}
		return req.Cookies, nil
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCookieBytes))
	if err != nil {
		return "", common.ErrBadRequest("could not read body")
	}
	if strings.TrimSpace(string(body)) == "" {
		return "", common.ErrBadRequest("cookie file is empty")
	}
	return string(body), nil
}
