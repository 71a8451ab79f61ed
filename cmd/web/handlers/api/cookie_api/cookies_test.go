package cookie_api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"thirdcoast.systems/gifmoments/internal/cookiejar"
)

type memJar struct {
	content string
	cleared bool
}

func (m *memJar) Replace(ctx context.Context, content string) (cookiejar.ParseResult, error) {
	res := cookiejar.Parse(content)
	if len(res.Cookies) == 0 {
		return res, cookiejar.ErrNoValidCookies
	}
	m.content = content
	return res, nil
}

func (m *memJar) Clear(ctx context.Context) error {
	m.cleared = true
	return nil
}

const netscape = ".youtube.com\tTRUE\t/\tTRUE\t2147483647\tSID\tabc\nbroken line\n"

func call(t *testing.T, h echo.HandlerFunc, method, ctype, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/api/cookies", strings.NewReader(body))
	if ctype != "" {
		req.Header.Set(echo.HeaderContentType, ctype)
	}
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestHandleReplace(t *testing.T) {
	t.Run("raw body", func(t *testing.T) {
		jar := &memJar{}
		rec, err := call(t, HandleReplace(jar), http.MethodPut, echo.MIMETextPlain, netscape)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","valid_count":1,"invalid_count":1}`, rec.Body.String())
		assert.Equal(t, netscape, jar.content)
	})

	t.Run("json body", func(t *testing.T) {
		jar := &memJar{}
		rec, err := call(t, HandleReplace(jar), http.MethodPut, echo.MIMEApplicationJSON, `{"cookies":".youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc"}`)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, jar.content)
	})

	t.Run("no valid cookies", func(t *testing.T) {
		rec, err := call(t, HandleReplace(&memJar{}), http.MethodPut, echo.MIMETextPlain, "# only a comment\nnope\n")
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		_, err := call(t, HandleReplace(&memJar{}), http.MethodPut, echo.MIMETextPlain, "  ")
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusBadRequest, he.Code)
	})

	t.Run("jar disabled", func(t *testing.T) {
		_, err := call(t, HandleReplace(nil), http.MethodPut, echo.MIMETextPlain, netscape)
		var he *echo.HTTPError
		require.ErrorAs(t, err, &he)
		assert.Equal(t, http.StatusServiceUnavailable, he.Code)
	})
}

func TestHandleClear(t *testing.T) {
	jar := &memJar{}
	rec, err := call(t, HandleClear(jar), http.MethodDelete, "", "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, jar.cleared)
}
