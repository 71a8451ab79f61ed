// Package fileserver serves stored artifacts from disk or from a blob stream.
//
// Artifacts are written once under a key derived from their id and never
// change, so the key itself is the strong ETag on both paths.
package fileserver

import (
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// ETag returns the strong validator for an artifact key.
func ETag(key string) string {
	return strconv.Quote(key)
}

// FileServer writes artifact responses with cache validators.
type FileServer struct{}

func NewFileServer() *FileServer {
	return &FileServer{}
}

// ServeFile serves the artifact at path. Range requests are honoured.
func (fs *FileServer) ServeFile(c echo.Context, path, key, contentType, cacheControl string) error {
	f, err := os.Open(path)
	if err != nil {
		return echo.ErrNotFound
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		return echo.ErrNotFound
	}

	etag := ETag(key)
	if notModified(c.Request(), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	setHeaders(c, etag, info.ModTime(), contentType, cacheControl)

	// ServeContent adds Last-Modified and handles Range and If-Modified-Since.
	http.ServeContent(c.Response(), c.Request(), key, info.ModTime(), f)
	return nil
}

// ServeBlob streams r. Range is not supported on this path.
func (fs *FileServer) ServeBlob(c echo.Context, r io.Reader, key string, size int64, modTime time.Time, contentType string, cacheControl string) error {
	etag := ETag(key)
	if notModified(c.Request(), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	setHeaders(c, etag, modTime, contentType, cacheControl)
	if size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(size, 10))
	}
	return c.Stream(http.StatusOK, contentType, r)
}

func setHeaders(c echo.Context, etag string, modTime time.Time, contentType, cacheControl string) {
	h := c.Response().Header()
	h.Set(echo.HeaderCacheControl, cacheControl)
	h.Set("ETag", etag)
	if !modTime.IsZero() {
		h.Set(echo.HeaderLastModified, modTime.UTC().Format(http.TimeFormat))
	}
	if contentType != "" {
		h.Set(echo.HeaderContentType, contentType)
	}
}

// notModified matches If-None-Match, which may list several tags or "*".
// Weak tags compare by their opaque part.
func notModified(r *http.Request, etag string) bool {
	inm := r.Header.Get("If-None-Match")
	if inm == "" {
		return false
	}
	for _, tag := range strings.Split(inm, ",") {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		if tag == "*" || tag == etag {
			return true
		}
	}
	return false
}
