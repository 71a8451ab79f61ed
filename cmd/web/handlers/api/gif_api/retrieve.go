package gif_api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/api/fileserver"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/common"
	"thirdcoast.systems/gifmoments/internal/artifacts"
)

// Store is the read side of the artifact store.
type Store interface {
	Meta(ctx context.Context, id uuid.UUID) (*artifacts.Meta, error)
	Open(ctx context.Context, id uuid.UUID) (io.ReadCloser, artifacts.BlobInfo, error)
	LocalPath(id uuid.UUID) (string, bool)
}

const gifContentType = "image/gif"

// HandleGet serves the GIF bytes. Disk artifacts go through the file server;
// remote blobs are streamed.
func HandleGet(store Store, fs *fileserver.FileServer) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}

		if path, ok := store.LocalPath(id); ok {
			return fs.ServeFile(c, path, artifacts.Key(id), gifContentType, artifacts.CacheControl)
		}

		rc, info, err := store.Open(c.Request().Context(), id)
		if errors.Is(err, artifacts.ErrNotFound) {
			return common.ErrNotFound("gif not found")
		}
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "open artifact failed", "id", id, "error", err)
			return common.ErrInternal("failed to read gif")
		}
		defer rc.Close()

		ctype := info.ContentType
		if ctype == "" {
			ctype = gifContentType
		}
		return fs.ServeBlob(c, rc, artifacts.Key(id), info.Size, info.ModTime, ctype, artifacts.CacheControl)
	}
}

// HandleMeta returns the artifact's stored metadata with its URL.
func HandleMeta(store Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := common.RequireUUIDParam(c, "id")
		if err != nil {
			return err
		}
		m, err := store.Meta(c.Request().Context(), id)
		if errors.Is(err, artifacts.ErrNotFound) {
			return common.ErrNotFound("gif not found")
		}
		if err != nil {
			slog.ErrorContext(c.Request().Context(), "load artifact metadata failed", "id", id, "error", err)
			return common.ErrInternal("failed to load gif metadata")
		}
		return c.JSON(http.StatusOK, struct {
			*artifacts.Meta
			URL string `json:"url"`
		}{m, URLFor(id)})
	}
}
