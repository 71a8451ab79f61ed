// Package gif_api serves GIF generation and retrieval.
package gif_api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"thirdcoast.systems/gifmoments/internal/acquire"
	"thirdcoast.systems/gifmoments/internal/media"
	"thirdcoast.systems/gifmoments/internal/pipeline"
)

// Runner executes one generation request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// GenerateOptions bound uploads.
type GenerateOptions struct {
	// UploadDir receives uploaded files; empty means the system temp dir.
	UploadDir      string
	MaxUploadBytes int64
}

type generateBody struct {
	YouTubeURL string `json:"youtubeUrl" form:"youtubeUrl"`
	Prompt     string `json:"prompt" form:"prompt"`
}

// URLFor is the retrieval URL of an artifact.
func URLFor(id uuid.UUID) string { return "/api/gifs/" + id.String() }

// HandleGenerate accepts a multipart upload ("video" and "prompt") or a JSON
// body with "youtubeUrl" and "prompt".
func HandleGenerate(runner Runner, opts GenerateOptions) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		req, err := readRequest(c, opts)
		if err != nil {
			if req.OwnsUpload && req.Reference.Path != "" {
				_ = os.Remove(req.Reference.Path)
			}
			return writeFailure(c, err)
		}

		res, err := runner.Run(ctx, req)
		if err != nil {
			return writeFailure(c, err)
		}
		return c.JSON(http.StatusOK, pipeline.NewSuccessResponse(res, URLFor))
	}
}

func readRequest(c echo.Context, opts GenerateOptions) (pipeline.Request, error) {
	var body generateBody
	if err := c.Bind(&body); err != nil {
		return pipeline.Request{}, &pipeline.InputError{Field: "body", Message: "the request body could not be read"}
	}
	req := pipeline.Request{Prompt: body.Prompt}

	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		fh, err := c.FormFile("video")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			return req, &pipeline.InputError{Field: "video", Message: "the uploaded file could not be read"}
		default:
			path, err := saveUpload(c.Request().Context(), fh, opts)
			if path != "" {
				req.Reference = media.UploadReference(path)
				req.OwnsUpload = true
			}
			if err != nil {
				return req, err
			}
		}
	}

	if u := strings.TrimSpace(body.YouTubeURL); u != "" {
		if req.Reference.Kind == media.KindUpload {
			// Both sources present; Validate reports it.
			req.Reference.URL = u
		} else {
			req.Reference = media.RemoteReference(u)
		}
	}
	return req, nil
}

// saveUpload copies the multipart file into UploadDir and checks that it looks
// like video. The returned path is set whenever a file was written.
func saveUpload(ctx context.Context, fh *multipart.FileHeader, opts GenerateOptions) (string, error) {
	if opts.MaxUploadBytes > 0 && fh.Size > opts.MaxUploadBytes {
		return "", &pipeline.InputError{
			Field:   "video",
			Message: fmt.Sprintf("the video is larger than %s", humanize.IBytes(uint64(opts.MaxUploadBytes))),
		}
	}

	src, err := fh.Open()
	if err != nil {
		return "", &pipeline.InputError{Field: "video", Message: "the uploaded file could not be read"}
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(filepath.Base(fh.Filename)))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	dst, err := os.CreateTemp(opts.UploadDir, "upload-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	path := dst.Name()
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return path, fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		return path, fmt.Errorf("write upload: %w", err)
	}

	mime, err := acquire.SniffVideo(path)
	if err != nil {
		return path, &pipeline.InputError{Field: "video", Message: "the uploaded file is not a video"}
	}
	slog.InfoContext(ctx, "upload received", "name", fh.Filename, "size", humanize.IBytes(uint64(fh.Size)), "mime", mime)
	return path, nil
}

// StatusFor maps pipeline errors to HTTP status codes.
func StatusFor(err error) int {
	var (
		inputErr  *pipeline.InputError
		acqErr    *acquire.AcquisitionError
		renderErr *pipeline.RenderFailure
	)
	switch {
	case errors.As(err, &inputErr):
		return http.StatusBadRequest
	case errors.As(err, &acqErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &renderErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeFailure(c echo.Context, err error) error {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "generate failed", "error", err)
	}
	return c.JSON(status, pipeline.NewFailureResponse(err))
}
