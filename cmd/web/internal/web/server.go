package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/api/cookie_api"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/api/fileserver"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/api/gif_api"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/api/probe_api"
	"thirdcoast.systems/gifmoments/cmd/web/handlers/common"
)

// Deps are the services the HTTP surface exposes.
type Deps struct {
	Runner    gif_api.Runner
	Artifacts gif_api.Store
	Prober    probe_api.Prober
	// Cookies is nil when the cookie jar is disabled.
	Cookies        cookie_api.Jar
	AdminTokenHash string
	UploadDir      string
	MaxUploadBytes int64
}

type Webserver struct {
	*echo.Echo
	deps       Deps
	fileServer *fileserver.FileServer
}

func NewWebserver(ctx context.Context, deps Deps) (*Webserver, error) {
	if deps.Runner == nil || deps.Artifacts == nil {
		return nil, fmt.Errorf("webserver: runner and artifact store are required")
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 500 << 20
	}

	webserver := &Webserver{
		Echo:       echo.New(),
		deps:       deps,
		fileServer: fileserver.NewFileServer(),
	}
	if deps.AdminTokenHash == "" {
		slog.InfoContext(ctx, "ADMIN_TOKEN_HASH not set; cookie endpoints will reject every request")
	}

	if err := webserver.registerRoutes(); err != nil {
		return nil, err
	}
	if err := webserver.setupMiddleware(); err != nil {
		return nil, err
	}
	return webserver, nil
}

func (s *Webserver) setupMiddleware() error {
	s.HideBanner = true
	s.HidePort = true
	// Room for multipart overhead on top of the largest accepted video.
	s.Use(middleware.BodyLimit(fmt.Sprintf("%dM", s.deps.MaxUploadBytes>>20+2)))
	s.Use(middleware.Recover())
	s.Use(middleware.RequestID())
	s.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			// GIF bytes are already compressed.
			return c.Path() == "/api/gifs/:id"
		},
	}))
	s.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/healthz"
		},
		LogURI:       true,
		LogMethod:    true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  false,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"request_id", v.RequestID,
			}
			if v.Error != nil {
				fields = append(fields, "error", v.Error)
			}
			slog.InfoContext(c.Request().Context(), "request", fields...)
			return nil
		},
	}))
	return nil
}

func (s *Webserver) registerRoutes() error {
	apiGroup := s.Group("/api")
	apiGroup.POST("/generate", gif_api.HandleGenerate(s.deps.Runner, gif_api.GenerateOptions{
		UploadDir:      s.deps.UploadDir,
		MaxUploadBytes: s.deps.MaxUploadBytes,
	}))
	apiGroup.GET("/gifs/:id", gif_api.HandleGet(s.deps.Artifacts, s.fileServer))
	apiGroup.GET("/gifs/:id/meta", gif_api.HandleMeta(s.deps.Artifacts))
	if s.deps.Prober != nil {
		apiGroup.POST("/probe", probe_api.HandleProbe(s.deps.Prober))
	}

	cookieGroup := apiGroup.Group("/cookies", common.RequireAdminToken(s.deps.AdminTokenHash))
	cookieGroup.PUT("", cookie_api.HandleReplace(s.deps.Cookies))
	cookieGroup.DELETE("", cookie_api.HandleClear(s.deps.Cookies))

	// Health check
	s.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return nil
}
